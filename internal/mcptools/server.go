package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with the 3 coordination tools
// registered: coordinate_site, list_runs, and get_run.
func NewMCPServer(svc *CoordinateService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "geocoord",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "coordinate_site",
		Description: "Run all domain analyzers over a crawl export, resolve conflicting recommendations, and return the phased implementation plan summary.",
	}, svc.CoordinateSite)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List recent coordination runs with their recommendation, conflict, and schedule counts. Optionally filter by site.",
	}, svc.ListRuns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run",
		Description: "Fetch the full stored report of one coordination run by its run ID.",
	}, svc.GetRun)

	return server
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunMCPServerHTTP starts an HTTP server exposing the coordination MCP
// tools.
func RunMCPServerHTTP(ctx context.Context, svc *CoordinateService, addr string) error {
	server := NewMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
