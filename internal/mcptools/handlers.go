package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/optiserve/geocoord/internal/agent"
	"github.com/optiserve/geocoord/internal/coordinator"
	"github.com/optiserve/geocoord/internal/crawl"
	"github.com/optiserve/geocoord/internal/export"
	"github.com/optiserve/geocoord/internal/geo"
	"github.com/optiserve/geocoord/internal/history"
)

// CoordinateService handles MCP tool calls. It wraps the configured agents
// plus the optional run-history store.
type CoordinateService struct {
	agents   []agent.DomainAgent
	business geo.BusinessContext
	options  coordinator.Options
	history  *history.Store
}

// NewCoordinateService creates a CoordinateService. history may be nil when
// no database is configured.
func NewCoordinateService(agents []agent.DomainAgent, business geo.BusinessContext, options coordinator.Options, hist *history.Store) *CoordinateService {
	return &CoordinateService{
		agents:   agents,
		business: business,
		options:  options,
		history:  hist,
	}
}

// CoordinateSite runs the full coordination pipeline over a crawl export.
func (s *CoordinateService) CoordinateSite(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CoordinateSiteInput,
) (*mcp.CallToolResult, CoordinateSiteOutput, error) {
	if input.CrawlExport == "" {
		return nil, CoordinateSiteOutput{}, fmt.Errorf("crawlExport is required")
	}

	exp, err := crawl.Load(input.CrawlExport)
	if err != nil {
		return nil, CoordinateSiteOutput{}, err
	}
	units, parseErrs := exp.Units()
	for _, e := range parseErrs {
		// Broken pages are already excluded from units; log them and
		// keep going.
		log.Printf("mcptools: %v", e)
	}

	out, err := coordinator.Coordinate(ctx, coordinator.Request{
		Units:    units,
		Agents:   s.agents,
		Business: s.business,
		Options:  s.options,
	})
	if err != nil {
		return nil, CoordinateSiteOutput{}, err
	}

	if s.history != nil {
		if err := s.history.RecordRun(ctx, out); err != nil {
			return nil, CoordinateSiteOutput{}, err
		}
	}

	result := CoordinateSiteOutput{
		RunID:             out.RunID,
		Site:              out.Site,
		Recommendations:   out.Summary.TotalRecommendations,
		Conflicts:         out.Summary.ConflictsResolved,
		Phases:            out.Summary.PhaseCount,
		Blocked:           out.Summary.BlockedTasks,
		TotalDays:         out.Timeline.TotalDays,
		OverallConfidence: out.Summary.OverallConfidence,
	}

	if input.ReportPath != "" {
		if err := export.WriteReport(input.ReportPath, out); err != nil {
			return nil, CoordinateSiteOutput{}, err
		}
		result.ReportPath = input.ReportPath
	}

	return nil, result, nil
}

// ListRuns returns recent runs from the history store.
func (s *CoordinateService) ListRuns(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	if s.history == nil {
		return nil, ListRunsOutput{}, fmt.Errorf("no history database configured")
	}

	runs, err := s.history.ListRuns(ctx, input.Site, input.Limit)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}
	return nil, ListRunsOutput{Runs: runs}, nil
}

// GetRun returns the full stored report of one run.
func (s *CoordinateService) GetRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetRunInput,
) (*mcp.CallToolResult, GetRunOutput, error) {
	if s.history == nil {
		return nil, GetRunOutput{}, fmt.Errorf("no history database configured")
	}
	if input.RunID == "" {
		return nil, GetRunOutput{}, fmt.Errorf("runId is required")
	}

	out, err := s.history.GetRun(ctx, input.RunID)
	if err != nil {
		return nil, GetRunOutput{}, err
	}

	report, err := json.Marshal(out)
	if err != nil {
		return nil, GetRunOutput{}, err
	}
	return nil, GetRunOutput{Report: string(report)}, nil
}
