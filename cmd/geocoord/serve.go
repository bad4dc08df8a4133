package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/optiserve/geocoord/internal/agent"
	"github.com/optiserve/geocoord/internal/config"
	"github.com/optiserve/geocoord/internal/mcptools"
	"github.com/optiserve/geocoord/internal/remote"
)

// runAgent serves a single built-in analyzer over HTTP so another
// coordinator instance can use it as a remote agent.
func runAgent(ctx context.Context, role, addr string) error {
	if role == "" {
		return fmt.Errorf("usage: geocoord agent -role <visibility|accuracy|actionability> [-addr :8080]")
	}

	ag, err := agent.NewRegistry().Spawn(agent.Role(role))
	if err != nil {
		return err
	}

	server := remote.NewServer(ag, version)
	if err := server.Start(ctx, addr); err != nil {
		return err
	}
	log.Printf("geocoord: serving %s agent on %s", ag.Name(), addr)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	return server.Stop(context.Background())
}

// runServeMCP runs the coordination tools as an MCP server on stdio.
func runServeMCP(ctx context.Context, cfg *config.SiteConfig) error {
	opts, err := resolveOptions(cfg)
	if err != nil {
		return err
	}
	agents, err := buildAgents(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	svc := mcptools.NewCoordinateService(agents, cfg.Business, opts, store)
	return mcptools.RunMCPServerStdio(ctx, mcptools.NewMCPServer(svc))
}
