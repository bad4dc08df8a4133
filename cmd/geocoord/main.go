package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/optiserve/geocoord/internal/agent"
	"github.com/optiserve/geocoord/internal/config"
	"github.com/optiserve/geocoord/internal/coordinator"
	"github.com/optiserve/geocoord/internal/history"
	"github.com/optiserve/geocoord/internal/remote"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ConfigDir string
	Crawl     string
	Report    string
	HistoryDB string
	Site      string
	Limit     int
	Addr      string
	AgentRole string
	ServeMCP  bool
	Verbose   bool
	Version   bool
}

// version is set by goreleaser at build time.
var version = "dev"

const usage = `usage: geocoord [flags] <command>

commands:
  run             analyze a crawl export and print the coordinated plan
  runs            list recorded coordination runs
  show <run-id>   print the full stored report of one run
  gantt <run-id>  print a Mermaid gantt chart of one run's timeline
  graph <run-id>  print a Mermaid dependency graph of one run's plan
  agent           serve one built-in analyzer over HTTP
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("geocoord", flag.ContinueOnError)
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory containing geocoord.yml")
	fs.StringVar(&flags.Crawl, "crawl", "", "path to the crawl export JSON (overrides config)")
	fs.StringVar(&flags.Report, "report", "", "path to write the full JSON report to")
	fs.StringVar(&flags.HistoryDB, "history-db", "", "path of the run-history database (overrides config)")
	fs.StringVar(&flags.Site, "site", "", "site filter for the runs command")
	fs.IntVar(&flags.Limit, "limit", 20, "maximum runs to list")
	fs.StringVar(&flags.Addr, "addr", ":8080", "listen address for agent and MCP HTTP serving")
	fs.StringVar(&flags.AgentRole, "role", "", "analyzer role for the agent command (visibility, accuracy, actionability)")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server on stdio")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return err
	}
	if flags.Crawl != "" {
		cfg.CrawlExport = flags.Crawl
	}
	if flags.HistoryDB != "" {
		cfg.HistoryDB = flags.HistoryDB
	}
	if flags.Verbose {
		cfg.Verbose = true
	}

	ctx := context.Background()

	if flags.ServeMCP {
		return runServeMCP(ctx, cfg)
	}

	switch fs.Arg(0) {
	case "", "run":
		return runCoordinate(ctx, cfg, flags.Report)
	case "runs":
		return runListRuns(ctx, cfg, flags.Site, flags.Limit)
	case "show":
		return runShow(ctx, cfg, fs.Arg(1), renderJSON)
	case "gantt":
		return runShow(ctx, cfg, fs.Arg(1), renderGantt)
	case "graph":
		return runShow(ctx, cfg, fs.Arg(1), renderGraph)
	case "agent":
		return runAgent(ctx, flags.AgentRole, flags.Addr)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}
}

// buildAgents assembles the run's agent set: the built-in analyzers, with
// any configured remote agent replacing the built-in of the same name.
func buildAgents(ctx context.Context, cfg *config.SiteConfig) ([]agent.DomainAgent, error) {
	agents := agent.NewRegistry().SpawnAll()

	for name, endpoint := range cfg.RemoteAgents {
		client, err := remote.Dial(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("remote agent %s: %w", name, err)
		}

		replaced := false
		for i, ag := range agents {
			if ag.Name() == client.Name() {
				agents[i] = client
				replaced = true
				break
			}
		}
		if !replaced {
			agents = append(agents, client)
		}
	}

	return agents, nil
}

// openHistory opens the configured run-history store, or returns nil when
// none is configured.
func openHistory(cfg *config.SiteConfig) (*history.Store, error) {
	if cfg.HistoryDB == "" {
		return nil, nil
	}
	return history.Open(cfg.HistoryDB)
}

// resolveOptions converts the config's coordinator section into options.
func resolveOptions(cfg *config.SiteConfig) (coordinator.Options, error) {
	return cfg.Coordinator.Resolve()
}
