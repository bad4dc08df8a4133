package main

import (
	"context"
	"fmt"
	"log"

	"github.com/optiserve/geocoord/internal/config"
	"github.com/optiserve/geocoord/internal/coordinator"
	"github.com/optiserve/geocoord/internal/crawl"
	"github.com/optiserve/geocoord/internal/export"
	"github.com/optiserve/geocoord/internal/geo"
)

// runCoordinate executes one coordination run over the configured crawl
// export and prints the plan summary.
func runCoordinate(ctx context.Context, cfg *config.SiteConfig, reportPath string) error {
	if cfg.CrawlExport == "" {
		return fmt.Errorf("no crawl export configured; set crawlExport in geocoord.yml or pass -crawl")
	}

	exp, err := crawl.Load(cfg.CrawlExport)
	if err != nil {
		return err
	}
	units, parseErrs := exp.Units()
	for _, e := range parseErrs {
		log.Printf("geocoord: %v", e)
	}

	opts, err := resolveOptions(cfg)
	if err != nil {
		return err
	}
	agents, err := buildAgents(ctx, cfg)
	if err != nil {
		return err
	}

	out, err := coordinator.Coordinate(ctx, coordinator.Request{
		Units:    units,
		Agents:   agents,
		Business: cfg.Business,
		Options:  opts,
	})
	if err != nil {
		return err
	}

	if store, err := openHistory(cfg); err != nil {
		return err
	} else if store != nil {
		defer store.Close()
		if err := store.RecordRun(ctx, out); err != nil {
			return err
		}
	}

	if reportPath != "" {
		if err := export.WriteReport(reportPath, out); err != nil {
			return err
		}
	}

	printSummary(out, cfg.Verbose)
	return nil
}

// printSummary renders the human-readable run overview.
func printSummary(out *coordinator.CoordinatedOutput, verbose bool) {
	s := out.Summary
	fmt.Printf("Run %s for %s\n\n", out.RunID, out.Site)
	fmt.Printf("  units analyzed:    %d\n", s.UnitsAnalyzed)
	fmt.Printf("  agents run:        %d\n", s.AgentsRun)
	fmt.Printf("  recommendations:   %d\n", s.TotalRecommendations)
	fmt.Printf("  conflicts:         %d\n", s.ConflictsResolved)
	fmt.Printf("  blocked tasks:     %d\n", s.BlockedTasks)
	fmt.Printf("  confidence:        %.2f\n", s.OverallConfidence)
	fmt.Printf("  schedule:          %d phase(s), %d day(s), done %s\n",
		s.PhaseCount, out.Timeline.TotalDays, out.Timeline.CompletionDate.Format("2006-01-02"))

	for _, phase := range out.Plan {
		fmt.Printf("\n%s (%.0fh):\n", phase.Name, phase.TotalHours)
		for _, task := range phase.Tasks {
			fmt.Printf("  [%s] %s (%s, %.0fh)\n",
				task.Recommendation.Priority, task.Recommendation.Action,
				task.Recommendation.Category, task.EstimatedHours)
		}
	}

	if len(out.Blocked) > 0 {
		fmt.Println("\nBlocked:")
		for _, b := range out.Blocked {
			fmt.Printf("  %s: %s\n", b.Task.Recommendation.Action, b.Reason)
		}
	}

	if verbose {
		if len(s.Errors) > 0 {
			fmt.Println("\nErrors:")
			for _, e := range s.Errors {
				fmt.Printf("  %s\n", e)
			}
		}
		if len(s.Warnings) > 0 {
			fmt.Println("\nWarnings:")
			for _, w := range s.Warnings {
				fmt.Printf("  %s\n", w)
			}
		}
		if len(out.ExpectedOutcomes) > 0 {
			fmt.Println("\nExpected impact:")
			for _, dim := range geo.Dimensions {
				if delta, ok := out.ExpectedOutcomes[dim]; ok {
					fmt.Printf("  %s: +%.2f\n", dim, delta)
				}
			}
		}
	}
}
