package main

import (
	"context"
	"fmt"
	"os"

	"github.com/optiserve/geocoord/internal/config"
	"github.com/optiserve/geocoord/internal/coordinator"
	"github.com/optiserve/geocoord/internal/export"
)

// runListRuns prints the recorded runs, newest first.
func runListRuns(ctx context.Context, cfg *config.SiteConfig, site string, limit int) error {
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no history database configured; set historyDB in geocoord.yml or pass -history-db")
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, site, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	fmt.Printf("%-14s %-30s %-20s %5s %5s %5s %6s\n",
		"RUN", "SITE", "DATE", "RECS", "CONF", "DAYS", "PHASES")
	for _, r := range runs {
		fmt.Printf("%-14.14s %-30.30s %-20s %5d %5.2f %5d %6d\n",
			r.RunID, r.Site, r.GeneratedAt.Format("2006-01-02 15:04"),
			r.Recommendations, r.OverallConfidence, r.TotalDays, r.Phases)
	}
	return nil
}

// renderer formats one stored run for output.
type renderer func(out *coordinator.CoordinatedOutput) error

// runShow loads one run from history and renders it.
func runShow(ctx context.Context, cfg *config.SiteConfig, runID string, render renderer) error {
	if runID == "" {
		return fmt.Errorf("usage: geocoord show|gantt|graph <run-id>")
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no history database configured; set historyDB in geocoord.yml or pass -history-db")
	}
	defer store.Close()

	out, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	return render(out)
}

func renderJSON(out *coordinator.CoordinatedOutput) error {
	data, err := export.ReportJSON(out)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func renderGantt(out *coordinator.CoordinatedOutput) error {
	fmt.Print(export.GanttChart(out))
	return nil
}

func renderGraph(out *coordinator.CoordinatedOutput) error {
	fmt.Print(export.DependencyGraph(out))
	return nil
}
