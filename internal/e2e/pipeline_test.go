//go:build e2e

package e2e

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiserve/geocoord/internal/agent"
	"github.com/optiserve/geocoord/internal/coordinator"
	"github.com/optiserve/geocoord/internal/crawl"
	"github.com/optiserve/geocoord/internal/export"
	"github.com/optiserve/geocoord/internal/geo"
	"github.com/optiserve/geocoord/internal/history"
	"github.com/optiserve/geocoord/internal/remote"
)

var acmeBusiness = geo.BusinessContext{
	CanonicalName: "Acme Dental",
	Phone:         "(555) 010-9999",
	Email:         "care@acme.test",
	Address:       "12 Main St",
	ExternalSources: map[string]string{
		"google-business": "Acme Dental",
	},
}

func loadFixture(t *testing.T) []geo.UnitOfWork {
	t.Helper()
	exp, err := crawl.Load(filepath.Join("..", "..", "testdata", "fixtures", "acme", "crawl.json"))
	require.NoError(t, err)

	units, errs := exp.Units()
	require.Empty(t, errs)
	require.Len(t, units, 2)
	return units
}

// TestPipeline_E2E_LocalAgents runs the full pipeline over the crawl
// fixture with the built-in analyzers, records the run, and renders every
// export artifact.
func TestPipeline_E2E_LocalAgents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	units := loadFixture(t)

	out, err := coordinator.Coordinate(ctx, coordinator.Request{
		Units:    units,
		Agents:   agent.NewRegistry().SpawnAll(),
		Business: acmeBusiness,
		Options: coordinator.Options{
			StartDate: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	// The fixture's home page misses its title, skips a heading level, has
	// no structured data, and carries an inert form, so every analyzer
	// must contribute something.
	assert.Greater(t, out.Summary.TotalRecommendations, 3)
	assert.NotEmpty(t, out.Plan)
	assert.Greater(t, out.Summary.OverallConfidence, 0.0)
	assert.Empty(t, out.Summary.Errors)

	categories := map[geo.Category]bool{}
	for cat, recs := range out.MergedRecommendations {
		if len(recs) > 0 {
			categories[cat] = true
		}
	}
	assert.True(t, categories[geo.CategoryVisibility])
	assert.True(t, categories[geo.CategoryActionability])

	// Timeline covers the whole plan from the configured start date.
	require.Len(t, out.Timeline.Schedules, len(out.Plan))
	assert.Greater(t, out.Timeline.TotalDays, 0)
	assert.Equal(t, time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), out.Timeline.Schedules[0].StartDate)

	// Every export artifact renders.
	reportPath := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, export.WriteReport(reportPath, out))
	assert.True(t, strings.HasPrefix(export.GanttChart(out), "gantt\n"))
	assert.True(t, strings.HasPrefix(export.DependencyGraph(out), "graph TD\n"))

	// The run round-trips through history.
	store, err := history.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.RecordRun(ctx, out))
	runs, err := store.ListRuns(ctx, "https://acme.test/", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, out.RunID, runs[0].RunID)
}

// TestPipeline_E2E_RemoteAgent swaps the built-in visibility analyzer for
// the same analyzer served over HTTP and verifies the run is unchanged.
func TestPipeline_E2E_RemoteAgent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ts := httptest.NewServer(remote.NewServer(agent.NewVisibilityAgent(), "e2e").Handler())
	defer ts.Close()

	remoteVis, err := remote.Dial(ctx, ts.URL)
	require.NoError(t, err)

	units := loadFixture(t)
	opts := coordinator.Options{StartDate: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)}

	local, err := coordinator.Coordinate(ctx, coordinator.Request{
		Units:    units,
		Agents:   agent.NewRegistry().SpawnAll(),
		Business: acmeBusiness,
		Options:  opts,
	})
	require.NoError(t, err)

	agents := agent.NewRegistry().SpawnAll()
	for i, ag := range agents {
		if ag.Name() == remoteVis.Name() {
			agents[i] = remoteVis
		}
	}

	mixed, err := coordinator.Coordinate(ctx, coordinator.Request{
		Units:    units,
		Agents:   agents,
		Business: acmeBusiness,
		Options:  opts,
	})
	require.NoError(t, err)

	assert.Empty(t, mixed.Summary.Errors)
	assert.Equal(t, local.Summary.TotalRecommendations, mixed.Summary.TotalRecommendations)
	assert.Equal(t, local.Summary.PhaseCount, mixed.Summary.PhaseCount)

	ids := func(out *coordinator.CoordinatedOutput) []string {
		var got []string
		for _, p := range out.Plan {
			for _, task := range p.Tasks {
				got = append(got, task.ID)
			}
		}
		return got
	}
	assert.Equal(t, ids(local), ids(mixed))
}
