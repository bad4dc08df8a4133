package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiserve/geocoord/internal/agent"
	"github.com/optiserve/geocoord/internal/geo"
)

func siteRequest() Request {
	titleSubj := geo.Subject{Page: "/", Element: "title", Category: geo.CategoryVisibility}
	formSubj := geo.Subject{Page: "/", Element: "contact-form", Category: geo.CategoryActionability}

	return Request{
		Units: []geo.UnitOfWork{unit("https://acme.test/")},
		Agents: []agent.DomainAgent{
			&stubAgent{name: "alpha", domain: geo.CategoryVisibility, result: okResult(0.9, geo.Recommendation{
				Category: geo.CategoryVisibility, Subject: titleSubj,
				Action: "write a descriptive title", FixType: "write-title-tag",
				Priority: geo.PriorityHigh, Effort: geo.EffortLow,
				EstimatedImpact: map[geo.Dimension]float64{geo.DimVisibility: 0.5},
			})},
			&stubAgent{name: "beta", domain: geo.CategoryAccuracy, result: okResult(0.5, geo.Recommendation{
				Category: geo.CategoryVisibility, Subject: titleSubj,
				Action: "rewrite the title with the business name", FixType: "rewrite-title",
				Priority: geo.PriorityHigh, Effort: geo.EffortLow,
				EstimatedImpact: map[geo.Dimension]float64{geo.DimAccuracy: 0.3},
			})},
			&stubAgent{name: "gamma", domain: geo.CategoryActionability, result: okResult(0.5, geo.Recommendation{
				Category: geo.CategoryActionability, Subject: formSubj,
				Action: "point the contact form at a real handler", FixType: "set-form-action",
				Priority: geo.PriorityMedium, Effort: geo.EffortMedium,
				EstimatedImpact: map[geo.Dimension]float64{geo.DimActionability: 0.6},
			})},
		},
	}
}

func TestCoordinateValidation(t *testing.T) {
	_, err := Coordinate(context.Background(), Request{Agents: []agent.DomainAgent{&stubAgent{name: "a"}}})
	assert.ErrorIs(t, err, ErrNoUnits)

	_, err = Coordinate(context.Background(), Request{Units: []geo.UnitOfWork{unit("https://a.test/")}})
	assert.ErrorIs(t, err, ErrNoAgents)
}

func TestCoordinateEndToEnd(t *testing.T) {
	out, err := Coordinate(context.Background(), siteRequest())
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, "https://acme.test/", out.Site)
	assert.False(t, out.GeneratedAt.IsZero())

	// The title conflict collapses three raw recommendations to two.
	s := out.Summary
	assert.Equal(t, 1, s.UnitsAnalyzed)
	assert.Equal(t, 3, s.AgentsRun)
	assert.Equal(t, 2, s.TotalRecommendations)
	assert.Equal(t, 1, s.ConflictsResolved)
	assert.Zero(t, s.BlockedTasks)
	assert.Empty(t, s.Errors)

	// Mean usable confidence minus the per-conflict discount.
	assert.InDelta(t, (0.9+0.5+0.5)/3-0.05, s.OverallConfidence, 1e-9)

	require.Len(t, out.ResolvedConflicts, 1)
	assert.Equal(t, "alpha", out.ResolvedConflicts[0].Chosen.SourceAgent)

	assert.Len(t, out.MergedRecommendations[geo.CategoryVisibility], 1)
	assert.Len(t, out.MergedRecommendations[geo.CategoryActionability], 1)

	require.NotEmpty(t, out.Plan)
	assert.Equal(t, len(out.Plan), len(out.Timeline.Schedules))
	assert.Equal(t, len(out.Plan), s.PhaseCount)

	assert.InDelta(t, 0.5, out.ExpectedOutcomes[geo.DimVisibility], 1e-9)
	assert.InDelta(t, 0.6, out.ExpectedOutcomes[geo.DimActionability], 1e-9)

	assert.Equal(t, []string{"SEO Specialist", "Technical Developer"}, out.Resources.Roles)
	assert.Equal(t, 16.0, out.Resources.TotalHours)

	assert.Equal(t, []string{
		"agent_task_completion_rate",
		"answer_engine_citations",
		"form_submission_rate",
		"rich_result_coverage",
	}, out.MonitoringMetrics)
}

func TestCoordinateIsIdempotentOverIdenticalInput(t *testing.T) {
	first, err := Coordinate(context.Background(), siteRequest())
	require.NoError(t, err)
	second, err := Coordinate(context.Background(), siteRequest())
	require.NoError(t, err)

	ids := func(out *CoordinatedOutput) []string {
		var got []string
		for _, p := range out.Plan {
			for _, task := range p.Tasks {
				got = append(got, task.ID)
			}
		}
		return got
	}

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, first.ResolvedConflicts[0].Chosen.ID, second.ResolvedConflicts[0].Chosen.ID)
	assert.Equal(t, first.Timeline.TotalDays, second.Timeline.TotalDays)
}

func TestCoordinatePlanHasNoForwardDependencies(t *testing.T) {
	req := siteRequest()
	req.Agents = append(req.Agents, &stubAgent{name: "delta", domain: geo.CategoryActionability,
		result: okResult(0.8, geo.Recommendation{
			Category: geo.CategoryActionability,
			Subject:  geo.Subject{Page: "/", Element: "form-api", Category: geo.CategoryActionability},
			Action:   "expose the form as an API", FixType: "expose-form-api",
			Priority: geo.PriorityHigh, Effort: geo.EffortHigh,
			EstimatedImpact: map[geo.Dimension]float64{geo.DimActionability: 0.8},
			Requires:        []string{"set-form-action"},
		})},
	)

	out, err := Coordinate(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, out.Blocked)
	assertNoForwardDeps(t, out.Plan)
}

func TestCoordinateSurvivesTotalFailure(t *testing.T) {
	req := Request{
		Units: []geo.UnitOfWork{unit("https://acme.test/")},
		Agents: []agent.DomainAgent{
			&stubAgent{name: "bad", domain: geo.CategoryVisibility, err: errors.New("down")},
			&stubAgent{name: "worse", domain: geo.CategoryAccuracy, panics: true},
		},
	}

	out, err := Coordinate(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Zero(t, out.Summary.TotalRecommendations)
	assert.Zero(t, out.Summary.OverallConfidence)
	assert.Empty(t, out.Plan)
	assert.Contains(t, out.Summary.Errors, "all agent calls failed; output contains no recommendations")
}

func TestCoordinateReportsBlockedTasks(t *testing.T) {
	req := Request{
		Units: []geo.UnitOfWork{unit("https://acme.test/")},
		Agents: []agent.DomainAgent{
			&stubAgent{name: "gamma", domain: geo.CategoryActionability, result: okResult(0.8, geo.Recommendation{
				Category: geo.CategoryActionability,
				Subject:  geo.Subject{Page: "/", Element: "form-api", Category: geo.CategoryActionability},
				Action:   "expose the form as an API", FixType: "expose-form-api",
				Priority: geo.PriorityHigh, Effort: geo.EffortHigh,
				EstimatedImpact: map[geo.Dimension]float64{geo.DimActionability: 0.8},
				Requires:        []string{"set-form-action"},
			})},
		},
	}

	out, err := Coordinate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, out.Blocked, 1)
	assert.Equal(t, 1, out.Summary.BlockedTasks)
	require.NotEmpty(t, out.Summary.Warnings)
	assert.Contains(t, out.Summary.Warnings[len(out.Summary.Warnings)-1], "blocked")
}
