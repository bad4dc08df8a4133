// Package coordinator runs independent domain analyzers over crawled page
// data and turns their combined output into one conflict-free, phased,
// scheduled implementation plan.
//
// The pipeline is strict: orchestrate → merge → resolve → prioritize →
// timeline. Only the orchestration stage is concurrent; every downstream
// stage is a sequential, deterministic transformation of the collected
// results. The coordinator is a pure function of its inputs and options —
// every entity is created fresh per run and discarded with the output.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/optiserve/geocoord/internal/agent"
	"github.com/optiserve/geocoord/internal/geo"
)

// Validation errors returned by Coordinate for malformed requests. These
// are the only conditions under which the call itself fails; everything
// else degrades into diagnostics on the output.
var (
	ErrNoUnits  = errors.New("coordinate: no units of work supplied")
	ErrNoAgents = errors.New("coordinate: no agents configured")
)

// Request is the input boundary of a coordination run.
type Request struct {
	Units    []geo.UnitOfWork
	Agents   []agent.DomainAgent
	Business geo.BusinessContext
	Options  Options
}

// Coordinate executes one full coordination run and returns its structured
// output. Partial agent failures, conflicts without decisive winners, and
// unschedulable tasks are all absorbed into the output; even a run in which
// every agent call failed returns a CoordinatedOutput with a top-level
// diagnostic rather than an error.
func Coordinate(ctx context.Context, req Request) (*CoordinatedOutput, error) {
	if len(req.Units) == 0 {
		return nil, ErrNoUnits
	}
	if len(req.Agents) == 0 {
		return nil, ErrNoAgents
	}

	opts := req.Options.withDefaults()
	start := time.Now()

	orch := orchestrate(ctx, req.Units, req.Agents, req.Business, opts)
	merged := merge(orch)
	resolved := resolve(merged, opts)
	plan := prioritize(resolved, opts)
	timeline := buildTimeline(plan.Phases, opts)

	out := &CoordinatedOutput{
		RunID:                 uuid.NewString(),
		Site:                  req.Units[0].URL,
		MergedRecommendations: partition(resolved.Resolved),
		ResolvedConflicts:     resolved.Conflicts,
		Plan:                  plan.Phases,
		Blocked:               plan.Blocked,
		Timeline:              timeline,
		Resources:             estimateResources(plan.Phases),
		ExpectedOutcomes:      expectedOutcomes(plan.Phases),
		MonitoringMetrics:     monitoringMetrics(resolved.Resolved),
		GeneratedAt:           time.Now().UTC(),
	}

	out.Summary = buildSummary(req, orch, merged, resolved, plan, time.Since(start))

	log.Printf("coordinate: run %s finished: %d units, %d agents, %d recommendations, %d conflicts, %d phases",
		out.RunID, len(req.Units), len(req.Agents), out.Summary.TotalRecommendations,
		out.Summary.ConflictsResolved, out.Summary.PhaseCount)

	return out, nil
}

// buildSummary condenses the run, including every absorbed error.
func buildSummary(req Request, orch OrchestrationResult, merged MergeResult, resolved ResolveResult, plan PlanResult, elapsed time.Duration) ExecutionSummary {
	s := ExecutionSummary{
		UnitsAnalyzed:        len(req.Units),
		AgentsRun:            len(req.Agents),
		TotalRecommendations: len(resolved.Resolved),
		ConflictsResolved:    len(resolved.Conflicts),
		PhaseCount:           len(plan.Phases),
		BlockedTasks:         len(plan.Blocked),
		OverallConfidence:    overallConfidence(orch, resolved),
		Duration:             elapsed,
	}

	for _, e := range orch.Errors {
		s.Errors = append(s.Errors, fmt.Sprintf("%s/%s: %s", e.Agent, e.Unit, e.Message))
	}
	s.Warnings = append(s.Warnings, merged.Diagnostics...)
	s.Warnings = append(s.Warnings, resolved.Diagnostics...)
	for _, b := range plan.Blocked {
		s.Warnings = append(s.Warnings, fmt.Sprintf("task %s blocked: %s", b.Task.ID, b.Reason))
	}

	if totalFailure(orch) {
		s.Errors = append(s.Errors, "all agent calls failed; output contains no recommendations")
	}

	return s
}

// totalFailure reports whether every dispatched call came back as an error.
func totalFailure(orch OrchestrationResult) bool {
	if len(orch.Calls) == 0 {
		return false
	}
	for _, call := range orch.Calls {
		if call.Result.Status != geo.StatusError {
			return false
		}
	}
	return true
}

// overallConfidence averages usable agent confidences and discounts each
// resolved conflict, clamped to [0,1].
func overallConfidence(orch OrchestrationResult, resolved ResolveResult) float64 {
	sum, n := 0.0, 0
	for _, call := range orch.Calls {
		if call.Result.Status.Usable() {
			sum += call.Result.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}

	c := sum/float64(n) - 0.05*float64(len(resolved.Conflicts))
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// partition splits the resolved set by category, preserving order.
func partition(recs []geo.Recommendation) map[geo.Category][]geo.Recommendation {
	out := make(map[geo.Category][]geo.Recommendation)
	for _, rec := range recs {
		out[rec.Category] = append(out[rec.Category], rec)
	}
	return out
}

// categoryRoles maps categories to the roles their fixes typically need.
var categoryRoles = map[geo.Category]string{
	geo.CategoryVisibility:    "SEO Specialist",
	geo.CategoryAccuracy:      "Business Analyst",
	geo.CategoryActionability: "Technical Developer",
	geo.CategoryTechnical:     "Technical Developer",
	geo.CategoryContent:       "Content Creator",
}

// estimateResources totals the scheduled effort and infers the roles the
// plan needs from the categories it touches.
func estimateResources(phases []Phase) ResourceEstimate {
	est := ResourceEstimate{HoursByCategory: make(map[geo.Category]float64)}

	roles := make(map[string]bool)
	for _, phase := range phases {
		for _, t := range phase.Tasks {
			est.TotalHours += t.EstimatedHours
			est.HoursByCategory[t.Recommendation.Category] += t.EstimatedHours
			if role, ok := categoryRoles[t.Recommendation.Category]; ok {
				roles[role] = true
			}
		}
	}

	if len(roles) == 0 && est.TotalHours > 0 {
		roles["Web Developer"] = true
	}
	for role := range roles {
		est.Roles = append(est.Roles, role)
	}
	sort.Strings(est.Roles)
	return est
}

// expectedOutcomes sums the estimated impact deltas of every scheduled
// task per score dimension.
func expectedOutcomes(phases []Phase) map[geo.Dimension]float64 {
	out := make(map[geo.Dimension]float64)
	for _, phase := range phases {
		for _, t := range phase.Tasks {
			for dim, delta := range t.Recommendation.EstimatedImpact {
				out[dim] += delta
			}
		}
	}
	return out
}

// categoryMetrics names the metrics worth watching per category once its
// recommendations land.
var categoryMetrics = map[geo.Category][]string{
	geo.CategoryVisibility:    {"answer_engine_citations", "rich_result_coverage"},
	geo.CategoryAccuracy:      {"business_info_accuracy", "listing_consistency"},
	geo.CategoryActionability: {"agent_task_completion_rate", "form_submission_rate"},
	geo.CategoryTechnical:     {"endpoint_availability", "structured_response_rate"},
	geo.CategoryContent:       {"content_readability", "query_coverage"},
}

// monitoringMetrics derives a sorted, de-duplicated metric list from the
// categories present in the resolved set.
func monitoringMetrics(recs []geo.Recommendation) []string {
	seen := make(map[string]bool)
	for _, rec := range recs {
		for _, m := range categoryMetrics[rec.Category] {
			seen[m] = true
		}
	}

	metrics := make([]string, 0, len(seen))
	for m := range seen {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)
	return metrics
}
