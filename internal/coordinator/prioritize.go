package coordinator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/optiserve/geocoord/internal/geo"
)

// PlanResult is the phased implementation plan plus scheduling diagnostics.
type PlanResult struct {
	Phases  []Phase
	Blocked []BlockedTask
}

// prioritize converts every resolved recommendation into a task, scores it,
// and assigns tasks to phases. Placement is greedy in descending priority
// order: a task lands in the earliest phase that is strictly after all of
// its dependencies and still has hour capacity. Tasks whose dependencies
// can never be satisfied are reported as blocked, never fatal.
func prioritize(res ResolveResult, opts Options) PlanResult {
	tasks := buildTasks(res.Resolved, opts)
	blocked := resolveDependencies(tasks)

	// Descending by priority score; stable ID breaks ties so repeated runs
	// produce identical ordering.
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].PriorityScore != tasks[j].PriorityScore {
			return tasks[i].PriorityScore > tasks[j].PriorityScore
		}
		return tasks[i].ID < tasks[j].ID
	})

	return assignPhases(tasks, blocked, opts)
}

// buildTasks derives one ImplementationTask per resolved recommendation.
// priority_score is an impact-per-effort ratio.
func buildTasks(recs []geo.Recommendation, opts Options) []ImplementationTask {
	tasks := make([]ImplementationTask, 0, len(recs))
	for _, rec := range recs {
		hours, ok := opts.EffortHours[rec.Effort]
		if !ok {
			hours = opts.EffortHours[geo.EffortMedium]
		}

		impact := 0.0
		for dim, delta := range rec.EstimatedImpact {
			impact += delta * opts.DimWeights[dim]
		}

		denom := hours
		if denom < 1 {
			denom = 1
		}

		tasks = append(tasks, ImplementationTask{
			ID:             rec.ID,
			Recommendation: rec,
			EstimatedHours: hours,
			PriorityScore:  impact / denom,
		})
	}
	return tasks
}

// resolveDependencies turns each task's required fix types into concrete
// task IDs. A requirement naming a fix type on the same page binds to those
// tasks; otherwise it binds to any task with that fix type. Requirements
// with no provider anywhere mark the task blocked.
func resolveDependencies(tasks []ImplementationTask) map[string]string {
	byFix := make(map[string][]int)
	for i, t := range tasks {
		byFix[t.Recommendation.FixType] = append(byFix[t.Recommendation.FixType], i)
	}

	blocked := make(map[string]string)

	for i := range tasks {
		t := &tasks[i]
		for _, req := range t.Recommendation.Requires {
			providers := byFix[req]

			var ids []string
			samePage := false
			for _, p := range providers {
				if tasks[p].ID == t.ID {
					continue
				}
				if tasks[p].Recommendation.Subject.Page == t.Recommendation.Subject.Page {
					samePage = true
				}
			}
			for _, p := range providers {
				if tasks[p].ID == t.ID {
					continue
				}
				if samePage && tasks[p].Recommendation.Subject.Page != t.Recommendation.Subject.Page {
					continue
				}
				ids = append(ids, tasks[p].ID)
			}

			if len(ids) == 0 {
				blocked[t.ID] = fmt.Sprintf("requires %q but no scheduled task provides it", req)
				continue
			}
			t.Dependencies = append(t.Dependencies, ids...)
		}
		sort.Strings(t.Dependencies)
	}

	return blocked
}

// assignPhases runs repeated greedy passes over the priority-ordered tasks.
// Each pass assigns every task whose dependencies already have a phase; a
// pass that assigns nothing means the remaining tasks form a cycle.
func assignPhases(tasks []ImplementationTask, preBlocked map[string]string, opts Options) PlanResult {
	phaseOf := make(map[string]int, len(tasks))
	phaseHours := make(map[int]float64)
	phaseTasks := make(map[int][]ImplementationTask)

	var blocked []BlockedTask
	pending := make([]ImplementationTask, 0, len(tasks))
	for _, t := range tasks {
		if reason, ok := preBlocked[t.ID]; ok {
			blocked = append(blocked, BlockedTask{Task: t, Reason: reason})
			continue
		}
		pending = append(pending, t)
	}

	for len(pending) > 0 {
		progressed := false
		var next []ImplementationTask

		for _, t := range pending {
			earliest, ready := earliestPhase(t, phaseOf)
			if !ready {
				next = append(next, t)
				continue
			}

			p := earliest
			for phaseHours[p] > 0 && phaseHours[p]+t.EstimatedHours > opts.PhaseCapacityHours {
				p++ // spill to the next phase, priority order preserved
			}

			phaseOf[t.ID] = p
			phaseHours[p] += t.EstimatedHours
			phaseTasks[p] = append(phaseTasks[p], t)
			progressed = true
		}

		if !progressed {
			for _, t := range next {
				blocked = append(blocked, BlockedTask{
					Task:   t,
					Reason: "unsatisfiable dependencies (cycle or blocked provider): " + strings.Join(t.Dependencies, ", "),
				})
			}
			break
		}
		pending = next
	}

	return PlanResult{
		Phases:  numberPhases(phaseTasks, phaseOf),
		Blocked: blocked,
	}
}

// earliestPhase returns the first phase strictly after every dependency.
// ready is false while any dependency is still unassigned.
func earliestPhase(t ImplementationTask, phaseOf map[string]int) (int, bool) {
	earliest := 1
	for _, dep := range t.Dependencies {
		p, ok := phaseOf[dep]
		if !ok {
			return 0, false
		}
		if p+1 > earliest {
			earliest = p + 1
		}
	}
	return earliest, true
}

// numberPhases converts the sparse phase map into a contiguous ordered
// slice and marks phases that are independent of their predecessor.
func numberPhases(phaseTasks map[int][]ImplementationTask, phaseOf map[string]int) []Phase {
	if len(phaseTasks) == 0 {
		return nil
	}

	nums := make([]int, 0, len(phaseTasks))
	for n := range phaseTasks {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	phases := make([]Phase, 0, len(nums))
	for i, n := range nums {
		tasks := phaseTasks[n]
		// Later assignment passes append just-unblocked tasks after earlier
		// spillovers, so restore priority order within the phase.
		sort.SliceStable(tasks, func(a, b int) bool {
			if tasks[a].PriorityScore != tasks[b].PriorityScore {
				return tasks[a].PriorityScore > tasks[b].PriorityScore
			}
			return tasks[a].ID < tasks[b].ID
		})

		total := 0.0
		for _, t := range tasks {
			total += t.EstimatedHours
		}

		independent := false
		if i > 0 {
			independent = !dependsOnPhase(tasks, nums[i-1], phaseOf)
		}

		phases = append(phases, Phase{
			Number:                i + 1,
			Name:                  fmt.Sprintf("Phase %d", i+1),
			Tasks:                 tasks,
			TotalHours:            total,
			IndependentOfPrevious: independent,
		})
	}
	return phases
}

// dependsOnPhase reports whether any task directly depends on a task placed
// in the given (pre-renumbering) phase.
func dependsOnPhase(tasks []ImplementationTask, phase int, phaseOf map[string]int) bool {
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if phaseOf[dep] == phase {
				return true
			}
		}
	}
	return false
}
