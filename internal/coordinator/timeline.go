package coordinator

import (
	"fmt"
	"math"
	"time"
)

// buildTimeline converts ordered phases into a calendar schedule. Phases
// run sequentially; when ParallelizeIndependent is set, a phase marked
// independent of its predecessor starts alongside it and the schedule takes
// the longer of the two. A phase joins a parallel group only when none of
// its tasks depend on a task placed in a phase already in the group, so a
// dependent never starts before its provider finishes. The critical path is
// the chain of phases whose slip delays completion: every sequential phase,
// plus the longest phase of each parallel group.
func buildTimeline(phases []Phase, opts Options) Timeline {
	start := opts.StartDate
	if start.IsZero() {
		start = time.Now().UTC().Truncate(24 * time.Hour)
	}

	tl := Timeline{CompletionDate: start}
	if len(phases) == 0 {
		tl.CriticalPath = []string{}
		return tl
	}

	day := func(offset int) time.Time { return start.AddDate(0, 0, offset) }

	phaseIndexOf := make(map[string]int)
	for i, ph := range phases {
		for _, t := range ph.Tasks {
			phaseIndexOf[t.ID] = i
		}
	}

	// groupEnd is the completion day of the previous parallel group; a
	// sequential phase starts there. cursorStart is the start day shared
	// by members of the current group.
	groupEnd := 0
	cursorStart := 0
	groupStart := 0    // index of the current group's first phase
	groupCritical := 0 // index into tl.Schedules of the group's longest phase

	var critical []string

	for i, phase := range phases {
		duration := phaseDurationDays(phase, opts)

		parallel := opts.ParallelizeIndependent && i > 0 && phase.IndependentOfPrevious &&
			!dependsOnGroup(phase, groupStart, i, phaseIndexOf)
		if !parallel {
			// Close out the previous group before starting a new one.
			if i > 0 {
				critical = append(critical, phases[groupCritical].Name)
			}
			cursorStart = groupEnd
			groupStart = i
			groupCritical = i
		}

		sched := PhaseSchedule{
			Phase:                phase.Number,
			StartDay:             cursorStart,
			DurationDays:         duration,
			EndDay:               cursorStart + duration,
			StartDate:            day(cursorStart),
			EndDate:              day(cursorStart + duration),
			ParallelWithPrevious: parallel,
		}
		tl.Schedules = append(tl.Schedules, sched)

		if sched.EndDay > groupEnd {
			groupEnd = sched.EndDay
		}
		if parallel && duration > tl.Schedules[groupCritical].DurationDays {
			groupCritical = i
		}

		if duration >= opts.MilestoneThresholdDays {
			tl.Milestones = append(tl.Milestones, Milestone{
				Name:  fmt.Sprintf("%s complete", phase.Name),
				Phase: phase.Number,
				Day:   sched.EndDay,
				Date:  day(sched.EndDay),
			})
		}
	}
	critical = append(critical, phases[groupCritical].Name)

	tl.TotalDays = groupEnd
	tl.CompletionDate = day(groupEnd)
	tl.CriticalPath = critical
	return tl
}

// dependsOnGroup reports whether any task in the phase depends on a task
// placed in phases[from:upto].
func dependsOnGroup(phase Phase, from, upto int, phaseIndexOf map[string]int) bool {
	for _, t := range phase.Tasks {
		for _, dep := range t.Dependencies {
			if p, ok := phaseIndexOf[dep]; ok && p >= from && p < upto {
				return true
			}
		}
	}
	return false
}

// phaseDurationDays is ceil(total hours / hours per day), at least one day
// for any non-empty phase.
func phaseDurationDays(phase Phase, opts Options) int {
	if phase.TotalHours <= 0 {
		return 0
	}
	d := int(math.Ceil(phase.TotalHours / opts.HoursPerDay))
	if d < 1 {
		d = 1
	}
	return d
}
