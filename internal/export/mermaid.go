package export

import (
	"fmt"
	"strings"

	"github.com/optiserve/geocoord/internal/coordinator"
)

// GanttChart renders the timeline as a Mermaid gantt diagram: one section
// per phase, one bar per task, with parallel phases sharing a start date.
func GanttChart(out *coordinator.CoordinatedOutput) string {
	var sb strings.Builder
	sb.WriteString("gantt\n")
	sb.WriteString("  dateFormat YYYY-MM-DD\n")
	sb.WriteString(fmt.Sprintf("  title Implementation plan for %s\n", out.Site))

	scheduleOf := make(map[int]coordinator.PhaseSchedule, len(out.Timeline.Schedules))
	for _, s := range out.Timeline.Schedules {
		scheduleOf[s.Phase] = s
	}

	for _, phase := range out.Plan {
		sched, ok := scheduleOf[phase.Number]
		if !ok {
			continue
		}

		sb.WriteString(fmt.Sprintf("  section %s\n", phase.Name))
		for _, task := range phase.Tasks {
			days := int(task.EstimatedHours)/24 + 1
			sb.WriteString(fmt.Sprintf("    %s :%s, %s, %dd\n",
				escapeLabel(task.Recommendation.Action),
				task.ID,
				sched.StartDate.Format("2006-01-02"),
				days))
		}
	}

	return sb.String()
}

// DependencyGraph renders the plan's tasks and their dependencies as a
// Mermaid graph TD, with one subgraph per phase.
func DependencyGraph(out *coordinator.CoordinatedOutput) string {
	// Stable alphanumeric node IDs in plan order.
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(taskID string) string {
		if id, ok := nodeIDs[taskID]; ok {
			return id
		}
		id := fmt.Sprintf("T%d", nextID)
		nextID++
		nodeIDs[taskID] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, phase := range out.Plan {
		sb.WriteString(fmt.Sprintf("  subgraph P%d[\"%s\"]\n", phase.Number, phase.Name))
		for _, task := range phase.Tasks {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n",
				getID(task.ID), escapeLabel(task.Recommendation.Action)))
		}
		sb.WriteString("  end\n")
	}

	for _, phase := range out.Plan {
		for _, task := range phase.Tasks {
			for _, dep := range task.Dependencies {
				if _, ok := nodeIDs[dep]; !ok {
					continue
				}
				sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID(dep), getID(task.ID)))
			}
		}
	}

	return sb.String()
}

// escapeLabel keeps task actions from breaking Mermaid node syntax.
func escapeLabel(label string) string {
	label = strings.ReplaceAll(label, `"`, "'")
	if len(label) > 60 {
		label = label[:57] + "..."
	}
	return label
}
