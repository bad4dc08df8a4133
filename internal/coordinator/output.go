package coordinator

import (
	"time"

	"github.com/optiserve/geocoord/internal/geo"
)

// AgentCall pairs one (unit, agent) dispatch with its collected result.
type AgentCall struct {
	Unit   string          `json:"unit"`
	Agent  string          `json:"agent"`
	Result geo.AgentResult `json:"result"`
}

// CallError records a failed or degraded agent call for diagnostics.
type CallError struct {
	Unit    string `json:"unit"`
	Agent   string `json:"agent"`
	Message string `json:"message"`
}

// OrchestrationResult is the complete fan-out outcome: one AgentCall per
// dispatched (unit, agent) pair, stable-sorted by (unit, agent).
type OrchestrationResult struct {
	Calls  []AgentCall `json:"calls"`
	Errors []CallError `json:"errors,omitempty"`
}

// CandidateScore is one conflict candidate with its resolution score.
type CandidateScore struct {
	ID          string  `json:"id"`
	SourceAgent string  `json:"sourceAgent"`
	Score       float64 `json:"score"`
}

// ConflictRecord is the audit trail for one resolved conflict. It references
// recommendations by ID and does not own them.
type ConflictRecord struct {
	Subject    geo.Subject        `json:"subject"`
	Type       string             `json:"type"`
	Candidates []CandidateScore   `json:"candidates"`
	Chosen     geo.Recommendation `json:"chosen"`
	Reasoning  string             `json:"reasoning"`
	Discarded  []CandidateScore   `json:"discarded"`
}

// Conflict types, named after the situations the resolver distinguishes.
const (
	ConflictContradictory = "contradictory_recommendations"
	ConflictDuplicate     = "duplicate_recommendation"
)

// ImplementationTask is the schedulable form of a resolved recommendation.
type ImplementationTask struct {
	ID             string             `json:"id"`
	Recommendation geo.Recommendation `json:"recommendation"`
	EstimatedHours float64            `json:"estimatedHours"`
	PriorityScore  float64            `json:"priorityScore"`
	Dependencies   []string           `json:"dependencies,omitempty"`
}

// BlockedTask is a task excluded from phases because its dependencies can
// never be satisfied (missing fix type or dependency cycle).
type BlockedTask struct {
	Task   ImplementationTask `json:"task"`
	Reason string             `json:"reason"`
}

// Phase is an ordered batch of tasks. A task in phase k depends only on
// tasks in phases strictly before k.
type Phase struct {
	Number     int                  `json:"number"`
	Name       string               `json:"name"`
	Tasks      []ImplementationTask `json:"tasks"`
	TotalHours float64              `json:"totalHours"`

	// IndependentOfPrevious is true when no task in this phase depends on
	// a task in the immediately preceding phase, making the pair eligible
	// for parallel scheduling.
	IndependentOfPrevious bool `json:"independentOfPrevious,omitempty"`
}

// PhaseSchedule places one phase on the calendar. Days are offsets from the
// timeline start.
type PhaseSchedule struct {
	Phase                int       `json:"phase"`
	StartDay             int       `json:"startDay"`
	DurationDays         int       `json:"durationDays"`
	EndDay               int       `json:"endDay"`
	StartDate            time.Time `json:"startDate"`
	EndDate              time.Time `json:"endDate"`
	ParallelWithPrevious bool      `json:"parallelWithPrevious,omitempty"`
}

// Milestone marks a significant completion point in the schedule.
type Milestone struct {
	Name  string    `json:"name"`
	Phase int       `json:"phase"`
	Day   int       `json:"day"`
	Date  time.Time `json:"date"`
}

// Timeline is the calendar view of the plan.
type Timeline struct {
	Schedules      []PhaseSchedule `json:"schedules"`
	TotalDays      int             `json:"totalDays"`
	CompletionDate time.Time       `json:"completionDate"`
	Milestones     []Milestone     `json:"milestones,omitempty"`

	// CriticalPath lists the phases whose slip delays completion.
	CriticalPath []string `json:"criticalPath"`
}

// ResourceEstimate aggregates the effort the plan requires.
type ResourceEstimate struct {
	TotalHours      float64                  `json:"totalHours"`
	HoursByCategory map[geo.Category]float64 `json:"hoursByCategory,omitempty"`
	Roles           []string                 `json:"roles,omitempty"`
}

// ExecutionSummary condenses what the run did and how degraded it was.
type ExecutionSummary struct {
	UnitsAnalyzed        int           `json:"unitsAnalyzed"`
	AgentsRun            int           `json:"agentsRun"`
	TotalRecommendations int           `json:"totalRecommendations"`
	ConflictsResolved    int           `json:"conflictsResolved"`
	PhaseCount           int           `json:"phaseCount"`
	BlockedTasks         int           `json:"blockedTasks"`
	OverallConfidence    float64       `json:"overallConfidence"`
	Errors               []string      `json:"errors,omitempty"`
	Warnings             []string      `json:"warnings,omitempty"`
	Duration             time.Duration `json:"duration"`
}

// CoordinatedOutput is the aggregate returned to the caller. Built once per
// run and never mutated afterwards; callers always receive one, even when
// every agent call failed.
type CoordinatedOutput struct {
	RunID                 string                              `json:"runId"`
	Site                  string                              `json:"site,omitempty"`
	Summary               ExecutionSummary                    `json:"summary"`
	MergedRecommendations map[geo.Category][]geo.Recommendation `json:"mergedRecommendations"`
	ResolvedConflicts     []ConflictRecord                    `json:"resolvedConflicts,omitempty"`
	Plan                  []Phase                             `json:"plan"`
	Blocked               []BlockedTask                       `json:"blocked,omitempty"`
	Timeline              Timeline                            `json:"timeline"`
	Resources             ResourceEstimate                    `json:"resources"`
	ExpectedOutcomes      map[geo.Dimension]float64           `json:"expectedOutcomes,omitempty"`
	MonitoringMetrics     []string                            `json:"monitoringMetrics,omitempty"`
	GeneratedAt           time.Time                           `json:"generatedAt"`
}
