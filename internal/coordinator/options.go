package coordinator

import (
	"time"

	"github.com/optiserve/geocoord/internal/geo"
)

// Defaults applied by Options.withDefaults.
const (
	DefaultMaxConcurrency     = 10
	DefaultPerCallTimeout     = 30 * time.Second
	DefaultOverallTimeout     = 5 * time.Minute
	DefaultPhaseCapacityHours = 60
	DefaultHoursPerDay        = 6
	DefaultMilestoneDays      = 5
)

// Options configures one coordination run. All weight tables are static and
// supplied up front so resolution and prioritization stay deterministic and
// auditable; nothing is read from ambient globals.
type Options struct {
	// MaxConcurrency bounds how many agent calls run simultaneously.
	MaxConcurrency int `yaml:"maxConcurrency"`

	// PerCallTimeout bounds one Analyze call; expiry yields a degraded
	// error result, not a run failure. Configured via the duration
	// strings in the config layer.
	PerCallTimeout time.Duration `yaml:"-"`

	// OverallTimeout bounds the whole orchestration stage.
	OverallTimeout time.Duration `yaml:"-"`

	// ImpactWeights scales conflict-resolution scores by category.
	ImpactWeights map[geo.Category]float64 `yaml:"impactWeights"`

	// PriorityWeights scales conflict-resolution scores by priority hint.
	PriorityWeights map[geo.Priority]float64 `yaml:"priorityWeights"`

	// DimWeights weighs score dimensions in the priority-score ratio.
	DimWeights map[geo.Dimension]float64 `yaml:"dimWeights"`

	// EffortHours converts declared effort levels to estimated hours.
	EffortHours map[geo.Effort]float64 `yaml:"effortHours"`

	// PhaseCapacityHours caps the total estimated hours per phase;
	// overflow spills to the next phase in priority order.
	PhaseCapacityHours float64 `yaml:"phaseCapacityHours"`

	// HoursPerDay converts phase effort into calendar days.
	HoursPerDay float64 `yaml:"hoursPerDay"`

	// MilestoneThresholdDays marks phases at least this long with a
	// milestone.
	MilestoneThresholdDays int `yaml:"milestoneThresholdDays"`

	// ParallelizeIndependent lets a phase with no dependency on its
	// predecessor run alongside it.
	ParallelizeIndependent bool `yaml:"parallelizeIndependent"`

	// StartDate anchors the timeline. Zero means "today" (UTC midnight).
	StartDate time.Time `yaml:"startDate"`
}

// withDefaults fills zero-valued fields with defaults. Weight tables are
// completed key-by-key so a partial table only overrides what it names.
func (o Options) withDefaults() Options {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = DefaultMaxConcurrency
	}
	if o.PerCallTimeout <= 0 {
		o.PerCallTimeout = DefaultPerCallTimeout
	}
	if o.OverallTimeout <= 0 {
		o.OverallTimeout = DefaultOverallTimeout
	}
	if o.PhaseCapacityHours <= 0 {
		o.PhaseCapacityHours = DefaultPhaseCapacityHours
	}
	if o.HoursPerDay <= 0 {
		o.HoursPerDay = DefaultHoursPerDay
	}
	if o.MilestoneThresholdDays <= 0 {
		o.MilestoneThresholdDays = DefaultMilestoneDays
	}

	o.ImpactWeights = fillTable(o.ImpactWeights, map[geo.Category]float64{
		geo.CategoryVisibility:    1.0,
		geo.CategoryAccuracy:      1.0,
		geo.CategoryActionability: 1.0,
		geo.CategoryTechnical:     0.8,
		geo.CategoryContent:       0.7,
	})
	o.PriorityWeights = fillTable(o.PriorityWeights, map[geo.Priority]float64{
		geo.PriorityHigh:   3,
		geo.PriorityMedium: 2,
		geo.PriorityLow:    1,
	})
	o.DimWeights = fillTable(o.DimWeights, map[geo.Dimension]float64{
		geo.DimVisibility:    1,
		geo.DimAccuracy:      1,
		geo.DimActionability: 1,
	})
	o.EffortHours = fillTable(o.EffortHours, map[geo.Effort]float64{
		geo.EffortLow:      4,
		geo.EffortMedium:   12,
		geo.EffortHigh:     32,
		geo.EffortVeryHigh: 80,
	})

	return o
}

// fillTable copies defaults for keys the user table does not set.
func fillTable[K comparable](user, defaults map[K]float64) map[K]float64 {
	out := make(map[K]float64, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range user {
		out[k] = v
	}
	return out
}
