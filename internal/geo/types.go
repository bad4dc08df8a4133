package geo

import (
	"strings"
	"time"
)

// --- Enums ---

// Category classifies a recommendation by optimization dimension.
type Category string

const (
	CategoryVisibility    Category = "visibility"
	CategoryAccuracy      Category = "accuracy"
	CategoryActionability Category = "actionability"
	CategoryTechnical     Category = "technical"
	CategoryContent       Category = "content"
)

// Categories lists all known categories in canonical order.
var Categories = []Category{
	CategoryVisibility,
	CategoryAccuracy,
	CategoryActionability,
	CategoryTechnical,
	CategoryContent,
}

// Dimension is a scored optimization axis. Agents report estimated impact
// per dimension; the prioritizer weighs them against effort.
type Dimension string

const (
	DimVisibility    Dimension = "visibility"
	DimAccuracy      Dimension = "accuracy"
	DimActionability Dimension = "actionability"
)

// Dimensions lists all score dimensions in canonical order.
var Dimensions = []Dimension{DimVisibility, DimAccuracy, DimActionability}

// Priority is an agent-declared urgency hint for a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Effort estimates the implementation cost of a recommendation.
type Effort string

const (
	EffortLow      Effort = "low"
	EffortMedium   Effort = "medium"
	EffortHigh     Effort = "high"
	EffortVeryHigh Effort = "very_high"
)

// ResultStatus is the outcome of a single agent analysis call.
type ResultStatus string

const (
	// StatusSuccess means the agent produced a complete result.
	StatusSuccess ResultStatus = "success"

	// StatusWarning means the agent produced a partial result; the
	// Warnings list explains what was skipped.
	StatusWarning ResultStatus = "warning"

	// StatusError means the agent produced no usable output.
	StatusError ResultStatus = "error"
)

// Usable reports whether a result's recommendations should be merged.
func (s ResultStatus) Usable() bool {
	return s == StatusSuccess || s == StatusWarning
}

// --- Core Types ---

// Subject identifies the page element a recommendation targets. Two
// recommendations with equal subjects address the same thing and are
// candidates for conflict resolution.
type Subject struct {
	Page     string   `json:"page"`
	Element  string   `json:"element"`
	Category Category `json:"category"`
}

// Key returns the canonical grouping key for conflict detection.
func (s Subject) Key() string {
	return s.Page + "#" + s.Element + "#" + string(s.Category)
}

// Valid reports whether the subject carries enough information to be
// grouped. Invalid subjects are dropped by the merger with a diagnostic.
func (s Subject) Valid() bool {
	return s.Page != "" && s.Element != "" && s.Category != ""
}

// Recommendation is a single proposed change to a page element. Created by
// an agent; the merger attaches provenance and a stable ID; the conflict
// resolver may supersede it with a copy carrying ResolvedFrom.
type Recommendation struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Subject  Subject  `json:"subject"`

	// Action is the human-readable description of the change.
	Action string `json:"action"`

	// FixType names the kind of change (e.g. "add-organization-schema").
	// It feeds the stable ID and dependency resolution.
	FixType string `json:"fixType"`

	Priority Priority `json:"priority"`
	Effort   Effort   `json:"effort"`

	// EstimatedImpact maps score dimensions to expected deltas in [0,1].
	EstimatedImpact map[Dimension]float64 `json:"estimatedImpact,omitempty"`

	// Requires lists fix types that must be implemented before this one.
	Requires []string `json:"requires,omitempty"`

	// SourceAgent and SourceDomain are provenance attached by the merger.
	SourceAgent  string   `json:"sourceAgent,omitempty"`
	SourceDomain Category `json:"sourceDomain,omitempty"`

	Confidence float64 `json:"confidence"`

	// ResolvedFrom holds the IDs of recommendations this one superseded
	// during conflict resolution. Audit only.
	ResolvedFrom []string `json:"resolvedFrom,omitempty"`
}

// AgentResult is the typed output of one Analyze call. Produced once per
// (agent, unit) pair and never mutated afterwards.
type AgentResult struct {
	AgentName       string           `json:"agentName"`
	AgentDomain     Category         `json:"agentDomain"`
	Status          ResultStatus     `json:"status"`
	Confidence      float64          `json:"confidence"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Errors          []string         `json:"errors,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
	Duration        time.Duration    `json:"duration"`
}

// ErrorResult builds the degraded AgentResult recorded when an agent call
// fails outright (error return, panic, or timeout).
func ErrorResult(name string, domain Category, msg string, elapsed time.Duration) AgentResult {
	return AgentResult{
		AgentName:   name,
		AgentDomain: domain,
		Status:      StatusError,
		Errors:      []string{msg},
		Duration:    elapsed,
	}
}

// --- Crawled Input ---

// Heading is one entry of a page's heading outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// SchemaBlock is a structured-data block found on a page.
type SchemaBlock struct {
	// Type is the schema.org type (e.g. "Organization", "FAQPage").
	Type string `json:"type"`

	// Format is the embedding format: json-ld, microdata or rdfa.
	Format string `json:"format"`

	// Raw is the block's serialized content.
	Raw string `json:"raw,omitempty"`
}

// FormField describes one input of a discovered form.
type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Label    string `json:"label,omitempty"`
	Required bool   `json:"required"`
}

// Form is an interactive form discovered on a page.
type Form struct {
	Action string      `json:"action"`
	Method string      `json:"method"`
	Fields []FormField `json:"fields,omitempty"`
}

// APIEndpoint is a machine-actionable endpoint discovered during crawling.
type APIEndpoint struct {
	URL            string `json:"url"`
	Method         string `json:"method"`
	ResponseFormat string `json:"responseFormat,omitempty"`
	AuthRequired   bool   `json:"authRequired"`
}

// UnitOfWork is one page's crawled data, the smallest schedulable input to
// an agent call. Immutable once built; agents must not modify it.
type UnitOfWork struct {
	URL             string        `json:"url"`
	Title           string        `json:"title,omitempty"`
	MetaDescription string        `json:"metaDescription,omitempty"`
	Headings        []Heading     `json:"headings,omitempty"`
	StructuredData  []SchemaBlock `json:"structuredData,omitempty"`
	Forms           []Form        `json:"forms,omitempty"`
	APIEndpoints    []APIEndpoint `json:"apiEndpoints,omitempty"`

	// Text is the extracted visible text, used for contact / NAP checks.
	Text string `json:"text,omitempty"`

	StatusCode int           `json:"statusCode,omitempty"`
	LoadTime   time.Duration `json:"loadTime,omitempty"`
	FetchedAt  time.Time     `json:"fetchedAt,omitempty"`
}

// BusinessContext is the shared ground truth for a coordination run:
// canonical business identity against which crawled pages are checked.
type BusinessContext struct {
	CanonicalName string            `json:"canonicalName,omitempty" yaml:"canonicalName"`
	Phone         string            `json:"phone,omitempty" yaml:"phone"`
	Email         string            `json:"email,omitempty" yaml:"email"`
	Address       string            `json:"address,omitempty" yaml:"address"`
	Hours         map[string]string `json:"hours,omitempty" yaml:"hours"`
	SocialLinks   map[string]string `json:"socialLinks,omitempty" yaml:"socialLinks"`

	// ExternalSources maps source names (e.g. "google-business") to the
	// values they report, for cross-checking accuracy.
	ExternalSources map[string]string `json:"externalSources,omitempty" yaml:"externalSources"`
}

// ContainsName reports whether text mentions the canonical business name,
// case-insensitively. Empty canonical names never match.
func (b BusinessContext) ContainsName(text string) bool {
	if b.CanonicalName == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(b.CanonicalName))
}
