package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/optiserve/geocoord/internal/geo"
)

// Compile-time check.
var _ DomainAgent = (*VisibilityAgent)(nil)

// VisibilityAgent checks how discoverable a page is for AI answer engines:
// structured data coverage, meta information, and heading structure.
type VisibilityAgent struct{}

// NewVisibilityAgent creates a VisibilityAgent.
func NewVisibilityAgent() *VisibilityAgent { return &VisibilityAgent{} }

func (a *VisibilityAgent) Name() string         { return string(RoleVisibility) }
func (a *VisibilityAgent) Domain() geo.Category { return geo.CategoryVisibility }

// Analyze inspects structured data, meta tags and the heading outline.
func (a *VisibilityAgent) Analyze(ctx context.Context, unit geo.UnitOfWork, bctx geo.BusinessContext) (geo.AgentResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return geo.AgentResult{}, err
	}

	res := geo.AgentResult{
		AgentName:   a.Name(),
		AgentDomain: a.Domain(),
		Status:      geo.StatusSuccess,
	}

	if unit.Title == "" && unit.Text == "" && len(unit.Headings) == 0 {
		res.Status = geo.StatusError
		res.Errors = append(res.Errors, fmt.Sprintf("no analyzable content for %s", unit.URL))
		res.Duration = time.Since(start)
		return res, nil
	}

	res.Recommendations = append(res.Recommendations, a.checkStructuredData(unit)...)
	res.Recommendations = append(res.Recommendations, a.checkMeta(unit)...)
	res.Recommendations = append(res.Recommendations, a.checkHeadings(unit)...)

	// Partial input degrades the result, per the agent contract.
	if unit.Text == "" {
		res.Status = geo.StatusWarning
		res.Warnings = append(res.Warnings, "extracted text missing; content checks skipped")
	}

	res.Confidence = visibilityConfidence(unit)
	res.Duration = time.Since(start)
	return res, nil
}

// checkStructuredData flags missing or incomplete schema.org coverage.
func (a *VisibilityAgent) checkStructuredData(unit geo.UnitOfWork) []geo.Recommendation {
	var recs []geo.Recommendation

	types := make(map[string]bool, len(unit.StructuredData))
	for _, block := range unit.StructuredData {
		types[strings.ToLower(block.Type)] = true
	}

	if !types["organization"] && !types["localbusiness"] {
		recs = append(recs, geo.Recommendation{
			Category: geo.CategoryVisibility,
			Subject:  geo.Subject{Page: unit.URL, Element: "structured-data", Category: geo.CategoryVisibility},
			Action:   "Add Organization JSON-LD markup so answer engines can attribute the page",
			FixType:  "add-organization-schema",
			Priority: geo.PriorityHigh,
			Effort:   geo.EffortLow,
			EstimatedImpact: map[geo.Dimension]float64{
				geo.DimVisibility: 0.30,
				geo.DimAccuracy:   0.10,
			},
			Confidence: 0.9,
		})
	}

	if hasQuestionHeadings(unit.Headings) && !types["faqpage"] {
		recs = append(recs, geo.Recommendation{
			Category: geo.CategoryVisibility,
			Subject:  geo.Subject{Page: unit.URL, Element: "faq-markup", Category: geo.CategoryVisibility},
			Action:   "Mark up question headings as FAQPage structured data",
			FixType:  "add-faq-schema",
			Priority: geo.PriorityMedium,
			Effort:   geo.EffortMedium,
			Requires: []string{"add-organization-schema"},
			EstimatedImpact: map[geo.Dimension]float64{
				geo.DimVisibility: 0.25,
			},
			Confidence: 0.75,
		})
	}

	return recs
}

// checkMeta flags missing or weak title and meta description.
func (a *VisibilityAgent) checkMeta(unit geo.UnitOfWork) []geo.Recommendation {
	var recs []geo.Recommendation

	if unit.Title == "" {
		recs = append(recs, geo.Recommendation{
			Category: geo.CategoryContent,
			Subject:  geo.Subject{Page: unit.URL, Element: "title", Category: geo.CategoryContent},
			Action:   "Add a descriptive title tag naming the business and the page topic",
			FixType:  "write-title-tag",
			Priority: geo.PriorityHigh,
			Effort:   geo.EffortLow,
			EstimatedImpact: map[geo.Dimension]float64{
				geo.DimVisibility: 0.20,
			},
			Confidence: 0.95,
		})
	}

	if len(unit.MetaDescription) < 50 {
		action := "Write a meta description of 50-160 characters summarizing the page"
		if unit.MetaDescription != "" {
			action = "Expand the meta description to at least 50 characters"
		}
		recs = append(recs, geo.Recommendation{
			Category: geo.CategoryContent,
			Subject:  geo.Subject{Page: unit.URL, Element: "meta-description", Category: geo.CategoryContent},
			Action:   action,
			FixType:  "write-meta-description",
			Priority: geo.PriorityMedium,
			Effort:   geo.EffortLow,
			EstimatedImpact: map[geo.Dimension]float64{
				geo.DimVisibility: 0.15,
			},
			Confidence: 0.85,
		})
	}

	return recs
}

// checkHeadings flags a missing H1 or a broken heading hierarchy.
func (a *VisibilityAgent) checkHeadings(unit geo.UnitOfWork) []geo.Recommendation {
	if len(unit.Headings) == 0 {
		return nil
	}

	h1s := 0
	broken := false
	prev := 0
	for _, h := range unit.Headings {
		if h.Level == 1 {
			h1s++
		}
		if prev > 0 && h.Level > prev+1 {
			broken = true
		}
		prev = h.Level
	}

	if h1s == 1 && !broken {
		return nil
	}

	action := "Restructure headings into a strict outline with exactly one H1"
	if h1s == 0 {
		action = "Add a single H1 heading stating the page's main topic"
	}

	return []geo.Recommendation{{
		Category: geo.CategoryContent,
		Subject:  geo.Subject{Page: unit.URL, Element: "heading-outline", Category: geo.CategoryContent},
		Action:   action,
		FixType:  "fix-heading-hierarchy",
		Priority: geo.PriorityMedium,
		Effort:   geo.EffortMedium,
		EstimatedImpact: map[geo.Dimension]float64{
			geo.DimVisibility: 0.12,
		},
		Confidence: 0.8,
	}}
}

// hasQuestionHeadings reports whether any heading reads like a question.
func hasQuestionHeadings(headings []geo.Heading) bool {
	for _, h := range headings {
		t := strings.TrimSpace(h.Text)
		if strings.HasSuffix(t, "?") {
			return true
		}
	}
	return false
}

// visibilityConfidence scales with how much page surface was available.
func visibilityConfidence(unit geo.UnitOfWork) float64 {
	c := 0.5
	if unit.Title != "" {
		c += 0.15
	}
	if len(unit.Headings) > 0 {
		c += 0.15
	}
	if unit.Text != "" {
		c += 0.1
	}
	if len(unit.StructuredData) > 0 {
		c += 0.1
	}
	return c
}
