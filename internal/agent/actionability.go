package agent

import (
	"context"
	"strings"
	"time"

	"github.com/optiserve/geocoord/internal/geo"
)

// Compile-time check.
var _ DomainAgent = (*ActionabilityAgent)(nil)

// ActionabilityAgent checks how machine-actionable a page is: whether forms
// are completable without a human and whether structured endpoints exist for
// the actions the page offers.
type ActionabilityAgent struct{}

// NewActionabilityAgent creates an ActionabilityAgent.
func NewActionabilityAgent() *ActionabilityAgent { return &ActionabilityAgent{} }

func (a *ActionabilityAgent) Name() string         { return string(RoleActionability) }
func (a *ActionabilityAgent) Domain() geo.Category { return geo.CategoryActionability }

// Analyze inspects forms and discovered API endpoints.
func (a *ActionabilityAgent) Analyze(ctx context.Context, unit geo.UnitOfWork, bctx geo.BusinessContext) (geo.AgentResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return geo.AgentResult{}, err
	}

	res := geo.AgentResult{
		AgentName:   a.Name(),
		AgentDomain: a.Domain(),
		Status:      geo.StatusSuccess,
		Confidence:  0.8,
	}

	res.Recommendations = append(res.Recommendations, a.checkForms(unit)...)
	res.Recommendations = append(res.Recommendations, a.checkEndpoints(unit)...)

	if len(unit.Forms) == 0 && len(unit.APIEndpoints) == 0 {
		// Nothing interactive was crawled; we can still recommend adding
		// an entry point, but flag the thin input.
		res.Status = geo.StatusWarning
		res.Warnings = append(res.Warnings, "no forms or endpoints discovered; interaction checks limited")
		res.Confidence = 0.6
		res.Recommendations = append(res.Recommendations, geo.Recommendation{
			Category: geo.CategoryActionability,
			Subject:  geo.Subject{Page: unit.URL, Element: "entry-point", Category: geo.CategoryActionability},
			Action:   "Add a contact or request form so agents have an action to complete",
			FixType:  "add-contact-action",
			Priority: geo.PriorityMedium,
			Effort:   geo.EffortMedium,
			EstimatedImpact: map[geo.Dimension]float64{
				geo.DimActionability: 0.30,
			},
			Confidence: 0.65,
		})
	}

	res.Duration = time.Since(start)
	return res, nil
}

// checkForms flags forms that an automated agent cannot reliably complete.
func (a *ActionabilityAgent) checkForms(unit geo.UnitOfWork) []geo.Recommendation {
	var recs []geo.Recommendation

	for _, form := range unit.Forms {
		element := "form:" + form.Action
		if form.Action == "" {
			recs = append(recs, geo.Recommendation{
				Category: geo.CategoryTechnical,
				Subject:  geo.Subject{Page: unit.URL, Element: "form:unset", Category: geo.CategoryTechnical},
				Action:   "Set an explicit action URL and method on the form",
				FixType:  "set-form-action",
				Priority: geo.PriorityHigh,
				Effort:   geo.EffortLow,
				EstimatedImpact: map[geo.Dimension]float64{
					geo.DimActionability: 0.25,
				},
				Confidence: 0.9,
			})
			continue
		}

		unlabeled := 0
		for _, f := range form.Fields {
			if f.Label == "" && !isSelfDescribing(f) {
				unlabeled++
			}
		}
		if unlabeled > 0 {
			recs = append(recs, geo.Recommendation{
				Category: geo.CategoryActionability,
				Subject:  geo.Subject{Page: unit.URL, Element: element, Category: geo.CategoryActionability},
				Action:   "Label every form field so intent is machine-readable",
				FixType:  "label-form-fields",
				Priority: geo.PriorityMedium,
				Effort:   geo.EffortLow,
				EstimatedImpact: map[geo.Dimension]float64{
					geo.DimActionability: 0.20,
					geo.DimAccuracy:      0.05,
				},
				Confidence: 0.85,
			})
		}
	}

	// Forms with no API equivalent force agents through HTML submission.
	if len(unit.Forms) > 0 && len(unit.APIEndpoints) == 0 {
		recs = append(recs, geo.Recommendation{
			Category: geo.CategoryTechnical,
			Subject:  geo.Subject{Page: unit.URL, Element: "form-api", Category: geo.CategoryTechnical},
			Action:   "Expose a JSON endpoint mirroring the form submission",
			FixType:  "expose-form-api",
			Priority: geo.PriorityMedium,
			Effort:   geo.EffortHigh,
			Requires: []string{"set-form-action"},
			EstimatedImpact: map[geo.Dimension]float64{
				geo.DimActionability: 0.35,
			},
			Confidence: 0.7,
		})
	}

	return recs
}

// checkEndpoints flags discovered endpoints that are hard to consume.
func (a *ActionabilityAgent) checkEndpoints(unit geo.UnitOfWork) []geo.Recommendation {
	var recs []geo.Recommendation

	for _, ep := range unit.APIEndpoints {
		if strings.EqualFold(ep.ResponseFormat, "json") {
			continue
		}
		recs = append(recs, geo.Recommendation{
			Category: geo.CategoryTechnical,
			Subject:  geo.Subject{Page: unit.URL, Element: "endpoint:" + ep.URL, Category: geo.CategoryTechnical},
			Action:   "Serve JSON from " + ep.URL + " instead of " + orUnknown(ep.ResponseFormat),
			FixType:  "standardize-api-response",
			Priority: geo.PriorityLow,
			Effort:   geo.EffortMedium,
			EstimatedImpact: map[geo.Dimension]float64{
				geo.DimActionability: 0.15,
			},
			Confidence: 0.75,
		})
	}

	return recs
}

// isSelfDescribing reports whether a field type implies its own intent.
func isSelfDescribing(f geo.FormField) bool {
	switch strings.ToLower(f.Type) {
	case "email", "tel", "url", "date", "submit", "hidden":
		return true
	}
	return false
}

func orUnknown(s string) string {
	if s == "" {
		return "an unknown format"
	}
	return s
}
