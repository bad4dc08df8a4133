package agent

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/optiserve/geocoord/internal/geo"
)

// Compile-time check.
var _ DomainAgent = (*AccuracyAgent)(nil)

// AccuracyAgent checks a page's business facts against the canonical
// business context: name/address/phone consistency, contact completeness,
// and disagreement with external sources.
type AccuracyAgent struct{}

// NewAccuracyAgent creates an AccuracyAgent.
func NewAccuracyAgent() *AccuracyAgent { return &AccuracyAgent{} }

func (a *AccuracyAgent) Name() string         { return string(RoleAccuracy) }
func (a *AccuracyAgent) Domain() geo.Category { return geo.CategoryAccuracy }

var (
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// Analyze cross-checks the page's NAP data against the business context.
func (a *AccuracyAgent) Analyze(ctx context.Context, unit geo.UnitOfWork, bctx geo.BusinessContext) (geo.AgentResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return geo.AgentResult{}, err
	}

	res := geo.AgentResult{
		AgentName:   a.Name(),
		AgentDomain: a.Domain(),
		Status:      geo.StatusSuccess,
		Confidence:  0.85,
	}

	if bctx.CanonicalName == "" && bctx.Phone == "" && bctx.Email == "" && bctx.Address == "" {
		// Without ground truth there is nothing to verify against.
		res.Status = geo.StatusError
		res.Errors = append(res.Errors, "business context is empty; accuracy checks need canonical NAP data")
		res.Duration = time.Since(start)
		return res, nil
	}

	if unit.Text == "" {
		res.Status = geo.StatusWarning
		res.Warnings = append(res.Warnings, "extracted text missing; only title and structured data checked")
		res.Confidence = 0.6
	}

	res.Recommendations = append(res.Recommendations, a.checkName(unit, bctx)...)
	res.Recommendations = append(res.Recommendations, a.checkContact(unit, bctx)...)
	res.Recommendations = append(res.Recommendations, a.checkExternalSources(unit, bctx)...)

	res.Duration = time.Since(start)
	return res, nil
}

// checkName verifies the canonical business name appears on the page.
func (a *AccuracyAgent) checkName(unit geo.UnitOfWork, bctx geo.BusinessContext) []geo.Recommendation {
	if bctx.CanonicalName == "" {
		return nil
	}
	if bctx.ContainsName(unit.Title) || bctx.ContainsName(unit.Text) {
		return nil
	}

	return []geo.Recommendation{{
		Category: geo.CategoryAccuracy,
		Subject:  geo.Subject{Page: unit.URL, Element: "business-name", Category: geo.CategoryAccuracy},
		Action:   "State the canonical business name \"" + bctx.CanonicalName + "\" in the title or body",
		FixType:  "align-business-name",
		Priority: geo.PriorityHigh,
		Effort:   geo.EffortLow,
		EstimatedImpact: map[geo.Dimension]float64{
			geo.DimAccuracy:   0.30,
			geo.DimVisibility: 0.10,
		},
		Confidence: 0.9,
	}}
}

// checkContact verifies phone and email presence and consistency.
func (a *AccuracyAgent) checkContact(unit geo.UnitOfWork, bctx geo.BusinessContext) []geo.Recommendation {
	var recs []geo.Recommendation

	if bctx.Phone != "" {
		found := phonePattern.FindAllString(unit.Text, -1)
		switch {
		case len(found) == 0:
			recs = append(recs, contactRec(unit.URL, "phone",
				"Publish the canonical phone number "+bctx.Phone+" on the page",
				"publish-phone-number", 0.85))
		case !containsNormalizedPhone(found, bctx.Phone):
			recs = append(recs, contactRec(unit.URL, "phone",
				"Correct the listed phone number to the canonical "+bctx.Phone,
				"correct-phone-number", 0.8))
		}
	}

	if bctx.Email != "" {
		found := emailPattern.FindAllString(unit.Text, -1)
		switch {
		case len(found) == 0:
			recs = append(recs, contactRec(unit.URL, "email",
				"Publish the canonical contact email "+bctx.Email,
				"publish-contact-email", 0.85))
		case !containsFold(found, bctx.Email):
			recs = append(recs, contactRec(unit.URL, "email",
				"Correct the listed contact email to "+bctx.Email,
				"correct-contact-email", 0.8))
		}
	}

	if bctx.Address != "" && unit.Text != "" &&
		!strings.Contains(strings.ToLower(unit.Text), strings.ToLower(bctx.Address)) {
		recs = append(recs, contactRec(unit.URL, "address",
			"Publish the canonical street address consistently with registered listings",
			"publish-street-address", 0.7))
	}

	return recs
}

// checkExternalSources flags fields where an external source disagrees with
// the canonical context, which erodes answer-engine trust.
func (a *AccuracyAgent) checkExternalSources(unit geo.UnitOfWork, bctx geo.BusinessContext) []geo.Recommendation {
	var recs []geo.Recommendation

	for source, value := range bctx.ExternalSources {
		if value == "" || bctx.CanonicalName == "" {
			continue
		}
		if strings.EqualFold(value, bctx.CanonicalName) {
			continue
		}
		recs = append(recs, geo.Recommendation{
			Category: geo.CategoryAccuracy,
			Subject:  geo.Subject{Page: unit.URL, Element: "external-" + source, Category: geo.CategoryAccuracy},
			Action:   "Reconcile the business name on " + source + " (currently \"" + value + "\") with the canonical name",
			FixType:  "reconcile-" + source,
			Priority: geo.PriorityMedium,
			Effort:   geo.EffortMedium,
			EstimatedImpact: map[geo.Dimension]float64{
				geo.DimAccuracy: 0.20,
			},
			Confidence: 0.75,
		})
	}

	return recs
}

// contactRec builds an accuracy recommendation for a contact element.
func contactRec(page, element, action, fixType string, confidence float64) geo.Recommendation {
	return geo.Recommendation{
		Category: geo.CategoryAccuracy,
		Subject:  geo.Subject{Page: page, Element: element, Category: geo.CategoryAccuracy},
		Action:   action,
		FixType:  fixType,
		Priority: geo.PriorityHigh,
		Effort:   geo.EffortLow,
		EstimatedImpact: map[geo.Dimension]float64{
			geo.DimAccuracy:      0.25,
			geo.DimActionability: 0.10,
		},
		Confidence: confidence,
	}
}

// containsNormalizedPhone compares phone numbers digit-by-digit.
func containsNormalizedPhone(candidates []string, want string) bool {
	norm := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	target := norm(want)
	for _, c := range candidates {
		if norm(c) == target {
			return true
		}
	}
	return false
}

func containsFold(candidates []string, want string) bool {
	for _, c := range candidates {
		if strings.EqualFold(c, want) {
			return true
		}
	}
	return false
}
