package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiserve/geocoord/internal/geo"
)

// fullUnit returns a page with complete visibility surface: title, meta,
// headings, text and an Organization block.
func fullUnit() geo.UnitOfWork {
	return geo.UnitOfWork{
		URL:             "https://example.com/",
		Title:           "Acme Consulting - Strategy Services",
		MetaDescription: "Acme Consulting helps mid-market companies with strategy, research and process improvement.",
		Headings: []geo.Heading{
			{Level: 1, Text: "Acme Consulting"},
			{Level: 2, Text: "Services"},
		},
		StructuredData: []geo.SchemaBlock{{Type: "Organization", Format: "json-ld"}},
		Text:           "Acme Consulting provides strategy services. Call +1 (765) 555-0100 or email hello@acme.example.",
	}
}

func TestVisibilityAgent_CleanPage_NoRecommendations(t *testing.T) {
	res, err := NewVisibilityAgent().Analyze(context.Background(), fullUnit(), geo.BusinessContext{})
	require.NoError(t, err)

	assert.Equal(t, geo.StatusSuccess, res.Status)
	assert.Empty(t, res.Recommendations)
	assert.Greater(t, res.Confidence, 0.9)
}

func TestVisibilityAgent_MissingSchema(t *testing.T) {
	unit := fullUnit()
	unit.StructuredData = nil

	res, err := NewVisibilityAgent().Analyze(context.Background(), unit, geo.BusinessContext{})
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)

	rec := res.Recommendations[0]
	assert.Equal(t, "add-organization-schema", rec.FixType)
	assert.Equal(t, geo.CategoryVisibility, rec.Category)
	assert.Equal(t, "structured-data", rec.Subject.Element)
	assert.Equal(t, unit.URL, rec.Subject.Page)
}

func TestVisibilityAgent_QuestionHeadingsWantFAQSchema(t *testing.T) {
	unit := fullUnit()
	unit.Headings = append(unit.Headings, geo.Heading{Level: 2, Text: "How do I apply?"})

	res, err := NewVisibilityAgent().Analyze(context.Background(), unit, geo.BusinessContext{})
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 1)

	rec := res.Recommendations[0]
	assert.Equal(t, "add-faq-schema", rec.FixType)
	assert.Contains(t, rec.Requires, "add-organization-schema")
}

func TestVisibilityAgent_MetaAndHeadingIssues(t *testing.T) {
	unit := fullUnit()
	unit.MetaDescription = "too short"
	unit.Headings = []geo.Heading{
		{Level: 2, Text: "Services"},
		{Level: 4, Text: "Pricing"}, // level jump, no h1
	}

	res, err := NewVisibilityAgent().Analyze(context.Background(), unit, geo.BusinessContext{})
	require.NoError(t, err)

	fixes := fixTypes(res.Recommendations)
	assert.Contains(t, fixes, "write-meta-description")
	assert.Contains(t, fixes, "fix-heading-hierarchy")
}

func TestVisibilityAgent_EmptyPage_ErrorStatus(t *testing.T) {
	res, err := NewVisibilityAgent().Analyze(context.Background(), geo.UnitOfWork{URL: "https://example.com/blank"}, geo.BusinessContext{})
	require.NoError(t, err)

	assert.Equal(t, geo.StatusError, res.Status)
	assert.Empty(t, res.Recommendations)
	assert.NotEmpty(t, res.Errors)
}

func TestVisibilityAgent_MissingText_Warns(t *testing.T) {
	unit := fullUnit()
	unit.Text = ""

	res, err := NewVisibilityAgent().Analyze(context.Background(), unit, geo.BusinessContext{})
	require.NoError(t, err)

	assert.Equal(t, geo.StatusWarning, res.Status)
	assert.NotEmpty(t, res.Warnings)
}

func TestVisibilityAgent_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewVisibilityAgent().Analyze(ctx, fullUnit(), geo.BusinessContext{})
	assert.ErrorIs(t, err, context.Canceled)
}

// fixTypes collects the FixType of every recommendation.
func fixTypes(recs []geo.Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.FixType)
	}
	return out
}
