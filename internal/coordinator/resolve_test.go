package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiserve/geocoord/internal/geo"
)

// candidate builds a merged recommendation ready for resolution.
func candidate(agentName string, domain geo.Category, subj geo.Subject, fixType string, conf float64, prio geo.Priority) geo.Recommendation {
	return geo.Recommendation{
		ID:           RecommendationID(agentName, subj, fixType),
		Category:     subj.Category,
		Subject:      subj,
		Action:       "do " + fixType,
		FixType:      fixType,
		Priority:     prio,
		Effort:       geo.EffortLow,
		SourceAgent:  agentName,
		SourceDomain: domain,
		Confidence:   conf,
	}
}

func mergedSet(recs ...geo.Recommendation) MergeResult {
	m := MergeResult{ByCategory: make(map[geo.Category][]geo.Recommendation)}
	for _, r := range recs {
		m.All = append(m.All, r)
		m.ByCategory[r.Category] = append(m.ByCategory[r.Category], r)
	}
	return m
}

var titleSubject = geo.Subject{Page: "/", Element: "title", Category: geo.CategoryVisibility}

func TestResolvePassThroughWithoutConflict(t *testing.T) {
	a := candidate("vis", geo.CategoryVisibility, titleSubject, "write-title-tag", 0.9, geo.PriorityHigh)
	b := candidate("act", geo.CategoryActionability,
		geo.Subject{Page: "/", Element: "contact-form", Category: geo.CategoryActionability},
		"set-form-action", 0.8, geo.PriorityMedium)

	got := resolve(mergedSet(a, b), Options{}.withDefaults())

	assert.Len(t, got.Resolved, 2)
	assert.Empty(t, got.Conflicts)
	assert.Empty(t, got.Resolved[0].ResolvedFrom)
}

func TestResolveHigherScoreWins(t *testing.T) {
	strong := candidate("vis", geo.CategoryVisibility, titleSubject, "write-title-tag", 0.9, geo.PriorityHigh)
	weak := candidate("acc", geo.CategoryAccuracy, titleSubject, "rewrite-title", 0.5, geo.PriorityHigh)

	got := resolve(mergedSet(strong, weak), Options{}.withDefaults())

	require.Len(t, got.Resolved, 1)
	require.Len(t, got.Conflicts, 1)

	record := got.Conflicts[0]
	assert.Equal(t, ConflictContradictory, record.Type)
	assert.Equal(t, strong.ID, record.Chosen.ID)
	assert.Equal(t, []string{weak.ID}, record.Chosen.ResolvedFrom)
	assert.Contains(t, record.Reasoning, "highest resolution score")
	require.Len(t, record.Discarded, 1)
	assert.Equal(t, weak.ID, record.Discarded[0].ID)

	// The original candidate is superseded, not mutated.
	assert.Empty(t, strong.ResolvedFrom)
}

func TestResolveDeterministicUnderReordering(t *testing.T) {
	a := candidate("vis", geo.CategoryVisibility, titleSubject, "write-title-tag", 0.9, geo.PriorityHigh)
	b := candidate("acc", geo.CategoryAccuracy, titleSubject, "rewrite-title", 0.5, geo.PriorityHigh)

	forward := resolve(mergedSet(a, b), Options{}.withDefaults())
	reversed := resolve(mergedSet(b, a), Options{}.withDefaults())

	require.Len(t, forward.Resolved, 1)
	require.Len(t, reversed.Resolved, 1)
	assert.Equal(t, forward.Resolved[0].ID, reversed.Resolved[0].ID)
	assert.Equal(t, forward.Conflicts[0].Chosen.ID, reversed.Conflicts[0].Chosen.ID)
}

func TestResolveDomainMatchBreaksScoreTie(t *testing.T) {
	// Equal confidence and priority; only one agent's domain matches the
	// subject's category.
	matching := candidate("zeta", geo.CategoryVisibility, titleSubject, "write-title-tag", 0.8, geo.PriorityHigh)
	foreign := candidate("alpha", geo.CategoryAccuracy, titleSubject, "rewrite-title", 0.8, geo.PriorityHigh)

	got := resolve(mergedSet(foreign, matching), Options{}.withDefaults())

	require.Len(t, got.Conflicts, 1)
	assert.Equal(t, matching.ID, got.Conflicts[0].Chosen.ID)
	assert.Contains(t, got.Conflicts[0].Reasoning, "authoritative")
}

func TestResolveAgentNameBreaksFullTie(t *testing.T) {
	a := candidate("alpha", geo.CategoryVisibility, titleSubject, "write-title-tag", 0.8, geo.PriorityHigh)
	z := candidate("zeta", geo.CategoryVisibility, titleSubject, "rewrite-title", 0.8, geo.PriorityHigh)

	got := resolve(mergedSet(z, a), Options{}.withDefaults())

	require.Len(t, got.Conflicts, 1)
	assert.Equal(t, a.ID, got.Conflicts[0].Chosen.ID)
	assert.Contains(t, got.Conflicts[0].Reasoning, "lexicographic")
}

func TestResolveSameFixTypeIsDuplicate(t *testing.T) {
	a := candidate("alpha", geo.CategoryVisibility, titleSubject, "write-title-tag", 0.9, geo.PriorityHigh)
	b := candidate("beta", geo.CategoryVisibility, titleSubject, "write-title-tag", 0.7, geo.PriorityHigh)

	got := resolve(mergedSet(a, b), Options{}.withDefaults())

	require.Len(t, got.Conflicts, 1)
	assert.Equal(t, ConflictDuplicate, got.Conflicts[0].Type)
}

func TestResolveCountIdentity(t *testing.T) {
	// Every merged recommendation is either resolved or discarded in a
	// conflict record; none vanish.
	recs := []geo.Recommendation{
		candidate("alpha", geo.CategoryVisibility, titleSubject, "write-title-tag", 0.9, geo.PriorityHigh),
		candidate("beta", geo.CategoryAccuracy, titleSubject, "rewrite-title", 0.8, geo.PriorityHigh),
		candidate("gamma", geo.CategoryContent, titleSubject, "shorten-title", 0.7, geo.PriorityLow),
		candidate("act", geo.CategoryActionability,
			geo.Subject{Page: "/", Element: "contact-form", Category: geo.CategoryActionability},
			"set-form-action", 0.8, geo.PriorityMedium),
	}

	got := resolve(mergedSet(recs...), Options{}.withDefaults())

	discarded := 0
	for _, c := range got.Conflicts {
		discarded += len(c.Discarded)
	}
	assert.Equal(t, len(recs), len(got.Resolved)+discarded)
}
