package coordinator

import (
	"fmt"
	"log"
	"sort"

	"github.com/optiserve/geocoord/internal/geo"
)

// ResolveResult is the conflict-free recommendation set plus its audit
// trail.
type ResolveResult struct {
	// Resolved keeps the merge order for pass-through recommendations;
	// a conflict group is represented by its chosen candidate at the
	// position of the group's first member.
	Resolved []geo.Recommendation

	Conflicts   []ConflictRecord
	Diagnostics []string
}

// scored pairs a candidate with its resolution score and tie-break rank.
type scored struct {
	rec         geo.Recommendation
	score       float64
	domainMatch bool
}

// resolve groups recommendations by subject and reduces each group of two
// or more to a single winner. The score and both tie-breaks impose a total
// order, so resolution is deterministic for identical input.
//
// Resolution score: confidence × impact_weight(category) × priority_weight.
// Ties prefer the candidate whose source agent's declared domain matches the
// subject's category; remaining ties fall to the lexicographically smaller
// agent name.
func resolve(m MergeResult, opts Options) ResolveResult {
	var out ResolveResult

	groups := make(map[string][]geo.Recommendation)
	var order []string
	for _, rec := range m.All {
		key := rec.Subject.Key()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	for _, key := range order {
		group := groups[key]
		if len(group) == 0 {
			// Cannot happen given how groups are built, but mirrors the
			// never-fatal contract for degenerate groups.
			out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("empty conflict group %q dropped", key))
			continue
		}
		if len(group) == 1 {
			out.Resolved = append(out.Resolved, group[0])
			continue
		}

		record := resolveGroup(group, opts)
		out.Conflicts = append(out.Conflicts, record)
		out.Resolved = append(out.Resolved, record.Chosen)
	}

	return out
}

// resolveGroup picks the winner of one conflict group and builds its audit
// record.
func resolveGroup(group []geo.Recommendation, opts Options) ConflictRecord {
	candidates := make([]scored, 0, len(group))
	for _, rec := range group {
		candidates = append(candidates, scored{
			rec:         rec,
			score:       resolutionScore(rec, opts),
			domainMatch: rec.SourceDomain == rec.Subject.Category,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.domainMatch != b.domainMatch {
			return a.domainMatch
		}
		if a.rec.SourceAgent != b.rec.SourceAgent {
			return a.rec.SourceAgent < b.rec.SourceAgent
		}
		// Full tie should be unreachable given the total order above;
		// fall back to stable ID order and let the caller log it.
		return a.rec.ID < b.rec.ID
	})

	winner := candidates[0]
	if fullTie(winner, candidates[1]) {
		log.Printf("resolve: no decisive winner for %s; using stable id order", winner.rec.Subject.Key())
	}

	chosen := winner.rec
	var discarded []CandidateScore
	var discardedIDs []string
	for _, c := range candidates[1:] {
		discarded = append(discarded, CandidateScore{ID: c.rec.ID, SourceAgent: c.rec.SourceAgent, Score: c.score})
		discardedIDs = append(discardedIDs, c.rec.ID)
	}

	// Supersede, never mutate: the resolved recommendation is a copy
	// carrying the audit back-reference.
	chosen.ResolvedFrom = discardedIDs

	all := make([]CandidateScore, 0, len(candidates))
	for _, c := range candidates {
		all = append(all, CandidateScore{ID: c.rec.ID, SourceAgent: c.rec.SourceAgent, Score: c.score})
	}

	return ConflictRecord{
		Subject:    chosen.Subject,
		Type:       conflictType(group),
		Candidates: all,
		Chosen:     chosen,
		Reasoning:  reasoning(winner, candidates[1]),
		Discarded:  discarded,
	}
}

// resolutionScore is the deterministic ranking value for a candidate.
func resolutionScore(rec geo.Recommendation, opts Options) float64 {
	return rec.Confidence * opts.ImpactWeights[rec.Category] * opts.PriorityWeights[rec.Priority]
}

// conflictType distinguishes agents proposing the same fix from agents
// proposing different fixes for the same element.
func conflictType(group []geo.Recommendation) string {
	first := group[0].FixType
	for _, rec := range group[1:] {
		if rec.FixType != first {
			return ConflictContradictory
		}
	}
	return ConflictDuplicate
}

// reasoning explains which rule decided the winner, for the audit trail.
func reasoning(winner, runnerUp scored) string {
	switch {
	case winner.score > runnerUp.score:
		return fmt.Sprintf("highest resolution score (%.3f vs %.3f)", winner.score, runnerUp.score)
	case winner.domainMatch && !runnerUp.domainMatch:
		return fmt.Sprintf("score tied at %.3f; %s is authoritative for %s", winner.score, winner.rec.SourceAgent, winner.rec.Subject.Category)
	case winner.rec.SourceAgent != runnerUp.rec.SourceAgent:
		return fmt.Sprintf("score tied at %.3f; lexicographic agent-name tie-break (%s < %s)", winner.score, winner.rec.SourceAgent, runnerUp.rec.SourceAgent)
	default:
		return fmt.Sprintf("score tied at %.3f; stable id order", winner.score)
	}
}

// fullTie reports whether even the agent-name tie-break could not separate
// the top two candidates.
func fullTie(a, b scored) bool {
	return a.score == b.score && a.domainMatch == b.domainMatch && a.rec.SourceAgent == b.rec.SourceAgent
}
