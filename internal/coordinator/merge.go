package coordinator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/optiserve/geocoord/internal/geo"
)

// MergeResult is the flattened, category-partitioned recommendation set.
type MergeResult struct {
	// ByCategory partitions All; slices share the same values.
	ByCategory map[geo.Category][]geo.Recommendation

	// All preserves the stable (unit, agent) collection order.
	All []geo.Recommendation

	// Diagnostics records dropped entries and discarded error results.
	Diagnostics []string
}

// merge flattens all usable agent results into one recommendation set,
// attaching provenance and a stable ID to each entry. Error-status results
// are discarded but their errors are kept for diagnostics. Entries with an
// invalid subject are dropped with a warning, never fatally.
func merge(orch OrchestrationResult) MergeResult {
	out := MergeResult{ByCategory: make(map[geo.Category][]geo.Recommendation)}
	seen := make(map[string]bool)

	for _, call := range orch.Calls {
		res := call.Result
		if !res.Status.Usable() {
			for _, e := range res.Errors {
				out.Diagnostics = append(out.Diagnostics,
					fmt.Sprintf("agent %s on %s: %s", call.Agent, call.Unit, e))
			}
			continue
		}

		for _, rec := range res.Recommendations {
			if rec.Category == "" {
				rec.Category = rec.Subject.Category
			}
			if rec.Subject.Category == "" {
				rec.Subject.Category = rec.Category
			}
			if !rec.Subject.Valid() {
				out.Diagnostics = append(out.Diagnostics,
					fmt.Sprintf("agent %s on %s: dropped recommendation %q with incomplete subject", call.Agent, call.Unit, rec.FixType))
				continue
			}

			rec.SourceAgent = res.AgentName
			rec.SourceDomain = res.AgentDomain
			if rec.Confidence == 0 {
				rec.Confidence = res.Confidence
			}
			rec.ID = RecommendationID(rec.SourceAgent, rec.Subject, rec.FixType)

			if seen[rec.ID] {
				out.Diagnostics = append(out.Diagnostics,
					fmt.Sprintf("agent %s on %s: duplicate recommendation %s collapsed", call.Agent, call.Unit, rec.ID))
				continue
			}
			seen[rec.ID] = true

			out.All = append(out.All, rec)
			out.ByCategory[rec.Category] = append(out.ByCategory[rec.Category], rec)
		}
	}

	return out
}

// RecommendationID derives the stable identifier for a recommendation from
// its provenance: identical (agent, subject, fix type) always produces the
// same ID, which is what makes repeated runs over identical input
// idempotent.
func RecommendationID(sourceAgent string, subject geo.Subject, fixType string) string {
	h := sha256.Sum256([]byte(sourceAgent + "|" + subject.Key() + "|" + fixType))
	return hex.EncodeToString(h[:])[:12]
}
