// Package quality implements the Quality Assessor (corrective RAG):
// before generation, score the retrieved candidate set and decide
// whether to proceed, filter down to the relevant subset, or refuse
// (fall back to the full unfiltered set rather than lose forced
// references), grounded on the corrective-RAG control flow in the
// source chat service.
package quality

import (
	"strings"

	"github.com/sajor2000/chatcore/internal/types"
)

// Action is the corrective decision for one retrieval.
type Action string

const (
	ActionProceed Action = "proceed"
	ActionFilter  Action = "filter"
	ActionRetry   Action = "retry"
	ActionRefuse  Action = "refuse"
)

// Assessment scores a single candidate's relevance to query on a
// crude lexical-overlap basis, standing in for the embedding-similarity
// assessment a production deployment would use.
type Assessment struct {
	Index   int
	Score   float64
	Relevant bool
}

// Assess scores every candidate's term overlap with query.
func Assess(query string, candidates []types.SearchResult) []Assessment {
	queryTerms := termSet(query)
	out := make([]Assessment, len(candidates))
	for i, c := range candidates {
		score := overlapScore(queryTerms, termSet(c.Content+" "+c.Title))
		out[i] = Assessment{Index: i, Score: score, Relevant: score >= 0.15}
	}
	return out
}

// DetermineAction decides what to do with the candidate set given its
// assessments: refuse (proceed unfiltered) when the aggregate quality
// is too low across the board, filter down to relevant indices
// otherwise, or proceed untouched when quality is already acceptable.
func DetermineAction(assessments []Assessment) Action {
	if len(assessments) == 0 {
		return ActionRefuse
	}
	var total float64
	relevantCount := 0
	for _, a := range assessments {
		total += a.Score
		if a.Relevant {
			relevantCount++
		}
	}
	avg := total / float64(len(assessments))
	if avg < 0.05 {
		return ActionRefuse
	}
	if relevantCount < len(assessments) {
		return ActionFilter
	}
	return ActionProceed
}

// MissingForced returns the forced references whose reference number
// has no match among candidates, in forced's original order. A
// non-empty result means the Quality Assessor should issue targeted
// secondary lookups (ActionRetry) before the candidate set is final.
func MissingForced(candidates []types.SearchResult, forced []types.ForcedReference) []types.ForcedReference {
	if len(forced) == 0 {
		return nil
	}
	present := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		present[c.ReferenceNumber] = struct{}{}
	}
	var missing []types.ForcedReference
	for _, f := range forced {
		if _, ok := present[f.ReferenceNumber]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// FilterByQuality returns the subset of candidates assessments marked
// relevant, preserving original order. If filtering would remove
// everything, the caller should fall back to the original set.
func FilterByQuality(candidates []types.SearchResult, assessments []Assessment) []types.SearchResult {
	var out []types.SearchResult
	for _, a := range assessments {
		if a.Relevant {
			out = append(out, candidates[a.Index])
		}
	}
	return out
}

func termSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(w, ".,?!")] = struct{}{}
	}
	return set
}

func overlapScore(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	hits := 0
	for t := range a {
		if _, ok := b[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(a))
}
