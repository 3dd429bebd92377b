// Package hints implements the Policy-Hint Injector: topic keywords
// that must surface a specific, known-canonical policy reference even
// when free-text retrieval alone might rank it low, grounded on the
// forced-reference mechanism in the source chat service (policy hint
// table -> forced_refs -> downstream boost/recovery in rerank).
package hints

import (
	"sort"
	"strings"

	"github.com/sajor2000/chatcore/internal/types"
)

type hintEntry struct {
	referenceNumber string
	hintQuery       string
}

// table maps a topic keyword to the canonical policy it must surface.
// A production deployment loads this from the same policy-hint
// configuration the ingestion pipeline maintains; this is a
// representative seed covering the highest-traffic topics.
var table = map[string]hintEntry{
	"verbal order":    {referenceNumber: "486", hintQuery: "verbal order telephone order policy"},
	"telephone order":  {referenceNumber: "486", hintQuery: "verbal order telephone order policy"},
	"code blue":       {referenceNumber: "112", hintQuery: "code blue cardiac arrest resuscitation"},
	"restraint":       {referenceNumber: "204", hintQuery: "restraint seclusion policy"},
	"fall prevention": {referenceNumber: "318", hintQuery: "fall prevention patient safety"},
	"hand-off":        {referenceNumber: "271", hintQuery: "hand-off communication SBAR shift report"},
	"handoff":         {referenceNumber: "271", hintQuery: "hand-off communication SBAR shift report"},
	"advance directive": {referenceNumber: "402", hintQuery: "advance directive advance care planning DNR"},
	"informed consent": {referenceNumber: "155", hintQuery: "informed consent policy"},
}

// Inject scans expanded for any hint table keyword and returns the
// search text to use plus the forced references it implies, in
// first-seen order (Rank preserves that order for downstream tie
// breaking). Map iteration order is not text order, so matches are
// located by their earliest index in the text and sorted before rank
// is assigned.
func Inject(expanded string) (searchQuery string, forced []types.ForcedReference) {
	lower := strings.ToLower(expanded)

	type match struct {
		index int
		entry hintEntry
	}
	bestByRef := map[string]match{}
	for keyword, entry := range table {
		idx := strings.Index(lower, keyword)
		if idx < 0 {
			continue
		}
		if existing, ok := bestByRef[entry.referenceNumber]; !ok || idx < existing.index {
			bestByRef[entry.referenceNumber] = match{index: idx, entry: entry}
		}
	}

	matches := make([]match, 0, len(bestByRef))
	for _, m := range bestByRef {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].index < matches[j].index })

	for rank, m := range matches {
		forced = append(forced, types.ForcedReference{
			ReferenceNumber: m.entry.referenceNumber,
			Rank:            rank,
			HintQuery:       m.entry.hintQuery,
		})
	}
	return expanded, forced
}
