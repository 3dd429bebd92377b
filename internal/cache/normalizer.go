package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"do": {}, "does": {}, "did": {}, "what": {}, "when": {}, "where": {},
	"how": {}, "for": {}, "of": {}, "to": {}, "in": {}, "on": {}, "at": {},
}

// Normalize lower-cases, strips punctuation, drops stop words, and
// sorts the remaining tokens so permutations of the same question
// ("restraint policy for ICU" vs "ICU restraint policy") collapse to
// one cache key.
func Normalize(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	kept := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		kept = append(kept, f)
	}
	sort.Strings(kept)
	return strings.Join(kept, " ")
}

// Key builds the expansion/response cache key from normalized text plus
// the sorted AppliesTo filter, so the same question scoped to different
// entities never collides.
func Key(text string, appliesTo []string) string {
	scope := append([]string(nil), appliesTo...)
	sort.Strings(scope)
	raw := Normalize(text) + "|" + strings.Join(scope, ",")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// SearchKey builds the search-result cache key from the already-expanded
// retrieval text, since two differently-phrased questions can expand to
// the same retrieval string and should share cached candidates.
func SearchKey(expandedText string, appliesTo []string) string {
	return "search:" + Key(expandedText, appliesTo)
}
