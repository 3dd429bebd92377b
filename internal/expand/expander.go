package expand

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sajor2000/chatcore/internal/cache"
	"github.com/sajor2000/chatcore/internal/types"
)

var possessiveRe = regexp.MustCompile(`(\w+)'s\b|(\w+)'\b`)

func normalizePossessives(q string) string {
	return possessiveRe.ReplaceAllStringFunc(q, func(m string) string {
		return strings.TrimRight(strings.TrimSuffix(m, "'s"), "'")
	})
}

// Expand builds an ExpandedQuery from raw user text, applying
// misspelling correction, abbreviation expansion, compound/single-term
// domain expansion, and short-query context, then truncating to at
// most max(6, 2*originalWords) words. Implements invariant P1.
func Expand(text string) types.ExpandedQuery {
	out := types.ExpandedQuery{Original: text}

	normalized := normalizePossessives(text)
	originalWordCount := len(strings.Fields(normalized))
	maxWords := originalWordCount * 2
	if maxWords < 6 {
		maxWords = 6
	}

	words := strings.Fields(normalized)
	expandedWords := make([]string, 0, len(words))
	rules := map[types.ExpansionRule]struct{}{}

	for _, w := range words {
		lower := strings.ToLower(strings.Trim(w, ".,?!"))
		token := w

		if corrected, ok := misspellings[lower]; ok {
			token = corrected
			lower = strings.ToLower(corrected)
			rules[types.RuleMisspelling] = struct{}{}
		}

		if _, stop := abbreviationStopWords[lower]; !stop {
			if expansion, ok := abbreviations[lower]; ok {
				token = token + " " + expansion
				rules[types.RuleAbbreviation] = struct{}{}
			}
		}

		expandedWords = append(expandedWords, token)
	}

	expanded := strings.Join(expandedWords, " ")

	if addition, matched := applyShortQueryContext(words); matched {
		expanded = appendNewWords(expanded, addition)
		rules[types.RuleContextPad] = struct{}{}
	}

	if addition, matched := applyCompoundExpansions(expanded); matched {
		expanded = appendNewWords(expanded, addition)
		rules[types.RuleCompoundMatch] = struct{}{}
	} else if addition, matched := applySingleTermExpansions(expanded); matched {
		expanded = appendNewWords(expanded, addition)
		rules[types.RuleSingleTerm] = struct{}{}
	}

	final := strings.Fields(expanded)
	if len(final) > maxWords {
		expanded = strings.Join(final[:maxWords], " ")
	}

	out.Expanded = expanded
	out.CanonicalKey = cache.Key(text, nil)
	for r := range rules {
		out.RulesFired = append(out.RulesFired, r)
	}
	sort.Slice(out.RulesFired, func(i, j int) bool { return out.RulesFired[i] < out.RulesFired[j] })
	return out
}

func applyShortQueryContext(words []string) (string, bool) {
	if len(words) > 2 {
		return "", false
	}
	var additions []string
	for _, w := range words {
		if ctx, ok := shortQueryContext[strings.ToLower(w)]; ok {
			additions = append(additions, ctx)
		}
	}
	if len(additions) == 0 {
		return "", false
	}
	return strings.Join(additions, " "), true
}

func applyCompoundExpansions(query string) (string, bool) {
	lower := strings.ToLower(query)
	matchedAny := false
	combined := map[string]struct{}{}
	for pair, expansion := range compoundExpansions {
		if containsWord(lower, pair[0]) && containsWord(lower, pair[1]) {
			matchedAny = true
			for _, t := range strings.Fields(expansion) {
				combined[t] = struct{}{}
			}
		}
	}
	if !matchedAny {
		return "", false
	}
	var terms []string
	for t := range combined {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return strings.Join(terms, " "), true
}

func applySingleTermExpansions(query string) (string, bool) {
	lower := strings.ToLower(query)
	var additions []string
	for term, expansion := range singleTermExpansions {
		if !containsWord(lower, term) {
			continue
		}
		var newTerms []string
		for _, w := range strings.Fields(expansion) {
			if !containsWord(lower, strings.ToLower(w)) {
				newTerms = append(newTerms, w)
			}
			if len(newTerms) == 4 {
				break
			}
		}
		if len(newTerms) > 0 {
			additions = append(additions, strings.Join(newTerms, " "))
		}
	}
	if len(additions) == 0 {
		return "", false
	}
	sort.Strings(additions)
	return strings.Join(additions, " "), true
}

// appendNewWords appends only the words from addition not already
// present in base, preserving addition's order.
func appendNewWords(base, addition string) string {
	lowerBase := strings.ToLower(base)
	var newWords []string
	for _, w := range strings.Fields(addition) {
		if !containsWord(lowerBase, strings.ToLower(w)) {
			newWords = append(newWords, w)
		}
	}
	if len(newWords) == 0 {
		return base
	}
	return base + " " + strings.Join(newWords, " ")
}
