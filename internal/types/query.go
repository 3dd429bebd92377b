package types

// Query is the input to the orchestration core: user text plus an
// optional entity filter (a set of institution codes) that the
// Retrieval Stage translates into a structured index filter.
type Query struct {
	Text          string   `json:"text"`
	AppliesTo     []string `json:"applies_to,omitempty"`
	SessionID     string   `json:"session_id,omitempty"`
	RequestID     string   `json:"request_id,omitempty"`
	SemanticOnly  bool     `json:"-"`
}

// ExpansionRule names a rule that fired while building an ExpandedQuery,
// for audit/debugging purposes.
type ExpansionRule string

const (
	RuleAbbreviation  ExpansionRule = "abbreviation"
	RuleMisspelling   ExpansionRule = "misspelling"
	RuleCompoundMatch ExpansionRule = "compound_match"
	RuleSingleTerm    ExpansionRule = "single_term"
	RuleContextPad    ExpansionRule = "context_pad"
)

// ExpandedQuery is the original text plus the canonicalized cache key,
// the expanded retrieval text, and the record of which rules fired.
//
// Invariant (P1): words(Expanded) <= max(6, 2*words(Original)).
type ExpandedQuery struct {
	Original     string          `json:"original"`
	CanonicalKey string          `json:"canonical_key"`
	Expanded     string          `json:"expanded"`
	RulesFired   []ExpansionRule `json:"rules_fired,omitempty"`
}

// ForcedReference is a policy identifier that a topic-keyword rule said
// must appear in results. Rank preserves first-seen order among
// multiple forced references in one query.
type ForcedReference struct {
	ReferenceNumber string `json:"reference_number"`
	Rank            int    `json:"rank"`
	HintQuery       string `json:"hint_query"`
}
