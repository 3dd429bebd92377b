// Package format implements the Response Formatter: turns the
// Generator's raw answer text plus approved evidence into the final
// Response envelope, grounded on the source system's SearchResult
// formatting helpers (format_for_rag / format_rag_context) adapted
// from "LLM context block" framing to "user-facing citation list"
// framing.
package format

import (
	"fmt"
	"strings"

	"github.com/sajor2000/chatcore/internal/safety"
	"github.com/sajor2000/chatcore/internal/types"
)

// ToEvidence converts an approved RerankResult into the citation-ready
// Evidence view, truncating the snippet so the response payload stays
// bounded regardless of chunk size.
func ToEvidence(r types.RerankResult, matchType string) types.Evidence {
	return types.Evidence{
		Snippet:         truncate(r.Content, 400),
		Title:           r.Title,
		ReferenceNumber: r.ReferenceNumber,
		Section:         r.Section,
		PageNumber:      r.PageNumber,
		AppliesTo:       r.AppliesTo,
		RerankerScore:   r.RelevanceScore,
		MatchType:       matchType,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "…"
}

// Delivered builds a Response for the common success path: the answer
// was generated, grounded, and passed the safety gate. maxEvidence
// caps the number of citations attached — multi-policy queries get a
// wider cap than single-intent ones.
func Delivered(answer string, evidence []types.Evidence, verification safety.VerificationResult, safetyResult safety.Result, maxEvidence int) types.Response {
	if maxEvidence > 0 && len(evidence) > maxEvidence {
		evidence = evidence[:maxEvidence]
	}

	sources := make([]string, 0, len(evidence))
	seen := map[string]struct{}{}
	for _, e := range evidence {
		if _, ok := seen[e.ReferenceNumber]; ok {
			continue
		}
		seen[e.ReferenceNumber] = struct{}{}
		sources = append(sources, fmt.Sprintf("Ref #%s — %s", e.ReferenceNumber, e.Title))
	}

	return types.Response{
		Text:             answer,
		Summary:          summarize(answer),
		Evidence:         evidence,
		Sources:          sources,
		ChunksUsed:       len(evidence),
		Found:            true,
		Confidence:       safetyResult.ConfidenceLevel,
		ConfidenceScore:  verification.Confidence,
		NeedsHumanReview: safetyResult.NeedsHumanReview,
		SafetyFlags:      safetyResult.Flags,
	}
}

// NotFound builds the standard "no relevant policy found" response.
func NotFound(flags ...string) types.Response {
	return types.Response{
		Text:       "I couldn't find a policy that answers this question. Please contact your unit's policy liaison.",
		Found:      false,
		Confidence: types.ConfidenceLow,
		SafetyFlags: flags,
	}
}

// LLMNotFound builds the response for an answer that reads as "not
// found" with no evidence behind it to trust as a real finding.
func LLMNotFound() types.Response {
	return types.Response{
		Text:        "I couldn't find a policy that answers this question. Please contact your unit's policy liaison.",
		Found:       false,
		Confidence:  types.ConfidenceLow,
		SafetyFlags: []string{types.FlagLLMNotFound},
	}
}

// LLMRefusal builds the response when the Generator declined to
// answer rather than attempting one; answer is surfaced as-is since
// it's the model's own refusal text, not a cited claim.
func LLMRefusal(answer string) types.Response {
	return types.Response{
		Text:        answer,
		Found:       false,
		Confidence:  types.ConfidenceLow,
		SafetyFlags: []string{types.FlagLLMRefusal},
	}
}

// Clarification builds a response asking the user to disambiguate,
// e.g. when the query matches multiple institutions or policies.
func Clarification(prompt string, options []types.ClarificationOption) types.Response {
	return types.Response{
		Text:                 prompt,
		Found:                false,
		Confidence:           types.ConfidenceClarificationNeeded,
		ClarificationOptions: options,
	}
}

// Blocked builds a response for an answer the safety gate rejected,
// never surfacing the blocked text itself to the user.
func Blocked(flag string) types.Response {
	return types.Response{
		Text:             "I can't provide a reliable answer to this question from the available policies. Please escalate to a supervisor or the policy office.",
		Found:            false,
		Confidence:       types.ConfidenceLow,
		NeedsHumanReview: true,
		SafetyFlags:      []string{flag},
	}
}

// Unavailable builds a response for upstream service failure.
func Unavailable() types.Response {
	return types.Response{
		Text:        "The policy assistant is temporarily unavailable. Please try again shortly.",
		Found:       false,
		Confidence:  types.ConfidenceLow,
		SafetyFlags: []string{types.FlagServiceUnavailable},
	}
}

func summarize(answer string) string {
	sentences := strings.SplitN(answer, ". ", 2)
	if len(sentences) == 0 {
		return ""
	}
	return strings.TrimSuffix(sentences[0], ".") + "."
}
