// Package safety implements the Citation & Safety Gate: verify that a
// generated answer's citations actually match the retrieved evidence,
// estimate hallucination risk, and run the safety checklist before a
// response is allowed to reach the user. Grounded pattern-for-pattern
// on the source system's CitationVerifier and ResponseSafetyValidator,
// ported from Python regex lists to Go regexp.
package safety

import (
	"regexp"
	"strings"

	"github.com/sajor2000/chatcore/internal/types"
)

var (
	speculationPatterns = compileAll(
		`(?i)\bmight be\b`, `(?i)\bcould be\b`, `(?i)\bpossibly\b`,
		`(?i)\bi think\b`, `(?i)\bi believe\b`, `(?i)\bprobably\b`,
		`(?i)\bmay indicate\b`, `(?i)\bit seems\b`,
	)
	refPatterns = compileAll(
		`(?i)ref(?:erence)?\s*#?\s*(\d+)`, `(?i)policy\s*#?\s*(\d+)`,
	)
	highRiskPatterns = compileAll(
		`(?i)\b\d+\s*mg\b`, `(?i)\b\d+\s*mcg\b`, `(?i)\bdosage\b`, `(?i)\bdose\b`,
		`(?i)\bcontraindicated\b`, `(?i)\balways\b`, `(?i)\bnever\b`,
	)
	exactMatchPatterns = compileAll(
		`(?i)must\s+(\w+(?:\s+\w+){0,4})`, `(?i)required\s+to\s+(\w+(?:\s+\w+){0,4})`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// VerificationResult is the outcome of verifying one generated answer
// against its evidence set.
type VerificationResult struct {
	IsGrounded        bool
	CitationAccuracy  float64
	HallucinationRisk float64
	Confidence        float64
	UngroundedClaims  int
	FabricatedRefs    []string
	HasCitations      bool
	HasSpeculation    bool
}

// VerifyResponse checks answer against evidence: citation accuracy,
// speculative language, and high-risk claim grounding, then derives
// hallucination risk and an is_grounded verdict.
//
// is_grounded iff citation_accuracy >= 0.9 AND hallucination_risk < 0.3
// AND ungrounded_claims == 0 AND no cited reference is fabricated.
func VerifyResponse(answer string, evidence []types.Evidence) VerificationResult {
	citedRefs := extractCitedRefs(answer)
	knownRefs := make(map[string]struct{}, len(evidence))
	for _, e := range evidence {
		if e.ReferenceNumber != "" {
			knownRefs[e.ReferenceNumber] = struct{}{}
		}
	}

	var fabricated []string
	matchedCount := 0
	for _, ref := range citedRefs {
		if _, ok := knownRefs[ref]; ok {
			matchedCount++
		} else {
			fabricated = append(fabricated, ref)
		}
	}

	citationAccuracy := 1.0
	hasCitations := len(citedRefs) > 0
	if hasCitations {
		citationAccuracy = float64(matchedCount) / float64(len(citedRefs))
	}

	hasSpeculation := matchesAny(answer, speculationPatterns)
	ungroundedClaims := countUngroundedHighRiskClaims(answer, evidence)

	risk := calculateHallucinationRisk(citationAccuracy, hasSpeculation, ungroundedClaims, len(citedRefs))
	confidence := calculateConfidence(citationAccuracy, hasCitations, len(evidence))

	isGrounded := citationAccuracy >= 0.9 && risk < 0.3 && ungroundedClaims == 0 && len(fabricated) == 0

	return VerificationResult{
		IsGrounded:        isGrounded,
		CitationAccuracy:  citationAccuracy,
		HallucinationRisk: risk,
		Confidence:        confidence,
		UngroundedClaims:  ungroundedClaims,
		FabricatedRefs:    fabricated,
		HasCitations:      hasCitations,
		HasSpeculation:    hasSpeculation,
	}
}

func extractCitedRefs(answer string) []string {
	var refs []string
	seen := map[string]struct{}{}
	for _, re := range refPatterns {
		for _, m := range re.FindAllStringSubmatch(answer, -1) {
			if len(m) < 2 {
				continue
			}
			if _, ok := seen[m[1]]; !ok {
				seen[m[1]] = struct{}{}
				refs = append(refs, m[1])
			}
		}
	}
	return refs
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// countUngroundedHighRiskClaims counts sentences matching a high-risk
// pattern (dosage, absolute claims) whose content does not appear
// anywhere in the evidence snippets.
func countUngroundedHighRiskClaims(answer string, evidence []types.Evidence) int {
	var combinedEvidence strings.Builder
	for _, e := range evidence {
		combinedEvidence.WriteString(strings.ToLower(e.Snippet))
		combinedEvidence.WriteString(" ")
	}
	evidenceText := combinedEvidence.String()

	count := 0
	for _, sentence := range splitSentences(answer) {
		if !matchesAny(sentence, highRiskPatterns) {
			continue
		}
		if !sentenceGrounded(sentence, evidenceText) {
			count++
		}
	}
	return count
}

func splitSentences(text string) []string {
	raw := regexp.MustCompile(`[.!?]\s+`).Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// sentenceGrounded is a lexical-overlap proxy: at least half of the
// sentence's significant words (len > 3) must appear in the evidence.
func sentenceGrounded(sentence, evidenceText string) bool {
	words := strings.Fields(strings.ToLower(sentence))
	var significant, hits int
	for _, w := range words {
		w = strings.Trim(w, ".,?!:;")
		if len(w) <= 3 {
			continue
		}
		significant++
		if strings.Contains(evidenceText, w) {
			hits++
		}
	}
	if significant == 0 {
		return true
	}
	return float64(hits)/float64(significant) >= 0.5
}

// calculateHallucinationRisk weights citation inaccuracy (0.4),
// speculative language (0.2, capped), and ungrounded high-risk claims
// (0.4).
func calculateHallucinationRisk(citationAccuracy float64, hasSpeculation bool, ungroundedClaims, citationCount int) float64 {
	citationFactor := (1 - citationAccuracy) * 0.4
	speculationFactor := 0.0
	if hasSpeculation {
		speculationFactor = 0.2
	}
	ungroundedFactor := 0.4
	if ungroundedClaims == 0 {
		ungroundedFactor = 0
	} else if ungroundedClaims == 1 {
		ungroundedFactor = 0.2
	}
	risk := citationFactor + speculationFactor + ungroundedFactor
	if risk > 1.0 {
		risk = 1.0
	}
	return risk
}

// calculateConfidence boosts for having citations (x1.1) vs not
// (x0.7), and for a richer evidence set (context factor).
func calculateConfidence(citationAccuracy float64, hasCitations bool, evidenceCount int) float64 {
	base := citationAccuracy
	if hasCitations {
		base *= 1.1
	} else {
		base *= 0.7
	}
	contextFactor := 1.0
	if evidenceCount >= 3 {
		contextFactor = 1.05
	}
	conf := base * contextFactor
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
