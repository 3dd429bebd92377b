package safety

import (
	"strings"

	"github.com/sajor2000/chatcore/internal/types"
)

// notFoundPatterns and refusalPatterns catch the two ways a Generator
// answer can fail to be a real finding without ever citing anything
// fabricated: it can say it found nothing, or it can decline to
// answer at all. Neither is a hallucination risk, but neither should
// be formatted or cited like a delivered answer either.
var (
	notFoundPatterns = compileAll(
		`(?i)\bi (?:could not|couldn't|can't|cannot) find\b`,
		`(?i)\bno (?:relevant|applicable) polic(?:y|ies)\b`,
		`(?i)\bdoes not (?:appear to )?(?:address|cover|mention)\b`,
		`(?i)\bnot (?:addressed|covered|mentioned) in (?:the )?(?:available |provided )?polic`,
		`(?i)\bi don't have (?:enough )?information\b`,
		`(?i)\bno information (?:is )?available\b`,
	)
	refusalPatterns = compileAll(
		`(?i)\bi (?:cannot|can't|won't|will not) (?:provide|answer|assist|help)\b`,
		`(?i)\bas an ai\b`,
		`(?i)\bi'm not able to\b`,
		`(?i)\bi am not able to\b`,
		`(?i)\bthis request (?:is|falls) outside\b`,
	)
	factClaimPatterns = compileAll(
		`(?i)\b\d+(?:\.\d+)?\s*(?:mg|mcg|ml|units?)\b`,
		`(?i)\b\d+\s*(?:hours?|hrs?|minutes?|mins?|days?|weeks?)\b`,
		`(?i)\b\d+(?:\.\d+)?\s*%`,
	)
)

// IsNotFoundResponse reports whether answer reads as the Generator
// saying it found nothing, independent of whether evidence was
// actually retrieved.
func IsNotFoundResponse(answer string) bool {
	return matchesAny(answer, notFoundPatterns)
}

// IsRefusalResponse reports whether answer reads as the Generator
// declining to answer rather than attempting one.
func IsRefusalResponse(answer string) bool {
	return matchesAny(answer, refusalPatterns)
}

// StripReferencesFromNegative removes dangling "Ref #n" mentions from
// an answer that isn't actually delivering a grounded finding, so a
// hedge like "I couldn't find this in Ref #4" doesn't get read as a
// citation by the verification steps that follow.
func StripReferencesFromNegative(answer string) string {
	if !IsNotFoundResponse(answer) && !IsRefusalResponse(answer) {
		return answer
	}
	stripped := answer
	for _, re := range refPatterns {
		stripped = re.ReplaceAllString(stripped, "")
	}
	return stripped
}

// VerifyFactualClaims confirms every exact-match fact the answer
// states (dosages, timeframes, percentages) actually appears in the
// evidence it was generated from. Single-intent answers are checked
// against the combined evidence text; multi-policy answers also
// accept a claim that appears in just one of the cited policies,
// since a single claim legitimately may come from only one of
// several. strict disables the two-claim tolerance multi-policy
// answers otherwise get before the gate blocks on unverified facts.
func VerifyFactualClaims(answer string, evidence []types.Evidence, multiPolicy, strict bool) (verified bool, unverified []string, flags []string) {
	var claims []string
	for _, re := range factClaimPatterns {
		claims = append(claims, re.FindAllString(answer, -1)...)
	}
	if len(claims) == 0 {
		return true, nil, nil
	}

	var combined strings.Builder
	for _, e := range evidence {
		combined.WriteString(strings.ToLower(e.Snippet))
		combined.WriteString(" ")
	}
	combinedText := combined.String()

	for _, claim := range claims {
		needle := strings.ToLower(strings.TrimSpace(claim))
		if strings.Contains(combinedText, needle) {
			continue
		}
		if multiPolicy && evidenceContainsAny(evidence, needle) {
			continue
		}
		unverified = append(unverified, claim)
	}

	if len(unverified) == 0 {
		return true, nil, nil
	}
	if multiPolicy && !strict && len(unverified) <= 2 {
		return true, unverified, []string{types.FlagMinorUnverifiedFact}
	}
	return false, unverified, []string{types.FlagBlockedUnverifiedFact}
}

func evidenceContainsAny(evidence []types.Evidence, needle string) bool {
	for _, e := range evidence {
		if strings.Contains(strings.ToLower(e.Snippet), needle) {
			return true
		}
	}
	return false
}
