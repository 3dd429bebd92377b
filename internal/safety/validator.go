package safety

import (
	"regexp"

	"github.com/sajor2000/chatcore/internal/config"
	"github.com/sajor2000/chatcore/internal/types"
)

const (
	minConfidenceThreshold  = 0.5
	highConfidenceThreshold = 0.7
)

type checkSeverity string

const (
	severityCritical checkSeverity = "critical"
	severityError    checkSeverity = "error"
	severityWarning  checkSeverity = "warning"
)

// Check is one safety checklist item's outcome.
type Check struct {
	Name     string
	Passed   bool
	Severity checkSeverity
	Detail   string
}

// Result is the full validation outcome for one generated answer.
type Result struct {
	Safe             bool
	ConfidenceLevel  types.ConfidenceLevel
	NeedsHumanReview bool
	Checks           []Check
	Flags            []string
}

var (
	medicationPatterns = compileAll(
		`(?i)\btake\s+\d+\s*(mg|mcg|ml)\b`, `(?i)\badminister\s+\d+`, `(?i)\bdosage\s+of\b`,
	)
	absoluteClaimPatterns = compileAll(
		`(?i)\balways\s+must\b`, `(?i)\bnever\s+allowed\b`, `(?i)\bin\s+all\s+cases\b`,
	)
	citationRe = regexp.MustCompile(`(?i)ref(?:erence)?\s*#?\s*\d+`)
)

// Validate runs the five safety checks against answer and verification,
// and derives safe/confidence_level/needs_human_review.
//
// safe iff no critical/error check fails AND (strict_mode implies
// warnings <= 1). needs_human_review iff confidence is low, or any
// critical check fails, or the medication-hallucination flag fired.
func Validate(answer string, verification VerificationResult, cfg config.SafetyConfig) Result {
	var checks []Check
	var flags []string

	hasCitation := citationRe.MatchString(answer)
	checks = append(checks, Check{
		Name:     "citation_present",
		Passed:   hasCitation,
		Severity: severityWarning,
	})
	if !hasCitation {
		flags = append(flags, types.FlagNoCitation)
	}

	medicationRisk := matchesAny(answer, medicationPatterns) && verification.UngroundedClaims > 0
	checks = append(checks, Check{
		Name:     "no_medication_hallucination",
		Passed:   !medicationRisk,
		Severity: severityCritical,
	})
	if medicationRisk {
		flags = append(flags, types.FlagMedicationRisk)
	}

	checks = append(checks, Check{
		Name:     "no_speculation",
		Passed:   !verification.HasSpeculation,
		Severity: severityWarning,
	})
	if verification.HasSpeculation {
		flags = append(flags, types.FlagSpeculationDetected)
	}

	confidencePassed := verification.Confidence >= minConfidenceThreshold
	checks = append(checks, Check{
		Name:     "confidence_threshold",
		Passed:   confidencePassed,
		Severity: severityError,
	})
	if !confidencePassed {
		flags = append(flags, types.FlagLowConfidence)
	}

	ungroundedAbsolute := matchesAny(answer, absoluteClaimPatterns) && !verification.IsGrounded
	checks = append(checks, Check{
		Name:     "no_ungrounded_absolute_claims",
		Passed:   !ungroundedAbsolute,
		Severity: severityWarning,
	})
	if ungroundedAbsolute {
		flags = append(flags, types.FlagUngroundedAbsolute)
	}

	var criticalFailed, errorFailed, warningFailed int
	for _, c := range checks {
		if c.Passed {
			continue
		}
		switch c.Severity {
		case severityCritical:
			criticalFailed++
		case severityError:
			errorFailed++
		case severityWarning:
			warningFailed++
		}
	}

	safe := criticalFailed == 0 && errorFailed == 0
	if safe && cfg.StrictMode && warningFailed > 1 {
		safe = false
	}

	level := confidenceLevel(verification.Confidence)
	needsReview := level == types.ConfidenceLow || criticalFailed > 0 || medicationRisk

	return Result{
		Safe:             safe,
		ConfidenceLevel:  level,
		NeedsHumanReview: needsReview,
		Checks:           checks,
		Flags:            flags,
	}
}

func confidenceLevel(confidence float64) types.ConfidenceLevel {
	switch {
	case confidence >= highConfidenceThreshold:
		return types.ConfidenceHigh
	case confidence >= minConfidenceThreshold:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

// ShouldBlock applies the block/review thresholds from the safety
// configuration surface: hallucination risk above
// HallucinationBlockThreshold blocks the response outright; above
// HumanReviewThreshold but below the block threshold routes it to
// human review instead of blocking.
func ShouldBlock(risk float64, cfg config.SafetyConfig) (block, review bool) {
	if risk > cfg.HallucinationBlockThreshold {
		return true, false
	}
	if risk > cfg.HumanReviewThreshold {
		return false, true
	}
	return false, false
}
