// Package gate implements the Request Gate: four fixed-order checks
// that can terminate a request before any cache lookup or external
// call, grounded on the source system's early-return checks
// (_is_unclear_query, out-of-scope topic detection, device-ambiguity
// detection, _is_adversarial_query) reordered into one sequential
// pipeline per the spec's "runs in fixed order" requirement.
package gate

import (
	"regexp"
	"strings"

	"github.com/sajor2000/chatcore/internal/config"
	"github.com/sajor2000/chatcore/internal/types"
)

// Verdict is the Gate's decision for one request: either it passes
// through untouched, or it carries a terminal Response the caller
// must return without running the rest of the pipeline.
type Verdict struct {
	Blocked  bool
	Response types.Response
}

var vagueIntentPatterns = compileAll(
	`(?i)^(hi|hello|hey|test|testing)\.?$`,
	`(?i)^(help|\?+)$`,
	`(?i)^(what|tell me about)\s+(this|that|it)\??$`,
)

var adversarialPatterns = compileAll(
	`(?i)ignore\s+(all\s+)?previous\s+instructions`,
	`(?i)ignore\s+the\s+above`,
	`(?i)you\s+are\s+now\s+(a|an)\b`,
	`(?i)act\s+as\s+(a|an)\s+\w+\s+(with no|without)\s+restrictions`,
	`(?i)pretend\s+(you|to be)\b`,
	`(?i)disregard\s+your\s+(instructions|guidelines|training)`,
	`(?i)reveal\s+your\s+(system\s+)?prompt`,
	`(?i)do\s+anything\s+now\b`,
	`(?i)jailbreak`,
	`(?i)bypass\s+(the\s+)?safety`,
)

// ambiguousDeviceTerms maps a device shorthand to the clarifying
// question and the specific devices it could mean.
var ambiguousDeviceTerms = map[string]struct {
	Message string
	Options []types.ClarificationOption
}{
	"cpap": {
		Message: "Do you mean CPAP (Continuous Positive Airway Pressure) for sleep apnea, or BiPAP (Bilevel Positive Airway Pressure) for respiratory support?",
		Options: []types.ClarificationOption{
			{Label: "CPAP — sleep apnea therapy", Value: "cpap_sleep_apnea"},
			{Label: "BiPAP — respiratory support", Value: "bipap_respiratory"},
		},
	},
	"picc": {
		Message: "Do you mean PICC line insertion/care, or a different vascular access device?",
		Options: []types.ClarificationOption{
			{Label: "PICC line", Value: "picc_line"},
			{Label: "Central line (non-PICC)", Value: "central_line"},
		},
	},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Check runs the four Request Gate checks, in order, against the raw
// user text. A passthrough Verdict means the caller should continue
// to the Query Expander; the caller must never reach the cache layer
// or any external call before calling Check.
func Check(text string, cfg config.GateConfig) Verdict {
	if v, blocked := checkUnclear(text); blocked {
		return v
	}
	if v, blocked := checkOutOfScope(text, cfg.OutOfScopeTopics); blocked {
		return v
	}
	if v, blocked := checkAmbiguousDevice(text); blocked {
		return v
	}
	if v, blocked := checkAdversarial(text); blocked {
		return v
	}
	return Verdict{}
}

func checkUnclear(text string) (Verdict, bool) {
	trimmed := strings.TrimSpace(text)
	stripped := strings.TrimFunc(trimmed, func(r rune) bool {
		return !isAlnum(r)
	})
	if trimmed == "" || len(stripped) <= 1 {
		return unclearVerdict(), true
	}
	for _, re := range vagueIntentPatterns {
		if re.MatchString(trimmed) {
			return unclearVerdict(), true
		}
	}
	return Verdict{}, false
}

func unclearVerdict() Verdict {
	const msg = "I'm not sure what policy question you're asking. Could you rephrase with more detail — for example, name the procedure, device, or situation you need guidance on?"
	return Verdict{
		Blocked: true,
		Response: types.Response{
			Text:       msg,
			Summary:    msg,
			Found:      false,
			Confidence: types.ConfidenceClarificationNeeded,
			SafetyFlags: []string{types.FlagUnclearQuery},
		},
	}
}

func checkOutOfScope(text string, topics []string) (Verdict, bool) {
	lower := strings.ToLower(text)
	for _, topic := range topics {
		if strings.Contains(lower, topic) {
			const msg = "I couldn't find a policy that covers that topic. This assistant only answers questions about clinical and administrative policies."
			return Verdict{
				Blocked: true,
				Response: types.Response{
					Text:        msg,
					Summary:     msg,
					Found:       false,
					Confidence:  types.ConfidenceLow,
					SafetyFlags: []string{types.FlagOutOfScope},
				},
			}, true
		}
	}
	return Verdict{}, false
}

func checkAmbiguousDevice(text string) (Verdict, bool) {
	lower := strings.ToLower(text)
	for term, entry := range ambiguousDeviceTerms {
		if strings.Contains(lower, term) {
			return Verdict{
				Blocked: true,
				Response: types.Response{
					Text:                 entry.Message,
					Summary:              entry.Message,
					Found:                false,
					Confidence:           types.ConfidenceClarificationNeeded,
					ClarificationOptions: entry.Options,
				},
			}, true
		}
	}
	return Verdict{}, false
}

func checkAdversarial(text string) (Verdict, bool) {
	for _, re := range adversarialPatterns {
		if re.MatchString(text) {
			const msg = "I can't follow instructions that ask me to change how I operate. I can only answer questions about clinical and administrative policy using the verified policy index."
			return Verdict{
				Blocked: true,
				Response: types.Response{
					Text:        msg,
					Summary:     msg,
					Found:       false,
					Confidence:  types.ConfidenceLow,
					SafetyFlags: []string{types.FlagAdversarialBlocked},
				},
			}, true
		}
	}
	return Verdict{}, false
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
