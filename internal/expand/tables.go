// Package expand implements the Query Expander: synonym, abbreviation,
// misspelling, and compound-term expansion grounded on the source
// system's synonym service, so a retrieval search for "cpap" also
// matches chunks indexed under "continuous positive airway pressure".
package expand

import "strings"

// misspellings maps a common misspelling to its correction.
var misspellings = map[string]string{
	"mynocardial":  "myocardial",
	"neumonia":     "pneumonia",
	"recieve":      "receive",
	"seperate":     "separate",
	"occured":      "occurred",
	"medecation":   "medication",
	"patinet":      "patient",
	"catheder":     "catheter",
	"resusitation": "resuscitation",
}

// abbreviationStopWords are short common English words that happen to
// collide with a clinical abbreviation; never expand these.
var abbreviationStopWords = map[string]struct{}{
	"it": {}, "is": {}, "in": {}, "at": {}, "as": {}, "or": {}, "an": {},
	"am": {}, "be": {}, "do": {}, "go": {}, "he": {}, "me": {}, "my": {},
	"no": {}, "of": {}, "on": {}, "so": {}, "to": {}, "up": {}, "us": {},
	"we": {}, "by": {}, "if": {}, "ms": {}, "mr": {}, "vs": {}, "pm": {},
}

// abbreviations maps a clinical abbreviation to its primary expansion.
var abbreviations = map[string]string{
	"ed":     "emergency department",
	"icu":    "intensive care",
	"nicu":   "neonatal ICU",
	"picu":   "pediatric ICU",
	"cpap":   "continuous positive airway pressure",
	"bipap":  "non-invasive positive pressure ventilation",
	"dnr":    "do not resuscitate",
	"ama":    "against medical advice",
	"sbar":   "situation background assessment recommendation",
	"rrt":    "rapid response team",
	"hipaa":  "privacy patient information",
	"npo":    "nothing by mouth fasting",
	"picc":   "peripherally inserted central catheter",
	"cvc":    "central venous catheter",
	"iv":     "peripheral intravenous",
	"rn":     "registered nurse",
	"lpn":    "licensed practical nurse",
	"cna":    "certified nursing assistant",
	"vte":    "venous thromboembolism",
	"dvt":    "deep vein thrombosis",
	"mrsa":   "methicillin-resistant staphylococcus aureus",
	"poct":   "point of care testing",
	"irb":    "institutional review board",
	"emtala": "emergency medical treatment and labor act",
}

// compoundExpansions adds contextual terms when both words of a pair
// appear anywhere in the query, keyed by the [2]string pair of
// lower-cased terms.
var compoundExpansions = map[[2]string]string{
	{"nicu", "pain"}:        "neonatal ICU pain assessment FLACC N-PASS infant",
	{"picu", "pain"}:        "pediatric ICU pain assessment FLACC Wong-Baker child",
	{"pediatric", "pain"}:   "PICU pain assessment child FLACC Wong-Baker",
	{"ed", "pain"}:          "emergency department pain assessment triage pain score",
	{"labor", "pain"}:       "labor and delivery pain assessment obstetric epidural",
	{"urinary", "catheter"}: "Foley catheter indwelling bladder",
	{"central", "line"}:     "central venous line CVC PICC central catheter",
	{"code", "blue"}:        "code blue cardiac arrest resuscitation CPR",
	{"advance", "directive"}: "advance directive advance care planning DNR end-of-life",
}

// singleTermExpansions adds context for a clinical term when no
// compound pair matched, capped to 4 new words per hit.
var singleTermExpansions = map[string]string{
	"neonatal":  "NICU neonatal intensive care newborn infant",
	"pediatric": "PICU pediatric intensive care child children",
	"restraint": "restraint seclusion physical restraint chemical restraint",
	"fall":      "fall prevention fall risk patient falls",
	"medication": "medication administration drug dispensing pharmacy",
	"infection": "infection control infection prevention HAI",
	"consent":   "informed consent consent form authorization patient consent",
}

// shortQueryContext adds domain context to queries of two words or
// fewer, so bare acronyms still retrieve the right chunks.
var shortQueryContext = map[string]string{
	"sbar":      "situation background assessment recommendation handoff",
	"rrt":       "rapid response team family",
	"handoff":   "hand-off communication report",
	"latex":     "latex allergy product precautions",
	"dnr":       "do not resuscitate",
	"icu":       "intensive care critical",
	"ed":        "emergency department ER",
	"cpr":       "resuscitation cardiac arrest",
	"fall":      "fall prevention risk",
}

func compoundKey(a, b string) ([2]string, bool) {
	if _, ok := compoundExpansions[[2]string{a, b}]; ok {
		return [2]string{a, b}, true
	}
	if _, ok := compoundExpansions[[2]string{b, a}]; ok {
		return [2]string{b, a}, true
	}
	return [2]string{}, false
}

func containsWord(haystack, word string) bool {
	return strings.Contains(" "+haystack+" ", " "+word+" ")
}
