package expand

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand_AbbreviationExpansion(t *testing.T) {
	out := Expand("cpap policy")
	assert.Contains(t, strings.ToLower(out.Expanded), "continuous positive airway pressure")
}

func TestExpand_MisspellingCorrection(t *testing.T) {
	out := Expand("patinet consent form")
	assert.Contains(t, strings.ToLower(out.Expanded), "patient")
}

func TestExpand_RespectsMaxWordsInvariant(t *testing.T) {
	out := Expand("nicu pain policy for newborn patients today please")
	words := strings.Fields(out.Expanded)
	originalWords := len(strings.Fields("nicu pain policy for newborn patients today please"))
	max := originalWords * 2
	if max < 6 {
		max = 6
	}
	assert.LessOrEqual(t, len(words), max)
}

func TestExpand_ShortAcronymGetsContext(t *testing.T) {
	out := Expand("sbar")
	assert.Contains(t, strings.ToLower(out.Expanded), "handoff")
}

func TestExpand_PossessiveNormalized(t *testing.T) {
	out := Expand("RUMC's NICU policy")
	assert.NotContains(t, out.Expanded, "'s")
}
