package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sajor2000/chatcore/internal/config"
	"github.com/sajor2000/chatcore/internal/types"
)

func TestVerifyResponse_GroundedWhenCitationMatchesEvidence(t *testing.T) {
	evidence := []types.Evidence{
		{ReferenceNumber: "486", Snippet: "Verbal orders must be read back and confirmed by the receiving nurse."},
	}
	answer := "Per Reference #486, verbal orders must be read back and confirmed."

	result := VerifyResponse(answer, evidence)
	assert.True(t, result.IsGrounded)
	assert.Equal(t, 0, len(result.FabricatedRefs))
}

func TestVerifyResponse_FlagsFabricatedReference(t *testing.T) {
	evidence := []types.Evidence{
		{ReferenceNumber: "486", Snippet: "Verbal orders must be read back."},
	}
	answer := "Per Reference #999, you must do the opposite."

	result := VerifyResponse(answer, evidence)
	assert.False(t, result.IsGrounded)
	assert.Contains(t, result.FabricatedRefs, "999")
}

func TestValidate_BlocksOnMedicationHallucination(t *testing.T) {
	evidence := []types.Evidence{{ReferenceNumber: "1", Snippet: "General nursing guidance."}}
	answer := "Administer 500 mg of the drug regardless of weight."

	verification := VerifyResponse(answer, evidence)
	result := Validate(answer, verification, config.SafetyConfig{StrictMode: true})

	assert.False(t, result.Safe)
	assert.Contains(t, result.Flags, types.FlagMedicationRisk)
}

func TestShouldBlock_Thresholds(t *testing.T) {
	cfg := config.SafetyConfig{HallucinationBlockThreshold: 0.5, HumanReviewThreshold: 0.3}

	block, review := ShouldBlock(0.6, cfg)
	assert.True(t, block)
	assert.False(t, review)

	block, review = ShouldBlock(0.35, cfg)
	assert.False(t, block)
	assert.True(t, review)

	block, review = ShouldBlock(0.1, cfg)
	assert.False(t, block)
	assert.False(t, review)
}
