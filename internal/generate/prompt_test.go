package generate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sajor2000/chatcore/internal/types"
)

func TestBuildContexts_RendersOneSourceBlockPerEvidence(t *testing.T) {
	evidence := []types.Evidence{
		{Title: "Verbal Orders Policy", ReferenceNumber: "486", Section: "3.2", Snippet: "must be read back"},
		{Title: "Restraint Policy", ReferenceNumber: "204", Section: "1.1", Snippet: "requires a physician order"},
	}
	out := BuildContexts(evidence)
	assert.Contains(t, out, "[Source 1] Verbal Orders Policy (Ref #486, 3.2)")
	assert.Contains(t, out, "must be read back")
	assert.Contains(t, out, "[Source 2] Restraint Policy (Ref #204, 1.1)")
	assert.Contains(t, out, "requires a physician order")
}

func TestBuildContexts_EmptyEvidenceReturnsEmptyString(t *testing.T) {
	assert.Equal(t, "", BuildContexts(nil))
}

func TestRenderSystemPrompt_SubstitutesContextsAndCurrentTime(t *testing.T) {
	evidence := []types.Evidence{{Title: "Verbal Orders Policy", ReferenceNumber: "486"}}
	rendered := RenderSystemPrompt(DefaultSystemPrompt, "what is the verbal order policy", evidence)

	assert.NotContains(t, rendered, "{{contexts}}")
	assert.NotContains(t, rendered, "{{current_time}}")
	assert.Contains(t, rendered, "Verbal Orders Policy")
}

func TestRenderSystemPrompt_LeavesUnknownPlaceholdersUntouched(t *testing.T) {
	rendered := RenderSystemPrompt("static template with {{unknown}} placeholder", "query", nil)
	assert.True(t, strings.HasPrefix(rendered, "static template"))
	assert.Contains(t, rendered, "{{unknown}}")
}
