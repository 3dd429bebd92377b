package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajor2000/chatcore/internal/types"
	"github.com/sajor2000/chatcore/internal/types/interfaces"
)

func TestRecord_TableName(t *testing.T) {
	assert.Equal(t, "chat_audit_records", Record{}.TableName())
}

func TestToRow_ConvertsAuditRecordFields(t *testing.T) {
	rec := interfaces.AuditRecord{
		RequestID:        "req-1",
		SessionID:        "sess-1",
		Question:         "what is the policy on verbal orders",
		AnswerFound:      true,
		Confidence:       types.ConfidenceHigh,
		SafetyFlags:      []string{types.FlagOutOfScope, types.FlagUnclearQuery},
		NeedsHumanReview: true,
		PipelineVariant:  "rag",
		DurationMS:       125,
		Metrics:          []types.StageMetric{{Stage: "retrieve", DurationMS: 10, Count: 5}},
	}

	row, err := toRow(rec)
	require.NoError(t, err)
	assert.Equal(t, "req-1", row.RequestID)
	assert.Equal(t, "sess-1", row.SessionID)
	assert.Equal(t, "what is the policy on verbal orders", row.Question)
	assert.True(t, row.AnswerFound)
	assert.Equal(t, string(types.ConfidenceHigh), row.Confidence)
	assert.Equal(t, "OUT_OF_SCOPE,UNCLEAR_QUERY", row.SafetyFlags)
	assert.True(t, row.NeedsHumanReview)
	assert.Equal(t, "rag", row.PipelineVariant)
	assert.Equal(t, int64(125), row.DurationMS)
	assert.Contains(t, row.Metrics, "retrieve")
}
