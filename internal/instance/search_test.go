package instance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajor2000/chatcore/internal/types"
)

type fakeSource struct {
	allChunks    []types.SearchResult
	semanticHits []types.SearchResult
}

func (f *fakeSource) ChunksByReference(ctx context.Context, referenceNumber string) ([]types.SearchResult, error) {
	return f.allChunks, nil
}

func (f *fakeSource) SearchWithinPolicy(ctx context.Context, referenceNumber, query string, topK int) ([]types.SearchResult, error) {
	return f.semanticHits, nil
}

func TestUseSemantic_ShortTermIsExact(t *testing.T) {
	assert.False(t, useSemantic("employee"))
	assert.False(t, useSemantic("PTO accrual"))
}

func TestUseSemantic_QuestionIsSemantic(t *testing.T) {
	assert.True(t, useSemantic("where does it discuss training requirements"))
	assert.True(t, useSemantic("what is the process"))
}

func TestSearchExact_FindsAllOccurrencesWithContext(t *testing.T) {
	source := &fakeSource{
		allChunks: []types.SearchResult{
			{ID: "c1", Title: "Employee Records Policy", Section: "2. Access", Content: "An employee may request their employee record at any time.", ChunkIndex: 0},
		},
	}
	h := NewHandler(source)

	result, err := h.SearchExact(context.Background(), "486", "employee")
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalInstances)
	assert.Equal(t, "Employee Records Policy", result.PolicyTitle)
	assert.Equal(t, "2", result.Instances[0].Section)
	assert.Equal(t, "Access", result.Instances[0].SectionTitle)
}

func TestSearchSemantic_TreatsEachChunkAsASection(t *testing.T) {
	source := &fakeSource{
		semanticHits: []types.SearchResult{
			{ID: "c1", Title: "Training Policy", Section: "3. Training Requirements", Content: "Staff must complete annual training."},
		},
	}
	h := NewHandler(source)

	result, err := h.SearchSemantic(context.Background(), "900", "training requirements")
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalInstances)
	assert.Equal(t, "Staff must complete annual training.", result.Instances[0].Context)
}

func TestSearch_NoChunksReturnsEmptyResult(t *testing.T) {
	h := NewHandler(&fakeSource{})
	result, err := h.SearchWithinPolicy(context.Background(), "000", "anything")
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalInstances)
}
