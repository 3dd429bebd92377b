package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sajor2000/chatcore/internal/types"
)

func TestAssess_ScoresOverlapWithQuery(t *testing.T) {
	candidates := []types.SearchResult{
		{Title: "Verbal Orders Policy", Content: "verbal orders must be read back and confirmed"},
		{Title: "Cafeteria Hours", Content: "the cafeteria opens at seven"},
	}
	out := Assess("what is the policy on verbal orders", candidates)
	assert.Len(t, out, 2)
	assert.True(t, out[0].Relevant)
	assert.False(t, out[1].Relevant)
}

func TestDetermineAction_EmptySetRefuses(t *testing.T) {
	assert.Equal(t, ActionRefuse, DetermineAction(nil))
}

func TestDetermineAction_AllRelevantProceeds(t *testing.T) {
	assessments := []Assessment{{Index: 0, Score: 0.5, Relevant: true}, {Index: 1, Score: 0.4, Relevant: true}}
	assert.Equal(t, ActionProceed, DetermineAction(assessments))
}

func TestDetermineAction_PartiallyRelevantFilters(t *testing.T) {
	assessments := []Assessment{{Index: 0, Score: 0.5, Relevant: true}, {Index: 1, Score: 0.01, Relevant: false}}
	assert.Equal(t, ActionFilter, DetermineAction(assessments))
}

func TestDetermineAction_LowAggregateRefuses(t *testing.T) {
	assessments := []Assessment{{Index: 0, Score: 0.01, Relevant: false}, {Index: 1, Score: 0.02, Relevant: false}}
	assert.Equal(t, ActionRefuse, DetermineAction(assessments))
}

func TestFilterByQuality_KeepsOnlyRelevantInOrder(t *testing.T) {
	candidates := []types.SearchResult{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	assessments := []Assessment{
		{Index: 0, Relevant: true},
		{Index: 1, Relevant: false},
		{Index: 2, Relevant: true},
	}
	filtered := FilterByQuality(candidates, assessments)
	assert.Equal(t, []types.SearchResult{{ID: "1"}, {ID: "3"}}, filtered)
}

func TestMissingForced_ReturnsUnmatchedReferencesInOrder(t *testing.T) {
	candidates := []types.SearchResult{{ReferenceNumber: "486"}}
	forced := []types.ForcedReference{
		{ReferenceNumber: "486", Rank: 0},
		{ReferenceNumber: "204", Rank: 1},
		{ReferenceNumber: "112", Rank: 2},
	}
	missing := MissingForced(candidates, forced)
	assert.Equal(t, []types.ForcedReference{
		{ReferenceNumber: "204", Rank: 1},
		{ReferenceNumber: "112", Rank: 2},
	}, missing)
}

func TestMissingForced_NoForcedReturnsNil(t *testing.T) {
	assert.Nil(t, MissingForced(nil, nil))
}

func TestMissingForced_AllPresentReturnsEmpty(t *testing.T) {
	candidates := []types.SearchResult{{ReferenceNumber: "486"}}
	forced := []types.ForcedReference{{ReferenceNumber: "486"}}
	assert.Empty(t, MissingForced(candidates, forced))
}
