package hints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInject_NoKeywordMatchReturnsNoForcedReferences(t *testing.T) {
	_, forced := Inject("what time does the cafeteria open")
	assert.Empty(t, forced)
}

func TestInject_SingleKeywordForcesItsReference(t *testing.T) {
	_, forced := Inject("what is the policy on verbal order read-back")
	require.Len(t, forced, 1)
	assert.Equal(t, "486", forced[0].ReferenceNumber)
	assert.Equal(t, 0, forced[0].Rank)
}

func TestInject_MultipleKeywordsRankedByFirstSeenOrder(t *testing.T) {
	text := "after a code blue, what is the restraint policy and the fall prevention protocol"
	_, forced := Inject(text)
	require.Len(t, forced, 3)
	assert.Equal(t, "112", forced[0].ReferenceNumber) // code blue appears first
	assert.Equal(t, "204", forced[1].ReferenceNumber) // restraint appears second
	assert.Equal(t, "318", forced[2].ReferenceNumber) // fall prevention appears third
	assert.Equal(t, []int{0, 1, 2}, []int{forced[0].Rank, forced[1].Rank, forced[2].Rank})
}

func TestInject_SynonymKeywordsSharingAReferenceDeduplicate(t *testing.T) {
	_, forced := Inject("clarify the verbal order and telephone order policy")
	require.Len(t, forced, 1)
	assert.Equal(t, "486", forced[0].ReferenceNumber)
}

func TestInject_IsDeterministicAcrossRepeatedCalls(t *testing.T) {
	text := "code blue, restraint, fall prevention, hand-off, advance directive, informed consent"
	_, first := Inject(text)
	for i := 0; i < 20; i++ {
		_, again := Inject(text)
		require.Equal(t, first, again, "Inject must return identical rank ordering on every call")
	}
}

func TestInject_SearchQueryIsExpandedTextUnchanged(t *testing.T) {
	searchQuery, _ := Inject("verbal order policy")
	assert.Equal(t, "verbal order policy", searchQuery)
}
