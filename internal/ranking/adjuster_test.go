package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajor2000/chatcore/internal/config"
	"github.com/sajor2000/chatcore/internal/types"
)

func testConfig() config.RankingConfig {
	return config.RankingConfig{
		ForcedBoostMultiplier: 1.5,
		ForcedScoreFloor:      0.5,
		ForcedRecoveryFloor:   0.35,
		SurgePenalty:          0.3,
		PediatricBoost:        1.3,
		AdultBoost:            1.2,
		LocationBoost:         1.25,
		MMRLambda:             0.6,
		MMRMaxResults:         10,
		ScoreWindow:           0.6,
	}
}

func TestAdjust_BoostsForcedReference(t *testing.T) {
	a := NewAdjuster(testConfig())
	results := []types.RerankResult{
		{SearchResult: types.SearchResult{ReferenceNumber: "486"}, RelevanceScore: 0.1},
		{SearchResult: types.SearchResult{ReferenceNumber: "999"}, RelevanceScore: 0.4},
	}
	forced := []types.ForcedReference{{ReferenceNumber: "486", Rank: 0}}

	out := a.Adjust(results, forced, false, false, "", false)
	require.NotEmpty(t, out)
	assert.Equal(t, "486", out[0].ReferenceNumber, "forced reference should be boosted to the top")
	assert.GreaterOrEqual(t, out[0].RelevanceScore, 0.5)
}

func TestAdjust_RecoversMissingForcedReference(t *testing.T) {
	a := NewAdjuster(testConfig())
	results := []types.RerankResult{
		{SearchResult: types.SearchResult{ReferenceNumber: "999"}, RelevanceScore: 0.9},
	}
	forced := []types.ForcedReference{{ReferenceNumber: "486", Rank: 0, HintQuery: "verbal order policy"}}

	out := a.Adjust(results, forced, false, false, "", false)

	var found bool
	for _, r := range out {
		if r.ReferenceNumber == "486" {
			found = true
			assert.True(t, r.Forced)
		}
	}
	assert.True(t, found, "missing forced reference should be recovered as a synthetic entry")
}

func TestAdjust_ScoreWindowDropsLowOutliers(t *testing.T) {
	a := NewAdjuster(testConfig())
	results := []types.RerankResult{
		{SearchResult: types.SearchResult{ReferenceNumber: "1"}, RelevanceScore: 1.0},
		{SearchResult: types.SearchResult{ReferenceNumber: "2"}, RelevanceScore: 0.9},
		{SearchResult: types.SearchResult{ReferenceNumber: "3"}, RelevanceScore: 0.8},
		{SearchResult: types.SearchResult{ReferenceNumber: "4"}, RelevanceScore: 0.05},
	}

	out := a.Adjust(results, nil, false, false, "", false)
	for _, r := range out {
		assert.NotEqual(t, "4", r.ReferenceNumber, "low-scoring outlier should be filtered by the score window")
	}
}

func TestAdjust_ScoreWindowSkippedForMultiPolicyQueries(t *testing.T) {
	a := NewAdjuster(testConfig())
	results := []types.RerankResult{
		{SearchResult: types.SearchResult{ReferenceNumber: "1"}, RelevanceScore: 1.0},
		{SearchResult: types.SearchResult{ReferenceNumber: "2"}, RelevanceScore: 0.9},
		{SearchResult: types.SearchResult{ReferenceNumber: "3"}, RelevanceScore: 0.8},
		{SearchResult: types.SearchResult{ReferenceNumber: "4"}, RelevanceScore: 0.05},
	}

	out := a.Adjust(results, nil, false, false, "", true)
	var sawOutlier bool
	for _, r := range out {
		if r.ReferenceNumber == "4" {
			sawOutlier = true
		}
	}
	assert.True(t, sawOutlier, "score-window filter is single-intent only; multi-policy queries keep the low scorer")
}

func TestAdjust_MMRAppliesOnlyForMultiPolicyQueries(t *testing.T) {
	cfg := testConfig()
	cfg.MMRMaxResults = 3
	a := NewAdjuster(cfg)
	results := []types.RerankResult{
		{SearchResult: types.SearchResult{ReferenceNumber: "1"}, RelevanceScore: 1.0},
		{SearchResult: types.SearchResult{ReferenceNumber: "1"}, RelevanceScore: 0.95},
		{SearchResult: types.SearchResult{ReferenceNumber: "1"}, RelevanceScore: 0.9},
		{SearchResult: types.SearchResult{ReferenceNumber: "1"}, RelevanceScore: 0.85},
		{SearchResult: types.SearchResult{ReferenceNumber: "2"}, RelevanceScore: 0.7},
	}

	singleIntent := a.Adjust(results, nil, false, false, "", false)
	assert.Len(t, singleIntent, 5, "single-intent queries should not be capped down by MMR (all scores clear the score window)")

	multiPolicy := a.Adjust(results, nil, false, false, "", true)
	assert.Len(t, multiPolicy, 3, "multi-policy queries cap to MMRMaxResults via MMR selection")
	var haveOther bool
	for _, r := range multiPolicy {
		if r.ReferenceNumber == "2" {
			haveOther = true
		}
	}
	assert.True(t, haveOther, "MMR should surface the diverse result rather than three near-duplicates")
}
