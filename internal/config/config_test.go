package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaultsWithNoEnvironmentOrFile(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Cache.ExpansionSize)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 100, cfg.Retrieval.TopK)
	assert.Equal(t, 7, cfg.Rerank.TopNDefault)
	assert.Equal(t, 10, cfg.Rerank.TopNMulti)
	assert.Equal(t, 0.1, cfg.Rerank.MinScore)
	assert.Equal(t, 0.0, cfg.Rerank.RetryMinScore)
	assert.Equal(t, 1.5, cfg.Ranking.ForcedBoostMultiplier)
	assert.Equal(t, 0.5, cfg.Safety.HallucinationBlockThreshold)
	assert.Equal(t, 0.3, cfg.Safety.HumanReviewThreshold)
	assert.Contains(t, cfg.Gate.OutOfScopeTopics, "parking")
}

func TestLoad_EnvironmentOverridesDefault(t *testing.T) {
	t.Setenv("CHATCORE_RETRIEVAL_TOP_K", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Retrieval.TopK)
}
