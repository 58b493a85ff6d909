package retrieval_test

import (
	"errors"
	"testing"
	"time"

	"retrieval-engine/internal/domain"
	"retrieval-engine/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := retrieval.DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*retrieval.Config)
		field  string
	}{
		{
			name:   "negative weight",
			mutate: func(c *retrieval.Config) { p := c.Presets[domain.SizeMD]; p.Vector = -0.1; c.Presets[domain.SizeMD] = p },
			field:  "weights.wv",
		},
		{
			name:   "missing preset",
			mutate: func(c *retrieval.Config) { delete(c.Presets, domain.SizeLGXL) },
			field:  "presets",
		},
		{
			name:   "zero budget",
			mutate: func(c *retrieval.Config) { c.Budgets.GraphTraversal = 0 },
			field:  "budgets_ms.graph_traversal",
		},
		{
			name:   "zero fused topk",
			mutate: func(c *retrieval.Config) { c.TopK.Fused = 0 },
			field:  "topk.fused",
		},
		{
			name:   "negative rerank min_k",
			mutate: func(c *retrieval.Config) { c.Rerank.MinK = -1 },
			field:  "rerank.min_k",
		},
		{
			name:   "zero half life",
			mutate: func(c *retrieval.Config) { c.Recency.ObservationHalfLifeDays = 0 },
			field:  "recency.observation_half_life_days",
		},
		{
			name:   "too many hops",
			mutate: func(c *retrieval.Config) { c.Graph.MaxHops = 3 },
			field:  "graph.max_hops",
		},
		{
			name:   "hop factor out of range",
			mutate: func(c *retrieval.Config) { c.Graph.HopFactors = []float64{1.0, 1.5} },
			field:  "graph.hop_factors",
		},
		{
			name:   "negative importance boost",
			mutate: func(c *retrieval.Config) { c.Importance.Boosts["incident"] = -0.1 },
			field:  "importance.boosts.incident",
		},
		{
			name:   "no fast path patterns",
			mutate: func(c *retrieval.Config) { c.FastPath.Patterns = nil },
			field:  "fast_path.patterns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := retrieval.DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *domain.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfigValidate_DisabledSectionsSkipped(t *testing.T) {
	cfg := retrieval.DefaultConfig()
	cfg.Rerank.Enabled = false
	cfg.Rerank.TopN = 0
	cfg.Graph.Enabled = false
	cfg.Graph.MaxHops = 99

	require.NoError(t, cfg.Validate(), "disabled sections are not validated")
}

func TestStageBudget(t *testing.T) {
	cfg := retrieval.DefaultConfig()
	assert.Equal(t, 15*time.Millisecond, cfg.StageBudget("graph_traversal"))
	assert.Equal(t, 40*time.Millisecond, cfg.StageBudget("embed"))
	assert.Equal(t, 250*time.Millisecond, cfg.StageBudget("unknown"))
	assert.Equal(t, 250*time.Millisecond, cfg.TotalBudget())
	assert.Equal(t, 30*time.Millisecond, cfg.RerankTimeout())
}

func TestRecencyHalfLives(t *testing.T) {
	cfg := retrieval.DefaultConfig().Recency
	assert.Equal(t, 45.0, cfg.HalfLifeDays(domain.SourceChunk))
	assert.Equal(t, 14.0, cfg.HalfLifeDays(domain.SourceObservation))
	assert.Equal(t, 90.0, cfg.HalfLifeDays(domain.SourceSummary))
	assert.Equal(t, 90.0, cfg.HalfLifeDays(domain.SourceProfile))
}

func TestNewSnapshot_RejectsBadPattern(t *testing.T) {
	cfg := retrieval.DefaultConfig()
	cfg.FastPath.Patterns = []string{`([`}

	_, err := retrieval.NewSnapshot(cfg)
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}
