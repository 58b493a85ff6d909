package retrieval_test

import (
	"testing"

	"retrieval-engine/internal/domain"
	"retrieval-engine/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouterFixture(t *testing.T) (*retrieval.Router, *retrieval.Config) {
	t.Helper()
	snap, err := retrieval.NewSnapshot(retrieval.DefaultConfig())
	require.NoError(t, err)
	return retrieval.NewRouter(snap.Matcher), snap.Config
}

func TestRoute_FastPathForcesKnowledgeMode(t *testing.T) {
	router, cfg := newRouterFixture(t)

	plan := router.Route(retrieval.Query{
		WorkspaceID: "ws-1",
		Text:        "#123",
		Mode:        retrieval.ModeHybrid,
	}, domain.SizeLGXL, cfg)

	require.NotNil(t, plan.FastPath)
	assert.Equal(t, retrieval.ModeKnowledge, plan.Mode)
	assert.True(t, plan.LexicalEnabled)
	assert.False(t, plan.VectorEnabled)
	assert.False(t, plan.GraphEnabled)
	assert.False(t, plan.ProfileEnabled)
	assert.Equal(t, cfg.TopK.LexicalIdentifiers, plan.TopKLexical)
	assert.Equal(t, cfg.TopK.LexicalIdentifiers, plan.TopKFused)
	assert.Equal(t, cfg.Rerank.MinKIdentifiers, plan.RerankMinK)
}

func TestRoute_DefaultsToHybrid(t *testing.T) {
	router, cfg := newRouterFixture(t)

	plan := router.Route(retrieval.Query{
		WorkspaceID: "ws-1",
		Text:        "deployment checklist for payments",
	}, domain.SizeMD, cfg)

	assert.Equal(t, retrieval.ModeHybrid, plan.Mode)
	assert.True(t, plan.LexicalEnabled)
	assert.True(t, plan.VectorEnabled)
	assert.True(t, plan.GraphEnabled)
}

func TestRoute_ExplicitModes(t *testing.T) {
	router, cfg := newRouterFixture(t)

	knowledge := router.Route(retrieval.Query{Text: "release notes", Mode: retrieval.ModeKnowledge}, domain.SizeMD, cfg)
	assert.True(t, knowledge.LexicalEnabled)
	assert.False(t, knowledge.VectorEnabled)
	assert.False(t, knowledge.GraphEnabled)

	neural := router.Route(retrieval.Query{Text: "release notes", Mode: retrieval.ModeNeural}, domain.SizeMD, cfg)
	assert.False(t, neural.LexicalEnabled)
	assert.True(t, neural.VectorEnabled)
	assert.False(t, neural.GraphEnabled)
}

func TestRoute_GraphGatedBySizeClass(t *testing.T) {
	router, cfg := newRouterFixture(t)

	small := router.Route(retrieval.Query{Text: "auth service design"}, domain.SizeXSSM, cfg)
	assert.False(t, small.GraphEnabled, "graph bias stays off below the minimum size class")

	medium := router.Route(retrieval.Query{Text: "auth service design"}, domain.SizeMD, cfg)
	assert.True(t, medium.GraphEnabled)
}

func TestRoute_LargeWorkspaceWidensVectorFetch(t *testing.T) {
	router, cfg := newRouterFixture(t)

	plan := router.Route(retrieval.Query{Text: "incident postmortems"}, domain.SizeLGXL, cfg)
	assert.Equal(t, cfg.TopK.VectorLarge, plan.TopKVector)

	planMD := router.Route(retrieval.Query{Text: "incident postmortems"}, domain.SizeMD, cfg)
	assert.Equal(t, cfg.TopK.Vector, planMD.TopKVector)
}

func TestRoute_RequestTopKCapsFused(t *testing.T) {
	router, cfg := newRouterFixture(t)

	plan := router.Route(retrieval.Query{Text: "standup notes", TopK: 20}, domain.SizeMD, cfg)
	assert.Equal(t, 20, plan.TopKFused)

	// A request asking for more than the configured bound keeps the bound.
	wide := router.Route(retrieval.Query{Text: "standup notes", TopK: 500}, domain.SizeMD, cfg)
	assert.Equal(t, cfg.TopK.Fused, wide.TopKFused)
}

func TestRoute_ProfileRequiresIntentAndVector(t *testing.T) {
	router, cfg := newRouterFixture(t)

	ownership := router.Route(retrieval.Query{Text: "who owns the billing pipeline"}, domain.SizeMD, cfg)
	assert.Equal(t, retrieval.IntentOwnership, ownership.Intent)
	assert.True(t, ownership.ProfileEnabled)

	general := router.Route(retrieval.Query{Text: "billing pipeline overview"}, domain.SizeMD, cfg)
	assert.Equal(t, retrieval.IntentGeneral, general.Intent)
	assert.False(t, general.ProfileEnabled)

	// Ownership intent without the dense signal cannot use profiles.
	knowledgeOwner := router.Route(retrieval.Query{Text: "who owns the billing pipeline", Mode: retrieval.ModeKnowledge}, domain.SizeMD, cfg)
	assert.False(t, knowledgeOwner.ProfileEnabled)
}

func TestRoute_PresetWeightsFollowSizeClass(t *testing.T) {
	router, cfg := newRouterFixture(t)

	plan := router.Route(retrieval.Query{Text: "query"}, domain.SizeXSSM, cfg)
	assert.Equal(t, cfg.Presets[domain.SizeXSSM], plan.Weights)
	assert.Equal(t, 0.0, plan.Weights.Graph, "smallest preset carries no graph weight")
}
