package retrieval_test

import (
	"testing"

	"retrieval-engine/internal/domain"
	"retrieval-engine/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRationale_RecordsSkippedStages(t *testing.T) {
	plan := retrieval.RoutingPlan{Mode: retrieval.ModeHybrid, SizeClass: domain.SizeMD}
	stages := []retrieval.StageReport{
		{Name: "lexical", DurationMS: 12},
		{Name: "vector", DurationMS: 30},
		{Name: "graph_traversal", Skipped: true, Reason: domain.SkipBudgetExceeded},
		{Name: "rerank", Skipped: true, Reason: domain.SkipBelowMinK},
	}
	results := fusedFixture("a", "b")

	r := retrieval.BuildRationale(plan, stages, nil, results)
	require.NotNil(t, r)
	assert.Equal(t, retrieval.ModeHybrid, r.RouterMode)
	assert.Equal(t, domain.SizeMD, r.RouterScope)
	require.Len(t, r.Stages, 4)
	assert.True(t, r.Stages[2].Skipped)
	assert.Equal(t, domain.SkipBudgetExceeded, r.Stages[2].Reason)
	assert.Empty(t, r.Note)
}

func TestBuildRationale_GraphSectionOnlyWhenInfluential(t *testing.T) {
	plan := retrieval.RoutingPlan{Mode: retrieval.ModeHybrid}
	traversal := &domain.GraphTraversal{
		Entities: []domain.GraphEntity{{ID: "e1", Name: "billing"}},
		Evidence: []domain.GraphEvidence{
			{ChunkID: "c1", EntityID: "e1", Hop: 1},
			{ChunkID: "c1", EntityID: "e1", Hop: 2}, // duplicate chunk
		},
	}

	// No graph contribution in the results: section stays absent.
	plain := fusedFixture("a")
	r := retrieval.BuildRationale(plan, nil, traversal, plain)
	assert.Nil(t, r.Graph)

	// A graph contribution surfaces the section with deduped evidence.
	boosted := fusedFixture("c1")
	boosted[0].Contributions = map[domain.Signal]float64{domain.SignalGraph: 0.15}
	r = retrieval.BuildRationale(plan, nil, traversal, boosted)
	require.NotNil(t, r.Graph)
	assert.Equal(t, []string{"c1"}, r.Graph.EvidenceChunkIDs)
	assert.Len(t, r.Graph.Entities, 1)
}

func TestBuildRationale_EmptyResultNotes(t *testing.T) {
	plan := retrieval.RoutingPlan{Mode: retrieval.ModeHybrid}

	allSkipped := []retrieval.StageReport{
		{Name: "lexical", Skipped: true, Reason: domain.SkipUpstreamUnavailable},
		{Name: "vector", Skipped: true, Reason: domain.SkipUpstreamUnavailable},
	}
	r := retrieval.BuildRationale(plan, allSkipped, nil, nil)
	assert.Contains(t, r.Note, "skipped")

	ranButEmpty := []retrieval.StageReport{
		{Name: "lexical", DurationMS: 5},
	}
	r = retrieval.BuildRationale(plan, ranButEmpty, nil, nil)
	assert.Contains(t, r.Note, "no candidates")
}

func TestBuildRationale_ContributionShares(t *testing.T) {
	plan := retrieval.RoutingPlan{Mode: retrieval.ModeHybrid}
	results := []domain.FusedResult{
		{Candidate: domain.Candidate{ID: "a", SourceType: domain.SourceChunk}, Score: 0.6},
		{Candidate: domain.Candidate{ID: "b", SourceType: domain.SourceChunk}, Score: 0.2},
		{Candidate: domain.Candidate{ID: "c", SourceType: domain.SourceSummary}, Score: 0.2},
	}

	r := retrieval.BuildRationale(plan, nil, nil, results)
	assert.InDelta(t, 0.8, r.ContributionShares[domain.SourceChunk], 1e-9)
	assert.InDelta(t, 0.2, r.ContributionShares[domain.SourceSummary], 1e-9)
}
