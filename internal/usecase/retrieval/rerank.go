package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"retrieval-engine/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SnippetCache caches candidate texts for frequently reranked
// candidates to avoid repeated hydration cost. It is a pure performance
// optimization: a miss hydrates directly and must produce an identical
// result, just slower. Keys are namespaced by workspace.
type SnippetCache struct {
	cache *lru.Cache[string, string]
}

func NewSnippetCache(size int) (*SnippetCache, error) {
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &SnippetCache{cache: c}, nil
}

func snippetKey(workspaceID, candidateID string) string {
	return workspaceID + "/" + candidateID
}

func (s *SnippetCache) Get(workspaceID, candidateID string) (string, bool) {
	if s == nil {
		return "", false
	}
	return s.cache.Get(snippetKey(workspaceID, candidateID))
}

func (s *SnippetCache) Add(workspaceID, candidateID, text string) {
	if s == nil {
		return
	}
	s.cache.Add(snippetKey(workspaceID, candidateID), text)
}

// Reranker wraps the external cross-encoder with gating, snippet
// hydration, and fail-open behavior: any error keeps the fused order.
type Reranker struct {
	model    domain.Reranker
	hydrator domain.Hydrator
	cache    *SnippetCache
	logger   *slog.Logger
}

func NewReranker(model domain.Reranker, hydrator domain.Hydrator, cache *SnippetCache, logger *slog.Logger) *Reranker {
	return &Reranker{model: model, hydrator: hydrator, cache: cache, logger: logger}
}

// Rerank reorders the fused top-K with the cross-encoder and truncates
// to topN. Candidates the model does not score keep their fused score.
// Returns the fused order unchanged on any upstream failure.
func (r *Reranker) Rerank(ctx context.Context, workspaceID, query string, fused []domain.FusedResult, topN int, threshold float64) ([]domain.FusedResult, error) {
	if len(fused) == 0 || r.model == nil {
		return truncate(fused, topN), nil
	}
	start := time.Now()

	texts, err := r.candidateTexts(ctx, workspaceID, fused)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.RerankCandidate, 0, len(fused))
	for i, f := range fused {
		candidates = append(candidates, domain.RerankCandidate{
			ID:      f.Candidate.ID,
			Content: texts[i],
			Score:   f.Score,
		})
	}

	scored, err := r.model.Rerank(ctx, query, candidates)
	if err != nil {
		return nil, err
	}

	scoreByID := make(map[string]float64, len(scored))
	for _, s := range scored {
		scoreByID[s.ID] = s.Score
	}

	reranked := make([]domain.FusedResult, len(fused))
	copy(reranked, fused)
	for i := range reranked {
		if s, ok := scoreByID[reranked[i].Candidate.ID]; ok {
			reranked[i].Score = s
		}
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	if threshold > 0 {
		kept := reranked[:0]
		for _, f := range reranked {
			if f.Score >= threshold {
				kept = append(kept, f)
			}
		}
		reranked = kept
	}

	r.logger.Info("reranking_completed",
		slog.Int("candidate_count", len(candidates)),
		slog.Int("result_count", len(reranked)),
		slog.String("model", r.model.ModelName()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return truncate(reranked, topN), nil
}

// candidateTexts resolves candidate texts from the snippet cache,
// hydrating only the misses.
func (r *Reranker) candidateTexts(ctx context.Context, workspaceID string, fused []domain.FusedResult) ([]string, error) {
	texts := make([]string, len(fused))
	var missing []domain.ContentID
	missingAt := make(map[string][]int)

	for i, f := range fused {
		if text, ok := r.cache.Get(workspaceID, f.Candidate.ID); ok {
			texts[i] = text
			continue
		}
		id := f.Candidate.ID
		if len(missingAt[id]) == 0 {
			missing = append(missing, domain.ContentID{Kind: f.Candidate.SourceType, ID: id})
		}
		missingAt[id] = append(missingAt[id], i)
	}

	if len(missing) == 0 {
		return texts, nil
	}
	contents, err := r.hydrator.Fetch(ctx, workspaceID, missing)
	if err != nil {
		return nil, err
	}
	for _, content := range contents {
		for _, i := range missingAt[content.ID] {
			texts[i] = content.Text
		}
		r.cache.Add(workspaceID, content.ID, content.Text)
	}
	// Candidates that failed to hydrate fall back to their title so the
	// cross-encoder still sees something scoreable.
	for i, f := range fused {
		if texts[i] == "" {
			texts[i] = f.Candidate.Title
		}
	}
	return texts, nil
}

func truncate(results []domain.FusedResult, topN int) []domain.FusedResult {
	if topN > 0 && len(results) > topN {
		return results[:topN]
	}
	return results
}

// Truncate bounds a fused list to topN, used when reranking is gated off
// so the output shape matches the reranked path.
func Truncate(results []domain.FusedResult, topN int) []domain.FusedResult {
	return truncate(results, topN)
}
