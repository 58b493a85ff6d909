package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"retrieval-engine/internal/domain"
	"retrieval-engine/internal/infra/logger"
	"retrieval-engine/internal/usecase/retrieval"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// newRequestID reuses the ID stamped by the HTTP request scope
// middleware when present, so response bodies and request logs agree.
func newRequestID(ctx context.Context) string {
	if id := logger.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// ConfigProvider yields the active retrieval configuration snapshot for
// a request.
type ConfigProvider interface {
	Current() *retrieval.Snapshot
}

// StaticConfig is a ConfigProvider over a fixed snapshot, used by tests
// and the CLI.
type StaticConfig struct {
	Snapshot *retrieval.Snapshot
}

func (s StaticConfig) Current() *retrieval.Snapshot { return s.Snapshot }

// SearchInput defines the input parameters for Search.
type SearchInput struct {
	WorkspaceID string
	Query       string
	TopK        int
	Mode        string
	// LabelFilters keeps only candidates carrying at least one of the
	// given labels. Empty means no filtering.
	LabelFilters     []string
	IncludeRationale bool
}

// SearchResultItem is a single ranked result.
type SearchResultItem struct {
	DocumentID string
	ChunkID    string
	Title      string
	Score      float64
	SourceType string
}

// SearchOutput defines the output for Search.
type SearchOutput struct {
	Results   []SearchResultItem
	Rationale *retrieval.Rationale
	LatencyMS int64
	RequestID string
}

// SearchUsecase runs the hybrid retrieval pipeline for one query.
type SearchUsecase interface {
	Execute(ctx context.Context, input SearchInput) (*SearchOutput, error)
}

type searchUsecase struct {
	config   ConfigProvider
	lexical  domain.LexicalIndex
	vector   domain.VectorIndex
	embedder domain.Embedder
	graph    domain.GraphStore
	profiles domain.ProfileStore
	hydrator domain.Hydrator
	stats    domain.WorkspaceStats
	reranker *retrieval.Reranker
	logger   *slog.Logger
	now      func() time.Time
}

// SearchOption configures optional collaborators.
type SearchOption func(*searchUsecase)

// WithReranker attaches the cross-encoder second pass.
func WithReranker(r *retrieval.Reranker) SearchOption {
	return func(u *searchUsecase) { u.reranker = r }
}

// WithClock overrides the recency clock, for tests.
func WithClock(now func() time.Time) SearchOption {
	return func(u *searchUsecase) { u.now = now }
}

// NewSearchUsecase creates a new SearchUsecase.
func NewSearchUsecase(
	config ConfigProvider,
	lexical domain.LexicalIndex,
	vector domain.VectorIndex,
	embedder domain.Embedder,
	graph domain.GraphStore,
	profiles domain.ProfileStore,
	hydrator domain.Hydrator,
	stats domain.WorkspaceStats,
	logger *slog.Logger,
	opts ...SearchOption,
) SearchUsecase {
	u := &searchUsecase{
		config:   config,
		lexical:  lexical,
		vector:   vector,
		embedder: embedder,
		graph:    graph,
		profiles: profiles,
		hydrator: hydrator,
		stats:    stats,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *searchUsecase) Execute(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	if input.WorkspaceID == "" || strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrInvalidQuery
	}

	requestID := newRequestID(ctx)
	snap := u.config.Current()
	cfg := snap.Config
	log := u.logger.With(
		slog.String("request_id", requestID),
		slog.String("workspace_id", input.WorkspaceID))

	sup := retrieval.NewSupervisor(cfg.TotalBudget(), log)

	sizeClass := u.sizeClass(ctx, input.WorkspaceID, log)
	query := retrieval.Query{
		WorkspaceID:      input.WorkspaceID,
		Text:             input.Query,
		TopK:             input.TopK,
		Mode:             retrieval.Mode(input.Mode),
		IncludeRationale: input.IncludeRationale,
	}
	plan := retrieval.NewRouter(snap.Matcher).Route(query, sizeClass, cfg)

	log.Info("routing_decided",
		slog.String("mode", string(plan.Mode)),
		slog.String("size_class", string(plan.SizeClass)),
		slog.String("intent", string(plan.Intent)),
		slog.Bool("fast_path", plan.FastPath != nil),
		slog.Bool("graph_enabled", plan.GraphEnabled),
		slog.Bool("profile_enabled", plan.ProfileEnabled))

	signals := u.fetchSignals(ctx, sup, plan, query, cfg)

	merged := retrieval.MergeCandidates(signals.Lexical, signals.Vector, signals.Profile)
	merged = filterByLabels(merged, input.LabelFilters)
	retrieval.ApplyGraphBoost(merged, signals.Graph, cfg.Graph.HopFactors)
	retrieval.ApplyRecency(merged, cfg.Recency, u.now())
	retrieval.ApplyImportance(merged, cfg.Importance)

	fused := retrieval.Fuse(merged, plan.Weights, plan.TopKFused)
	log.Info("fusion_completed",
		slog.Int("candidate_count", len(merged)),
		slog.Int("fused_count", len(fused)))

	final := u.rerankStage(ctx, sup, plan, query, cfg, fused)

	output := &SearchOutput{
		Results:   toResultItems(final),
		LatencyMS: sup.Elapsed().Milliseconds(),
		RequestID: requestID,
	}
	if input.IncludeRationale {
		output.Rationale = retrieval.BuildRationale(plan, sup.Reports(), signals.Graph, final)
	}

	log.Info("search_completed",
		slog.Int("result_count", len(output.Results)),
		slog.Int64("latency_ms", output.LatencyMS))
	return output, nil
}

// fetchSignals runs the enabled signal retrievers concurrently under
// their budgets. Retriever failures and timeouts are absorbed: each
// skipped stage contributes no candidates and is recorded by the
// supervisor. The returned set is safe to read once this returns; the
// errgroup wait is the synchronization barrier.
func (u *searchUsecase) fetchSignals(ctx context.Context, sup *retrieval.Supervisor, plan retrieval.RoutingPlan, query retrieval.Query, cfg *retrieval.Config) retrieval.SignalSet {
	var signals retrieval.SignalSet

	// Identifier fast path: lexical only, queried with the matched
	// value; vector and graph are bypassed entirely.
	if plan.FastPath != nil {
		candidates, _ := retrieval.RunStage(ctx, sup, "lexical", cfg.StageBudget("lexical"), func(c context.Context) ([]domain.Candidate, error) {
			return retrieval.LexicalRetrieve(c, u.lexical, query.WorkspaceID, plan.FastPath.RawValue, plan.TopKLexical, true)
		})
		signals.Lexical = candidates
		sup.RecordSkip("vector", domain.SkipFastPath)
		sup.RecordSkip("graph_traversal", domain.SkipFastPath)
		return signals
	}

	g, gctx := errgroup.WithContext(ctx)

	if plan.LexicalEnabled {
		g.Go(func() error {
			candidates, _ := retrieval.RunStage(gctx, sup, "lexical", cfg.StageBudget("lexical"), func(c context.Context) ([]domain.Candidate, error) {
				return retrieval.LexicalRetrieve(c, u.lexical, query.WorkspaceID, query.Text, plan.TopKLexical, false)
			})
			signals.Lexical = candidates
			return nil
		})
	} else {
		sup.RecordSkip("lexical", domain.SkipNotInPlan)
	}

	if plan.GraphEnabled {
		g.Go(func() error {
			traversal, _ := retrieval.RunStage(gctx, sup, "graph_traversal", cfg.StageBudget("graph_traversal"), func(c context.Context) (*domain.GraphTraversal, error) {
				return retrieval.GraphRetrieve(c, u.graph, query.WorkspaceID, query.Text, plan.Intent, cfg.Graph)
			})
			signals.Graph = traversal
			return nil
		})
	} else {
		sup.RecordSkip("graph_traversal", domain.SkipNotInPlan)
	}

	if plan.VectorEnabled || plan.ProfileEnabled {
		g.Go(func() error {
			vector, embedRep := retrieval.RunStage(gctx, sup, "embed", cfg.StageBudget("embed"), func(c context.Context) ([]float32, error) {
				vectors, err := u.embedder.Embed(c, []string{query.Text})
				if err != nil {
					return nil, err
				}
				if len(vectors) == 0 {
					return nil, nil
				}
				return vectors[0], nil
			})
			if embedRep.Skipped || len(vector) == 0 {
				// Without an embedding neither dense signal can run.
				if plan.VectorEnabled {
					sup.RecordSkip("vector", domain.SkipUpstreamUnavailable)
				}
				if plan.ProfileEnabled {
					sup.RecordSkip("profile", domain.SkipUpstreamUnavailable)
				}
				return nil
			}

			inner, ictx := errgroup.WithContext(gctx)
			if plan.VectorEnabled {
				inner.Go(func() error {
					candidates, _ := retrieval.RunStage(ictx, sup, "vector", cfg.StageBudget("vector"), func(c context.Context) ([]domain.Candidate, error) {
						return retrieval.VectorRetrieve(c, u.vector, query.WorkspaceID, vector, plan.TopKVector)
					})
					signals.Vector = candidates
					return nil
				})
			}
			if plan.ProfileEnabled {
				inner.Go(func() error {
					candidates, _ := retrieval.RunStage(ictx, sup, "profile", cfg.StageBudget("profile"), func(c context.Context) ([]domain.Candidate, error) {
						return retrieval.ProfileRetrieve(c, u.profiles, query.WorkspaceID, vector, plan.TopKVector)
					})
					signals.Profile = candidates
					return nil
				})
			}
			return inner.Wait()
		})
	} else {
		sup.RecordSkip("vector", domain.SkipNotInPlan)
	}

	_ = g.Wait()
	return signals
}

// rerankStage applies the gated cross-encoder pass. Any skip keeps the
// fused order, truncated to the same bound as the reranked path.
func (u *searchUsecase) rerankStage(ctx context.Context, sup *retrieval.Supervisor, plan retrieval.RoutingPlan, query retrieval.Query, cfg *retrieval.Config, fused []domain.FusedResult) []domain.FusedResult {
	bound := cfg.Rerank.TopN
	if !cfg.Rerank.Enabled || u.reranker == nil {
		return retrieval.Truncate(fused, plan.TopKFused)
	}
	if plan.RerankMinK <= 0 || len(fused) < plan.RerankMinK {
		reason := domain.SkipBelowMinK
		if plan.FastPath != nil {
			reason = domain.SkipFastPath
		}
		sup.RecordSkip("rerank", reason)
		return retrieval.Truncate(fused, bound)
	}
	if cfg.Rerank.DisableWhenSlow && sup.OverBudget() {
		sup.RecordSkip("rerank", domain.SkipPipelineSlow)
		return retrieval.Truncate(fused, bound)
	}

	reranked, rep := retrieval.RunStage(ctx, sup, "rerank", cfg.RerankTimeout(), func(c context.Context) ([]domain.FusedResult, error) {
		return u.reranker.Rerank(c, query.WorkspaceID, query.Text, fused, bound, cfg.Rerank.Threshold)
	})
	if rep.Skipped {
		return retrieval.Truncate(fused, bound)
	}
	return reranked
}

func (u *searchUsecase) sizeClass(ctx context.Context, workspaceID string, log *slog.Logger) domain.SizeClass {
	class, err := u.stats.SizeClass(ctx, workspaceID)
	if err != nil {
		log.Warn("size_class_lookup_failed", slog.String("error", err.Error()))
		return domain.SizeMD
	}
	return class
}

func filterByLabels(candidates []domain.Candidate, labels []string) []domain.Candidate {
	if len(labels) == 0 {
		return candidates
	}
	wanted := make(map[string]bool, len(labels))
	for _, l := range labels {
		wanted[l] = true
	}
	kept := candidates[:0]
	for _, c := range candidates {
		for _, l := range c.Labels {
			if wanted[l] {
				kept = append(kept, c)
				break
			}
		}
	}
	return kept
}

func toResultItems(results []domain.FusedResult) []SearchResultItem {
	items := make([]SearchResultItem, 0, len(results))
	for _, r := range results {
		items = append(items, SearchResultItem{
			DocumentID: r.Candidate.DocumentID,
			ChunkID:    r.Candidate.ID,
			Title:      r.Candidate.Title,
			Score:      r.Score,
			SourceType: string(r.Candidate.SourceType),
		})
	}
	return items
}
