package retrieval

import (
	"context"
	"fmt"
	"strings"

	"retrieval-engine/internal/domain"
)

// SignalSet accumulates per-signal candidate lists produced by the
// concurrent fetch phase. It is request-scoped and owned by a single
// goroutine once the fetch barrier has passed.
type SignalSet struct {
	Lexical []domain.Candidate
	Vector  []domain.Candidate
	Profile []domain.Candidate
	Graph   *domain.GraphTraversal
}

// LexicalRetrieve runs a full-text query and converts hits to candidates
// carrying only the lexical signal.
func LexicalRetrieve(ctx context.Context, idx domain.LexicalIndex, workspaceID, text string, topK int, fastPath bool) ([]domain.Candidate, error) {
	hits, err := idx.Search(ctx, workspaceID, text, topK)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	candidates := make([]domain.Candidate, 0, len(hits))
	for _, h := range hits {
		c := domain.Candidate{
			ID:            h.ID,
			DocumentID:    h.DocumentID,
			SourceType:    h.SourceType,
			Title:         h.Title,
			Labels:        h.Labels,
			OccurredAt:    h.OccurredAt,
			FastPathMatch: fastPath,
		}
		c.SetSignal(domain.SignalLexical, h.Score)
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// VectorRetrieve queries the vector index with a precomputed embedding
// and converts matches to candidates carrying only the vector signal.
func VectorRetrieve(ctx context.Context, idx domain.VectorIndex, workspaceID string, vector []float32, topK int) ([]domain.Candidate, error) {
	hits, err := idx.Query(ctx, workspaceID, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	candidates := make([]domain.Candidate, 0, len(hits))
	for _, h := range hits {
		c := domain.Candidate{
			ID:         h.ID,
			DocumentID: h.DocumentID,
			SourceType: h.SourceType,
			Title:      h.Title,
			Labels:     h.Labels,
			OccurredAt: h.OccurredAt,
		}
		c.SetSignal(domain.SignalVector, h.Score)
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// GraphRetrieve traverses 1..MaxHops from the query-matched seed terms
// using the relationship allowlist keyed by the detected intent. The
// traversal result is applied to already-fetched candidates afterwards;
// on timeout it contributes zero boost.
func GraphRetrieve(ctx context.Context, store domain.GraphStore, workspaceID, queryText string, intent Intent, cfg GraphBiasConfig) (*domain.GraphTraversal, error) {
	seeds := extractSeeds(queryText, cfg.MaxSeeds)
	if len(seeds) == 0 {
		return &domain.GraphTraversal{}, nil
	}
	allowlist := cfg.IntentAllowlist[string(intent)]
	if len(allowlist) == 0 {
		// General queries may follow any configured relationship type.
		for _, types := range cfg.IntentAllowlist {
			allowlist = append(allowlist, types...)
		}
	}
	traversal, err := store.Traverse(ctx, workspaceID, seeds, cfg.MaxHops, allowlist)
	if err != nil {
		return nil, fmt.Errorf("graph traversal failed: %w", err)
	}
	return traversal, nil
}

// ProfileRetrieve scores stored entity profile centroids against the
// query embedding and returns profile candidates carrying the profile
// signal. Invoked only when the intent implies ownership or domain
// affiliation.
func ProfileRetrieve(ctx context.Context, store domain.ProfileStore, workspaceID string, queryVector []float32, limit int) ([]domain.Candidate, error) {
	profiles, err := store.Centroids(ctx, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("profile centroids failed: %w", err)
	}
	candidates := make([]domain.Candidate, 0, len(profiles))
	for _, p := range profiles {
		sim := domain.Cosine(queryVector, p.Centroid)
		if sim == 0 {
			continue
		}
		c := domain.Candidate{
			ID:         p.EntityID,
			DocumentID: p.DocumentID,
			SourceType: domain.SourceProfile,
			Title:      p.EntityName,
		}
		c.SetSignal(domain.SignalProfile, sim)
		candidates = append(candidates, c)
	}
	return candidates, nil
}

var seedStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "what": true, "who": true, "how": true,
	"why": true, "when": true, "where": true, "does": true, "about": true,
	"owns": true, "uses": true, "are": true, "was": true, "has": true,
}

// extractSeeds picks the significant query terms used to seed the graph
// traversal. Punctuation is trimmed, stopwords and short tokens dropped.
func extractSeeds(text string, max int) []string {
	fields := strings.Fields(text)
	seeds := make([]string, 0, max)
	seen := make(map[string]bool)
	for _, f := range fields {
		term := strings.ToLower(strings.Trim(f, `.,:;?!"'()`))
		if len(term) < 3 || seedStopwords[term] || seen[term] {
			continue
		}
		seen[term] = true
		seeds = append(seeds, term)
		if len(seeds) == max {
			break
		}
	}
	return seeds
}
