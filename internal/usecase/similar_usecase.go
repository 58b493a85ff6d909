package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"retrieval-engine/internal/domain"
)

// SimilarInput defines the input parameters for Similar.
type SimilarInput struct {
	WorkspaceID string
	Text        string
	TopK        int
}

// SimilarMatch is a single nearest-neighbor match.
type SimilarMatch struct {
	ID         string
	DocumentID string
	Title      string
	SourceType string
	Score      float64
}

// SimilarOutput defines the output for Similar.
type SimilarOutput struct {
	Matches   []SimilarMatch
	RequestID string
}

// SimilarUsecase finds nearest neighbors of a free-text subject using
// the dense signal only.
type SimilarUsecase interface {
	Execute(ctx context.Context, input SimilarInput) (*SimilarOutput, error)
}

type similarUsecase struct {
	embedder domain.Embedder
	vector   domain.VectorIndex
	logger   *slog.Logger
	topK     int
}

// NewSimilarUsecase creates a new SimilarUsecase. defaultTopK bounds
// requests that omit topK.
func NewSimilarUsecase(embedder domain.Embedder, vector domain.VectorIndex, defaultTopK int, logger *slog.Logger) SimilarUsecase {
	return &similarUsecase{embedder: embedder, vector: vector, topK: defaultTopK, logger: logger}
}

func (u *similarUsecase) Execute(ctx context.Context, input SimilarInput) (*SimilarOutput, error) {
	if input.WorkspaceID == "" || strings.TrimSpace(input.Text) == "" {
		return nil, domain.ErrInvalidQuery
	}
	requestID := newRequestID(ctx)

	topK := input.TopK
	if topK <= 0 {
		topK = u.topK
	}

	vectors, err := u.embedder.Embed(ctx, []string{input.Text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed subject: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	hits, err := u.vector.Query(ctx, input.WorkspaceID, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	matches := make([]SimilarMatch, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, SimilarMatch{
			ID:         h.ID,
			DocumentID: h.DocumentID,
			Title:      h.Title,
			SourceType: string(h.SourceType),
			Score:      h.Score,
		})
	}

	u.logger.Info("similar_completed",
		slog.String("request_id", requestID),
		slog.Int("match_count", len(matches)))
	return &SimilarOutput{Matches: matches, RequestID: requestID}, nil
}
