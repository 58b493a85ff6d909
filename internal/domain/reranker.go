package domain

import "context"

// RerankCandidate represents a document candidate for cross-encoder reranking.
type RerankCandidate struct {
	// ID is the unique identifier for the candidate (used to map back results).
	ID string
	// Content is the text content to be scored against the query.
	Content string
	// Score is the fused retrieval score (for debugging/logging).
	Score float64
}

// RerankResult represents a reranked candidate with its cross-encoder
// relevance score.
type RerankResult struct {
	ID    string
	Score float64
}

// Reranker defines the interface for cross-encoder reranking.
// If an error occurs, callers fall back to the fused order.
type Reranker interface {
	// Rerank scores candidates against the query using a cross-encoder
	// model. Returns results sorted by score descending.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)

	// ModelName returns the model identifier for logging/debugging.
	ModelName() string
}
