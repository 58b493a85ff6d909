package domain

import (
	"context"
	"time"
)

// VectorHit represents a nearest-neighbor match from the vector index.
type VectorHit struct {
	ID         string
	DocumentID string
	Title      string
	SourceType SourceType
	Labels     []string
	OccurredAt time.Time
	// Score is the cosine similarity in [0,1].
	Score float64
}

// VectorIndex defines the interface for approximate nearest-neighbor
// queries. The index is namespaced per workspace and embedding version;
// implementations must never return candidates from another workspace.
type VectorIndex interface {
	Query(ctx context.Context, workspaceID string, vector []float32, topK int) ([]VectorHit, error)
}
