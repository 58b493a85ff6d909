package domain

import "context"

// Embedder defines the interface for generating embeddings.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
