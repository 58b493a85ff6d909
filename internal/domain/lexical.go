package domain

import (
	"context"
	"time"
)

// LexicalHit represents a single hit from the full-text index.
type LexicalHit struct {
	ID         string
	DocumentID string
	Title      string
	SourceType SourceType
	Labels     []string
	OccurredAt time.Time
	// Rank is the 1-indexed position in the lexical result list.
	Rank int
	// Score is the normalized lexical relevance score in [0,1].
	Score float64
}

// LexicalIndex defines the interface for keyword search against the
// external full-text index. Every query is scoped to one workspace.
type LexicalIndex interface {
	Search(ctx context.Context, workspaceID, query string, topK int) ([]LexicalHit, error)
}
