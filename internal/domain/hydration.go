package domain

import (
	"context"
	"time"
)

// ContentID addresses one piece of stored content by kind and ID.
type ContentID struct {
	Kind SourceType
	ID   string
}

// Content is hydrated text plus metadata for a chunk, observation,
// summary, or profile.
type Content struct {
	ID         string
	DocumentID string
	Kind       SourceType
	Title      string
	Text       string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Hydrator defines the interface for fetching content bodies by ID.
// All reads are workspace-scoped.
type Hydrator interface {
	Fetch(ctx context.Context, workspaceID string, ids []ContentID) ([]Content, error)

	// FetchDocumentChunks returns the chunks belonging to the given
	// documents, ordered by document and ordinal.
	FetchDocumentChunks(ctx context.Context, workspaceID string, documentIDs []string) ([]Content, error)
}
