package domain

import "context"

// EntityProfile is a stored entity profile centroid, averaged over the
// configured views (title/body/summary) at index time.
type EntityProfile struct {
	EntityID   string
	EntityName string
	DocumentID string
	Centroid   []float32
	UpdatedAt  string
}

// ProfileStore defines the interface for reading entity profile
// centroids for a workspace.
type ProfileStore interface {
	Centroids(ctx context.Context, workspaceID string, limit int) ([]EntityProfile, error)
}
