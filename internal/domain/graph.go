package domain

import "context"

// GraphEntity is an entity node touched by a traversal.
type GraphEntity struct {
	ID   string
	Name string
	Kind string
}

// GraphEdge is a typed relationship between two entities.
type GraphEdge struct {
	FromID     string
	ToID       string
	Type       string
	Confidence float64
}

// GraphEvidence links a traversed entity back to the chunk that grounds
// it, with the hop distance from the query-matched seed.
type GraphEvidence struct {
	ChunkID    string
	DocumentID string
	EntityID   string
	Hop        int
}

// GraphTraversal is the result of a bounded-hop traversal from the
// query-matched seed entities.
type GraphTraversal struct {
	Entities []GraphEntity
	Edges    []GraphEdge
	Evidence []GraphEvidence
}

// GraphStore defines the interface for relationship traversal. The
// allowlist restricts which edge types may be followed; hops is 1 or 2.
type GraphStore interface {
	Traverse(ctx context.Context, workspaceID string, seeds []string, hops int, allowlist []string) (*GraphTraversal, error)
}
