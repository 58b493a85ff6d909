package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"retrieval-engine/internal/domain"
)

// PostgresGraphStore implements domain.GraphStore over the entity and
// edge tables. Traversal is iterative: one indexed query per hop, with
// visited-set dedup, rather than a recursive CTE, so the per-stage
// budget can cancel between hops.
type PostgresGraphStore struct {
	pool *pgxpool.Pool
}

func NewPostgresGraphStore(pool *pgxpool.Pool) *PostgresGraphStore {
	return &PostgresGraphStore{pool: pool}
}

const seedEntitiesSQL = `
SELECT id, name, kind
FROM graph_entities
WHERE workspace_id = $1
  AND lower(name) = ANY($2)`

const edgesFromSQL = `
SELECT from_id, to_id, edge_type, confidence
FROM graph_edges
WHERE workspace_id = $1
  AND from_id = ANY($2)
  AND edge_type = ANY($3)`

const entitiesByIDSQL = `
SELECT id, name, kind
FROM graph_entities
WHERE workspace_id = $1
  AND id = ANY($2)`

const evidenceSQL = `
SELECT chunk_id, document_id, entity_id
FROM graph_evidence
WHERE workspace_id = $1
  AND entity_id = ANY($2)`

func (s *PostgresGraphStore) Traverse(ctx context.Context, workspaceID string, seeds []string, hops int, allowlist []string) (*domain.GraphTraversal, error) {
	if len(seeds) == 0 || hops <= 0 {
		return &domain.GraphTraversal{}, nil
	}
	if hops > 2 {
		hops = 2
	}

	lowered := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		lowered = append(lowered, strings.ToLower(seed))
	}

	seedEntities, err := s.queryEntities(ctx, seedEntitiesSQL, workspaceID, lowered)
	if err != nil {
		return nil, fmt.Errorf("seed lookup failed: %w", err)
	}
	if len(seedEntities) == 0 {
		return &domain.GraphTraversal{}, nil
	}

	traversal := &domain.GraphTraversal{Entities: seedEntities}
	visited := make(map[string]int, len(seedEntities))
	frontier := make([]string, 0, len(seedEntities))
	for _, e := range seedEntities {
		visited[e.ID] = 0
		frontier = append(frontier, e.ID)
	}

	for hop := 1; hop <= hops; hop++ {
		if len(frontier) == 0 {
			break
		}
		edges, err := s.queryEdges(ctx, workspaceID, frontier, allowlist)
		if err != nil {
			return nil, fmt.Errorf("hop %d edge query failed: %w", hop, err)
		}

		var next []string
		for _, edge := range edges {
			traversal.Edges = append(traversal.Edges, edge)
			if _, seen := visited[edge.ToID]; !seen {
				visited[edge.ToID] = hop
				next = append(next, edge.ToID)
			}
		}
		if len(next) > 0 {
			entities, err := s.queryEntities(ctx, entitiesByIDSQL, workspaceID, next)
			if err != nil {
				return nil, fmt.Errorf("hop %d entity query failed: %w", hop, err)
			}
			traversal.Entities = append(traversal.Entities, entities...)
		}
		frontier = next
	}

	entityIDs := make([]string, 0, len(visited))
	for id := range visited {
		entityIDs = append(entityIDs, id)
	}
	evidence, err := s.queryEvidence(ctx, workspaceID, entityIDs, visited)
	if err != nil {
		return nil, fmt.Errorf("evidence query failed: %w", err)
	}
	traversal.Evidence = evidence
	return traversal, nil
}

func (s *PostgresGraphStore) queryEntities(ctx context.Context, sql, workspaceID string, keys []string) ([]domain.GraphEntity, error) {
	rows, err := s.pool.Query(ctx, sql, workspaceID, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []domain.GraphEntity
	for rows.Next() {
		var e domain.GraphEntity
		if err := rows.Scan(&e.ID, &e.Name, &e.Kind); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *PostgresGraphStore) queryEdges(ctx context.Context, workspaceID string, fromIDs, allowlist []string) ([]domain.GraphEdge, error) {
	rows, err := s.pool.Query(ctx, edgesFromSQL, workspaceID, fromIDs, allowlist)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.GraphEdge
	for rows.Next() {
		var e domain.GraphEdge
		if err := rows.Scan(&e.FromID, &e.ToID, &e.Type, &e.Confidence); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *PostgresGraphStore) queryEvidence(ctx context.Context, workspaceID string, entityIDs []string, hopByEntity map[string]int) ([]domain.GraphEvidence, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, evidenceSQL, workspaceID, entityIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evidence []domain.GraphEvidence
	for rows.Next() {
		var ev domain.GraphEvidence
		if err := rows.Scan(&ev.ChunkID, &ev.DocumentID, &ev.EntityID); err != nil {
			return nil, err
		}
		ev.Hop = hopByEntity[ev.EntityID]
		evidence = append(evidence, ev)
	}
	return evidence, rows.Err()
}

var _ domain.GraphStore = (*PostgresGraphStore)(nil)
