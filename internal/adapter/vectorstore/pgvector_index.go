package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"retrieval-engine/internal/domain"
)

// PgVectorIndex implements domain.VectorIndex over a pgvector table.
// Rows are namespaced by workspace and embedding version so queries
// never cross tenants or mix vector spaces.
type PgVectorIndex struct {
	pool             *pgxpool.Pool
	embeddingVersion string
}

func NewPgVectorIndex(pool *pgxpool.Pool, embeddingVersion string) *PgVectorIndex {
	return &PgVectorIndex{pool: pool, embeddingVersion: embeddingVersion}
}

const vectorQuerySQL = `
SELECT
    e.source_id,
    e.document_id,
    e.title,
    e.source_type,
    COALESCE(e.labels, '{}'),
    e.occurred_at,
    1 - (e.embedding <=> $1) AS similarity
FROM embeddings e
WHERE e.workspace_id = $2
  AND e.embedding_version = $3
ORDER BY e.embedding <=> $1
LIMIT $4`

func (idx *PgVectorIndex) Query(ctx context.Context, workspaceID string, vector []float32, topK int) ([]domain.VectorHit, error) {
	rows, err := idx.pool.Query(ctx, vectorQuerySQL,
		pgvector.NewVector(vector), workspaceID, idx.embeddingVersion, topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer rows.Close()

	var hits []domain.VectorHit
	for rows.Next() {
		var (
			hit        domain.VectorHit
			sourceType string
			occurredAt *time.Time
		)
		if err := rows.Scan(&hit.ID, &hit.DocumentID, &hit.Title, &sourceType, &hit.Labels, &occurredAt, &hit.Score); err != nil {
			return nil, fmt.Errorf("failed to scan vector hit: %w", err)
		}
		hit.SourceType = domain.SourceType(sourceType)
		if occurredAt != nil {
			hit.OccurredAt = *occurredAt
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector rows failed: %w", err)
	}
	return hits, nil
}

var _ domain.VectorIndex = (*PgVectorIndex)(nil)
