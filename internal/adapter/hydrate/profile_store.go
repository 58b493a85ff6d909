package hydrate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"retrieval-engine/internal/domain"
)

// PostgresProfileStore implements domain.ProfileStore over the entity
// profile table. Centroids are written at index time by averaging the
// configured views per entity.
type PostgresProfileStore struct {
	pool *pgxpool.Pool
}

func NewPostgresProfileStore(pool *pgxpool.Pool) *PostgresProfileStore {
	return &PostgresProfileStore{pool: pool}
}

const centroidsSQL = `
SELECT entity_id, entity_name, document_id, centroid, updated_at::text
FROM entity_profiles
WHERE workspace_id = $1
ORDER BY updated_at DESC
LIMIT $2`

func (s *PostgresProfileStore) Centroids(ctx context.Context, workspaceID string, limit int) ([]domain.EntityProfile, error) {
	rows, err := s.pool.Query(ctx, centroidsSQL, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("centroid query failed: %w", err)
	}
	defer rows.Close()

	var profiles []domain.EntityProfile
	for rows.Next() {
		var (
			p   domain.EntityProfile
			vec pgvector.Vector
		)
		if err := rows.Scan(&p.EntityID, &p.EntityName, &p.DocumentID, &vec, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		p.Centroid = vec.Slice()
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profile rows failed: %w", err)
	}
	return profiles, nil
}

var _ domain.ProfileStore = (*PostgresProfileStore)(nil)
