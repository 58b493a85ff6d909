package hydrate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"retrieval-engine/internal/domain"
)

// PostgresWorkspaceStats implements domain.WorkspaceStats by counting
// documents per workspace. Counts change slowly, so results are not
// cached here; the caller tolerates a lookup failure by falling back to
// the medium preset.
type PostgresWorkspaceStats struct {
	pool *pgxpool.Pool
	// Boundaries between size buckets, in document counts.
	SmallMax  int
	MediumMax int
}

func NewPostgresWorkspaceStats(pool *pgxpool.Pool) *PostgresWorkspaceStats {
	return &PostgresWorkspaceStats{
		pool:      pool,
		SmallMax:  200,
		MediumMax: 2000,
	}
}

const documentCountSQL = `
SELECT count(DISTINCT document_id)
FROM contents
WHERE workspace_id = $1`

func (s *PostgresWorkspaceStats) SizeClass(ctx context.Context, workspaceID string) (domain.SizeClass, error) {
	var count int
	if err := s.pool.QueryRow(ctx, documentCountSQL, workspaceID).Scan(&count); err != nil {
		return "", fmt.Errorf("document count failed: %w", err)
	}
	switch {
	case count <= s.SmallMax:
		return domain.SizeXSSM, nil
	case count <= s.MediumMax:
		return domain.SizeMD, nil
	default:
		return domain.SizeLGXL, nil
	}
}

var _ domain.WorkspaceStats = (*PostgresWorkspaceStats)(nil)
