package hydrate

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"retrieval-engine/internal/domain"
)

// PostgresHydrator implements domain.Hydrator over the contents table.
type PostgresHydrator struct {
	pool *pgxpool.Pool
}

func NewPostgresHydrator(pool *pgxpool.Pool) *PostgresHydrator {
	return &PostgresHydrator{pool: pool}
}

const fetchContentsSQL = `
SELECT id, document_id, kind, title, body, occurred_at
FROM contents
WHERE workspace_id = $1
  AND id = ANY($2)`

const fetchDocumentChunksSQL = `
SELECT id, document_id, kind, title, body, occurred_at
FROM contents
WHERE workspace_id = $1
  AND document_id = ANY($2)
  AND kind = 'chunk'
ORDER BY document_id, ordinal`

func (h *PostgresHydrator) Fetch(ctx context.Context, workspaceID string, ids []domain.ContentID) ([]domain.Content, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	plain := make([]string, 0, len(ids))
	for _, id := range ids {
		plain = append(plain, id.ID)
	}

	contents, err := h.query(ctx, fetchContentsSQL, workspaceID, plain)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contents: %w", err)
	}

	// Preserve request order; the database returns rows in arbitrary order.
	byID := make(map[string]domain.Content, len(contents))
	for _, c := range contents {
		byID[c.ID] = c
	}
	ordered := make([]domain.Content, 0, len(contents))
	for _, id := range ids {
		if c, ok := byID[id.ID]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

func (h *PostgresHydrator) FetchDocumentChunks(ctx context.Context, workspaceID string, documentIDs []string) ([]domain.Content, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	chunks, err := h.query(ctx, fetchDocumentChunksSQL, workspaceID, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document chunks: %w", err)
	}
	return chunks, nil
}

func (h *PostgresHydrator) query(ctx context.Context, sql, workspaceID string, keys []string) ([]domain.Content, error) {
	rows, err := h.pool.Query(ctx, sql, workspaceID, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contents []domain.Content
	for rows.Next() {
		var (
			c          domain.Content
			kind       string
			occurredAt *time.Time
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &kind, &c.Title, &c.Text, &occurredAt); err != nil {
			return nil, err
		}
		c.Kind = domain.SourceType(kind)
		if occurredAt != nil {
			c.OccurredAt = *occurredAt
		}
		contents = append(contents, c)
	}
	return contents, rows.Err()
}

var _ domain.Hydrator = (*PostgresHydrator)(nil)
