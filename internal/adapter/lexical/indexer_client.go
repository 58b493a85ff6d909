package lexical

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"retrieval-engine/internal/domain"
)

// IndexerClient implements domain.LexicalIndex against the external
// full-text search indexer.
type IndexerClient struct {
	BaseURL string
	Client  *http.Client
}

func NewIndexerClient(baseURL string, client *http.Client) *IndexerClient {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &IndexerClient{BaseURL: baseURL, Client: client}
}

type searchResponse struct {
	Query string      `json:"query"`
	Hits  []indexHit  `json:"hits"`
	Took  json.Number `json:"took_ms"`
}

type indexHit struct {
	ID         string   `json:"id"`
	DocumentID string   `json:"document_id"`
	Title      string   `json:"title"`
	SourceType string   `json:"source_type"`
	Labels     []string `json:"labels"`
	OccurredAt string   `json:"occurred_at"`
	Score      float64  `json:"score"`
}

func (c *IndexerClient) Search(ctx context.Context, workspaceID, query string, topK int) ([]domain.LexicalHit, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v1/search", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("workspace_id", workspaceID)
	q.Set("limit", strconv.Itoa(topK))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lexical search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lexical index returned status: %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	hits := make([]domain.LexicalHit, 0, len(body.Hits))
	for i, h := range body.Hits {
		hit := domain.LexicalHit{
			ID:         h.ID,
			DocumentID: h.DocumentID,
			Title:      h.Title,
			SourceType: domain.SourceType(h.SourceType),
			Labels:     h.Labels,
			Rank:       i + 1,
			Score:      h.Score,
		}
		if h.SourceType == "" {
			hit.SourceType = domain.SourceChunk
		}
		if h.OccurredAt != "" {
			if t, perr := time.Parse(time.RFC3339, h.OccurredAt); perr == nil {
				hit.OccurredAt = t
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

var _ domain.LexicalIndex = (*IndexerClient)(nil)
