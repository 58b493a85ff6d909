package lexical

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"retrieval-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexerClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "auth flow", r.URL.Query().Get("q"))
		assert.Equal(t, "ws-1", r.URL.Query().Get("workspace_id"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		resp := searchResponse{
			Query: "auth flow",
			Hits: []indexHit{
				{ID: "c1", DocumentID: "d1", Title: "auth middleware", SourceType: "chunk",
					Labels: []string{"incident"}, OccurredAt: "2026-08-01T00:00:00Z", Score: 12.5},
				{ID: "o1", DocumentID: "d2", Title: "standup note", SourceType: "observation", Score: 3.1},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewIndexerClient(server.URL, nil)
	hits, err := client.Search(context.Background(), "ws-1", "auth flow", 50)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "c1", hits[0].ID)
	assert.Equal(t, domain.SourceChunk, hits[0].SourceType)
	assert.Equal(t, 1, hits[0].Rank)
	assert.Equal(t, 12.5, hits[0].Score)
	assert.Equal(t, 2026, hits[0].OccurredAt.Year())

	assert.Equal(t, domain.SourceObservation, hits[1].SourceType)
	assert.Equal(t, 2, hits[1].Rank)
	assert.True(t, hits[1].OccurredAt.IsZero())
}

func TestIndexerClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index rebuilding", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewIndexerClient(server.URL, nil)
	_, err := client.Search(context.Background(), "ws-1", "query", 10)
	require.Error(t, err)
}
