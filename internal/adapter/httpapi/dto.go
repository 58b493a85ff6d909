package httpapi

import (
	"encoding/json"

	"retrieval-engine/internal/usecase/retrieval"
)

// SearchRequest is the request payload for POST /v1/search.
type SearchRequest struct {
	WorkspaceID      string   `json:"workspaceId"`
	Query            string   `json:"query"`
	TopK             int      `json:"topK,omitempty"`
	Mode             string   `json:"mode,omitempty"`
	Labels           []string `json:"labels,omitempty"`
	IncludeRationale bool     `json:"includeRationale,omitempty"`
}

// includeOptions is the nested options object some clients send instead
// of the flat includeRationale field.
type includeOptions struct {
	Rationale bool `json:"rationale"`
}

// UnmarshalJSON accepts both the flat form ({query, includeRationale})
// and the nested form ({q, include: {rationale}}).
func (r *SearchRequest) UnmarshalJSON(data []byte) error {
	type plain SearchRequest
	aux := struct {
		*plain
		Q       string          `json:"q"`
		Include *includeOptions `json:"include"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.Query == "" {
		r.Query = aux.Q
	}
	if aux.Include != nil && aux.Include.Rationale {
		r.IncludeRationale = true
	}
	return nil
}

// SearchResult is a single ranked result.
type SearchResult struct {
	ChunkID    string  `json:"chunkId"`
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	SourceType string  `json:"sourceType"`
}

// SearchResponse is the response payload for POST /v1/search.
type SearchResponse struct {
	Results   []SearchResult `json:"results"`
	Rationale *RationaleDTO  `json:"rationale,omitempty"`
	LatencyMS int64          `json:"latencyMs"`
	RequestID string         `json:"requestId"`
}

// StageReportDTO reports one pipeline stage, executed or skipped.
type StageReportDTO struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"durationMs"`
	Skipped    bool   `json:"skipped"`
	Reason     string `json:"reason,omitempty"`
}

// GraphRationaleDTO surfaces the traversal behind a graph boost.
type GraphRationaleDTO struct {
	Entities         []GraphEntityDTO `json:"entities"`
	Edges            []GraphEdgeDTO   `json:"edges"`
	EvidenceChunkIDs []string         `json:"evidenceChunkIds"`
}

type GraphEntityDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type GraphEdgeDTO struct {
	FromID     string  `json:"fromId"`
	ToID       string  `json:"toId"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// RationaleDTO explains how the ranking was produced.
type RationaleDTO struct {
	RouterMode         string             `json:"routerMode"`
	RouterScope        string             `json:"routerScope"`
	Stages             []StageReportDTO   `json:"stages"`
	ContributionShares map[string]float64 `json:"contributionShares,omitempty"`
	Graph              *GraphRationaleDTO `json:"graph,omitempty"`
	Note               string             `json:"note,omitempty"`
}

// ContentsRequest is the request payload for POST /v1/contents.
type ContentsRequest struct {
	WorkspaceID  string          `json:"workspaceId"`
	IDs          []ContentIDItem `json:"ids"`
	ExpandChunks bool            `json:"expandChunks,omitempty"`
}

type ContentIDItem struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// UnmarshalJSON accepts the nested expand form ({expand: {chunks}}) as
// well as the flat expandChunks field.
func (r *ContentsRequest) UnmarshalJSON(data []byte) error {
	type plain ContentsRequest
	aux := struct {
		*plain
		Expand *struct {
			Chunks bool `json:"chunks"`
		} `json:"expand"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Expand != nil && aux.Expand.Chunks {
		r.ExpandChunks = true
	}
	return nil
}

// ContentItem is one hydrated content body.
type ContentItem struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId"`
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	OccurredAt string `json:"occurredAt,omitempty"`
}

// ContentsResponse is the response payload for POST /v1/contents.
type ContentsResponse struct {
	Documents []ContentItem `json:"documents"`
	Chunks    []ContentItem `json:"chunks,omitempty"`
	RequestID string        `json:"requestId"`
}

// SimilarRequest is the request payload for POST /v1/similar.
type SimilarRequest struct {
	WorkspaceID string `json:"workspaceId"`
	Text        string `json:"text"`
	TopK        int    `json:"topK,omitempty"`
}

// UnmarshalJSON accepts the nested subject form
// ({subject: {kind: "text", text}}) as well as the flat text field.
func (r *SimilarRequest) UnmarshalJSON(data []byte) error {
	type plain SimilarRequest
	aux := struct {
		*plain
		Subject *struct {
			Kind string `json:"kind"`
			Text string `json:"text"`
		} `json:"subject"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.Text == "" && aux.Subject != nil {
		r.Text = aux.Subject.Text
	}
	return nil
}

// SimilarResponse is the response payload for POST /v1/similar.
type SimilarResponse struct {
	Matches   []SearchResult `json:"matches"`
	RequestID string         `json:"requestId"`
}

// AnswerRequest is the request payload for POST /v1/answer.
type AnswerRequest struct {
	WorkspaceID      string `json:"workspaceId"`
	Question         string `json:"question"`
	Citations        bool   `json:"citations,omitempty"`
	IncludeRationale bool   `json:"includeRationale,omitempty"`
}

// UnmarshalJSON accepts the nested include form ({include: {rationale}})
// as well as the flat includeRationale field.
func (r *AnswerRequest) UnmarshalJSON(data []byte) error {
	type plain AnswerRequest
	aux := struct {
		*plain
		Include *includeOptions `json:"include"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Include != nil && aux.Include.Rationale {
		r.IncludeRationale = true
	}
	return nil
}

// AnswerCitationDTO points a claim back at its supporting chunk.
type AnswerCitationDTO struct {
	ChunkID    string  `json:"chunkId"`
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// AnswerResponse is the response payload for POST /v1/answer.
type AnswerResponse struct {
	Answer    string              `json:"answer"`
	Citations []AnswerCitationDTO `json:"citations,omitempty"`
	Rationale *RationaleDTO       `json:"rationale,omitempty"`
	Fallback  bool                `json:"fallback"`
	RequestID string              `json:"requestId"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func toRationaleDTO(r *retrieval.Rationale) *RationaleDTO {
	if r == nil {
		return nil
	}
	dto := &RationaleDTO{
		RouterMode:  string(r.RouterMode),
		RouterScope: string(r.RouterScope),
		Note:        r.Note,
	}
	for _, s := range r.Stages {
		dto.Stages = append(dto.Stages, StageReportDTO{
			Name:       s.Name,
			DurationMS: s.DurationMS,
			Skipped:    s.Skipped,
			Reason:     s.Reason,
		})
	}
	if len(r.ContributionShares) > 0 {
		dto.ContributionShares = make(map[string]float64, len(r.ContributionShares))
		for k, v := range r.ContributionShares {
			dto.ContributionShares[string(k)] = v
		}
	}
	if r.Graph != nil {
		g := &GraphRationaleDTO{EvidenceChunkIDs: r.Graph.EvidenceChunkIDs}
		for _, e := range r.Graph.Entities {
			g.Entities = append(g.Entities, GraphEntityDTO{ID: e.ID, Name: e.Name, Kind: e.Kind})
		}
		for _, e := range r.Graph.Edges {
			g.Edges = append(g.Edges, GraphEdgeDTO{FromID: e.FromID, ToID: e.ToID, Type: e.Type, Confidence: e.Confidence})
		}
		dto.Graph = g
	}
	return dto
}
