package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"retrieval-engine/internal/domain"
	"retrieval-engine/internal/usecase"
)

// Handler exposes the retrieval engine over HTTP.
type Handler struct {
	searchUsecase   usecase.SearchUsecase
	contentsUsecase usecase.ContentsUsecase
	similarUsecase  usecase.SimilarUsecase
	answerUsecase   usecase.AnswerUsecase
}

func NewHandler(
	searchUsecase usecase.SearchUsecase,
	contentsUsecase usecase.ContentsUsecase,
	similarUsecase usecase.SimilarUsecase,
	answerUsecase usecase.AnswerUsecase,
) *Handler {
	return &Handler{
		searchUsecase:   searchUsecase,
		contentsUsecase: contentsUsecase,
		similarUsecase:  similarUsecase,
		answerUsecase:   answerUsecase,
	}
}

// Register wires the API routes onto the echo instance.
func (h *Handler) Register(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	v1 := e.Group("/v1", mw...)
	v1.POST("/search", h.Search)
	v1.POST("/contents", h.Contents)
	v1.POST("/similar", h.Similar)
	v1.POST("/answer", h.Answer)
}

// Search runs the hybrid retrieval pipeline.
// (POST /v1/search)
func (h *Handler) Search(ctx echo.Context) error {
	var req SearchRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	output, err := h.searchUsecase.Execute(ctx.Request().Context(), usecase.SearchInput{
		WorkspaceID:      req.WorkspaceID,
		Query:            req.Query,
		TopK:             req.TopK,
		Mode:             req.Mode,
		LabelFilters:     req.Labels,
		IncludeRationale: req.IncludeRationale,
	})
	if err != nil {
		return writeError(ctx, err)
	}

	resp := SearchResponse{
		Results:   make([]SearchResult, 0, len(output.Results)),
		Rationale: toRationaleDTO(output.Rationale),
		LatencyMS: output.LatencyMS,
		RequestID: output.RequestID,
	}
	for _, r := range output.Results {
		resp.Results = append(resp.Results, SearchResult{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Title:      r.Title,
			Score:      r.Score,
			SourceType: r.SourceType,
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}

// Contents hydrates stored content by ID.
// (POST /v1/contents)
func (h *Handler) Contents(ctx echo.Context) error {
	var req ContentsRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	ids := make([]domain.ContentID, 0, len(req.IDs))
	for _, id := range req.IDs {
		ids = append(ids, domain.ContentID{Kind: domain.SourceType(id.Kind), ID: id.ID})
	}

	output, err := h.contentsUsecase.Execute(ctx.Request().Context(), usecase.ContentsInput{
		WorkspaceID:  req.WorkspaceID,
		IDs:          ids,
		ExpandChunks: req.ExpandChunks,
	})
	if err != nil {
		return writeError(ctx, err)
	}

	resp := ContentsResponse{
		Documents: toContentItems(output.Documents),
		Chunks:    toContentItems(output.Chunks),
		RequestID: output.RequestID,
	}
	return ctx.JSON(http.StatusOK, resp)
}

// Similar finds nearest neighbors of a free-text subject.
// (POST /v1/similar)
func (h *Handler) Similar(ctx echo.Context) error {
	var req SimilarRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	output, err := h.similarUsecase.Execute(ctx.Request().Context(), usecase.SimilarInput{
		WorkspaceID: req.WorkspaceID,
		Text:        req.Text,
		TopK:        req.TopK,
	})
	if err != nil {
		return writeError(ctx, err)
	}

	resp := SimilarResponse{
		Matches:   make([]SearchResult, 0, len(output.Matches)),
		RequestID: output.RequestID,
	}
	for _, m := range output.Matches {
		resp.Matches = append(resp.Matches, SearchResult{
			ChunkID:    m.ID,
			DocumentID: m.DocumentID,
			Title:      m.Title,
			Score:      m.Score,
			SourceType: m.SourceType,
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}

// Answer answers a question over the workspace with citations.
// (POST /v1/answer)
func (h *Handler) Answer(ctx echo.Context) error {
	var req AnswerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	output, err := h.answerUsecase.Execute(ctx.Request().Context(), usecase.AnswerInput{
		WorkspaceID:      req.WorkspaceID,
		Question:         req.Question,
		Citations:        req.Citations,
		IncludeRationale: req.IncludeRationale,
	})
	if err != nil {
		return writeError(ctx, err)
	}

	resp := AnswerResponse{
		Answer:    output.Answer,
		Rationale: toRationaleDTO(output.Rationale),
		Fallback:  output.Fallback,
		RequestID: output.RequestID,
	}
	for _, c := range output.Citations {
		resp.Citations = append(resp.Citations, AnswerCitationDTO{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Title:      c.Title,
			Snippet:    c.Snippet,
			Score:      c.Score,
		})
	}
	return ctx.JSON(http.StatusOK, resp)
}

func toContentItems(contents []domain.Content) []ContentItem {
	items := make([]ContentItem, 0, len(contents))
	for _, c := range contents {
		item := ContentItem{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Kind:       string(c.Kind),
			Title:      c.Title,
			Text:       c.Text,
		}
		if !c.OccurredAt.IsZero() {
			item.OccurredAt = c.OccurredAt.Format(time.RFC3339)
		}
		items = append(items, item)
	}
	return items
}

func writeError(ctx echo.Context, err error) error {
	if errors.Is(err, domain.ErrInvalidQuery) {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: "configuration error"})
	}
	return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}
