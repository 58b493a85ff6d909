package httpapi_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"retrieval-engine/internal/adapter/httpapi"
	"retrieval-engine/internal/domain"
	"retrieval-engine/internal/infra/logger"
	"retrieval-engine/internal/usecase"
	"retrieval-engine/internal/usecase/retrieval"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearch struct {
	lastCtx   context.Context
	lastInput usecase.SearchInput
	output    *usecase.SearchOutput
	err       error
}

func (s *stubSearch) Execute(ctx context.Context, input usecase.SearchInput) (*usecase.SearchOutput, error) {
	s.lastCtx = ctx
	s.lastInput = input
	return s.output, s.err
}

type stubContents struct {
	lastInput usecase.ContentsInput
	output    *usecase.ContentsOutput
	err       error
}

func (s *stubContents) Execute(_ context.Context, input usecase.ContentsInput) (*usecase.ContentsOutput, error) {
	s.lastInput = input
	return s.output, s.err
}

type stubSimilar struct {
	lastInput usecase.SimilarInput
	output    *usecase.SimilarOutput
	err       error
}

func (s *stubSimilar) Execute(_ context.Context, input usecase.SimilarInput) (*usecase.SimilarOutput, error) {
	s.lastInput = input
	return s.output, s.err
}

type stubAnswer struct {
	lastInput usecase.AnswerInput
	output    *usecase.AnswerOutput
	err       error
}

func (s *stubAnswer) Execute(_ context.Context, input usecase.AnswerInput) (*usecase.AnswerOutput, error) {
	s.lastInput = input
	return s.output, s.err
}

func newTestServer(search *stubSearch, mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	handler := httpapi.NewHandler(
		search,
		&stubContents{output: &usecase.ContentsOutput{RequestID: "r"}},
		&stubSimilar{output: &usecase.SimilarOutput{RequestID: "r"}},
		&stubAnswer{output: &usecase.AnswerOutput{Answer: "a", RequestID: "r"}},
	)
	handler.Register(e, mw...)
	return e
}

func searchOutput() *usecase.SearchOutput {
	return &usecase.SearchOutput{
		Results: []usecase.SearchResultItem{
			{ChunkID: "c1", DocumentID: "d1", Title: "result", Score: 0.9, SourceType: "chunk"},
		},
		Rationale: &retrieval.Rationale{
			RouterMode:  retrieval.ModeHybrid,
			RouterScope: domain.SizeMD,
			Stages: []retrieval.StageReport{
				{Name: "lexical", DurationMS: 12},
				{Name: "rerank", Skipped: true, Reason: domain.SkipBelowMinK},
			},
		},
		LatencyMS: 42,
		RequestID: "req-1",
	}
}

func TestSearchHandler_OK(t *testing.T) {
	search := &stubSearch{output: searchOutput()}
	e := newTestServer(search)

	body := `{"workspaceId":"ws-1","query":"auth flow","topK":5,"includeRationale":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ws-1", search.lastInput.WorkspaceID)
	assert.Equal(t, 5, search.lastInput.TopK)
	assert.True(t, search.lastInput.IncludeRationale)
	assert.Contains(t, rec.Body.String(), `"requestId":"req-1"`)
	assert.Contains(t, rec.Body.String(), `"reason":"below_min_k"`)
}

func TestSearchHandler_NestedRequestForm(t *testing.T) {
	search := &stubSearch{output: searchOutput()}
	e := newTestServer(search)

	body := `{"workspaceId":"ws-1","q":"auth flow","include":{"rationale":true}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auth flow", search.lastInput.Query)
	assert.True(t, search.lastInput.IncludeRationale)
}

func TestSimilarHandler_SubjectForm(t *testing.T) {
	similar := &stubSimilar{output: &usecase.SimilarOutput{RequestID: "r"}}
	e := echo.New()
	handler := httpapi.NewHandler(
		&stubSearch{output: searchOutput()},
		&stubContents{output: &usecase.ContentsOutput{RequestID: "r"}},
		similar,
		&stubAnswer{output: &usecase.AnswerOutput{Answer: "a", RequestID: "r"}},
	)
	handler.Register(e)

	body := `{"workspaceId":"ws-1","subject":{"kind":"text","text":"payment retries"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/similar", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payment retries", similar.lastInput.Text)
}

func TestContentsHandler_ExpandForm(t *testing.T) {
	contents := &stubContents{output: &usecase.ContentsOutput{RequestID: "r"}}
	e := echo.New()
	handler := httpapi.NewHandler(
		&stubSearch{output: searchOutput()},
		contents,
		&stubSimilar{output: &usecase.SimilarOutput{RequestID: "r"}},
		&stubAnswer{output: &usecase.AnswerOutput{Answer: "a", RequestID: "r"}},
	)
	handler.Register(e)

	body := `{"workspaceId":"ws-1","ids":[{"kind":"chunk","id":"c1"}],"expand":{"chunks":true}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/contents", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, contents.lastInput.ExpandChunks)
	require.Len(t, contents.lastInput.IDs, 1)
	assert.Equal(t, "c1", contents.lastInput.IDs[0].ID)
}

func TestRequestScope_StampsRequestID(t *testing.T) {
	search := &stubSearch{output: searchOutput()}
	cl := logger.NewContextLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)), "test")
	e := newTestServer(search, httpapi.RequestScope(cl))

	body := `{"workspaceId":"ws-1","query":"q"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, logger.RequestIDFromContext(search.lastCtx))
	assert.Equal(t, "ws-1", search.lastInput.WorkspaceID, "body is restored after the peek")
}

func TestSearchHandler_InvalidQuery(t *testing.T) {
	search := &stubSearch{err: domain.ErrInvalidQuery}
	e := newTestServer(search)

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{"query":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchHandler_MalformedBody(t *testing.T) {
	e := newTestServer(&stubSearch{output: searchOutput()})

	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(`{not json`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	e := newTestServer(&stubSearch{output: searchOutput()}, httpapi.BearerAuth("top-secret"))
	body := `{"workspaceId":"ws-1","query":"q"}`

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid token", header: "Bearer top-secret", want: http.StatusOK},
		{name: "wrong token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic dXNlcg==", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestWorkspaceRateLimit(t *testing.T) {
	e := newTestServer(&stubSearch{output: searchOutput()}, httpapi.WorkspaceRateLimit(1, 2))

	send := func(workspaceID string) int {
		body := `{"workspaceId":"` + workspaceID + `","query":"q"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("ws-a"))
	assert.Equal(t, http.StatusOK, send("ws-a"))
	assert.Equal(t, http.StatusTooManyRequests, send("ws-a"), "burst exhausted")
	assert.Equal(t, http.StatusOK, send("ws-b"), "limits are per workspace")
}

func TestAnswerHandler_OK(t *testing.T) {
	e := newTestServer(&stubSearch{output: searchOutput()})

	body := `{"workspaceId":"ws-1","question":"how does auth work?","citations":true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/answer", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"answer":"a"`)
}

func TestSimilarHandler_OK(t *testing.T) {
	e := newTestServer(&stubSearch{output: searchOutput()})

	body := `{"workspaceId":"ws-1","text":"payment retries"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/similar", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
