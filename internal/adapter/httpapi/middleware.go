package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"retrieval-engine/internal/infra/logger"
)

// RequestScope stamps a generated request ID and the caller's workspace
// ID into the request context, then logs the completed request with
// those fields. Usecases reuse the stamped ID so logs and response
// bodies agree on requestId.
func RequestScope(cl *logger.ContextLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			workspaceID, body, err := peekWorkspaceID(c.Request().Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			}
			c.Request().Body = body

			ctx := logger.WithRequestID(c.Request().Context(), uuid.NewString())
			if workspaceID != "" {
				ctx = logger.WithWorkspaceID(ctx, workspaceID)
			}
			c.SetRequest(c.Request().WithContext(ctx))

			err = next(c)
			cl.WithContext(ctx).Info("request_handled",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status)
			return err
		}
	}
}

// BearerAuth rejects requests whose Authorization header does not carry
// the expected token. Comparison is constant time.
func BearerAuth(token string) echo.MiddlewareFunc {
	expected := []byte(token)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			got, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			}
			return next(c)
		}
	}
}

// workspaceLimiter tracks one token bucket per workspace.
type workspaceLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func (l *workspaceLimiter) get(workspaceID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[workspaceID]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[workspaceID] = lim
	}
	return lim
}

// WorkspaceRateLimit applies a per-workspace token bucket. The
// workspaceId is peeked from the JSON body; the body is restored for the
// handler's own bind.
func WorkspaceRateLimit(rps float64, burst int) echo.MiddlewareFunc {
	limiter := &workspaceLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			workspaceID, body, err := peekWorkspaceID(c.Request().Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			}
			c.Request().Body = body

			if workspaceID != "" && !limiter.get(workspaceID).Allow() {
				return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			}
			return next(c)
		}
	}
}

func peekWorkspaceID(body io.ReadCloser) (string, io.ReadCloser, error) {
	if body == nil {
		return "", body, nil
	}
	raw, err := io.ReadAll(body)
	_ = body.Close()
	if err != nil {
		return "", nil, err
	}

	var peek struct {
		WorkspaceID string `json:"workspaceId"`
	}
	// Tolerate unmarshal failure; the handler's bind reports it properly.
	_ = json.Unmarshal(raw, &peek)
	return peek.WorkspaceID, io.NopCloser(strings.NewReader(string(raw))), nil
}
