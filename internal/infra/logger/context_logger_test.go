package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"retrieval-engine/internal/infra/logger"

	"github.com/stretchr/testify/assert"
)

func TestWithContext_AddsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	cl := logger.NewContextLogger(base, "retrieval-engine")

	ctx := logger.WithRequestID(context.Background(), "req-1")
	ctx = logger.WithWorkspaceID(ctx, "ws-1")
	cl.WithContext(ctx).Info("request_handled")

	out := buf.String()
	assert.Contains(t, out, `"request.id":"req-1"`)
	assert.Contains(t, out, `"workspace.id":"ws-1"`)
	assert.Contains(t, out, `"service":"retrieval-engine"`)
}

func TestWithContext_BareContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	cl := logger.NewContextLogger(base, "retrieval-engine")

	cl.WithContext(context.Background()).Info("request_handled")

	out := buf.String()
	assert.Contains(t, out, `"service":"retrieval-engine"`)
	assert.NotContains(t, out, "request.id")
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Empty(t, logger.RequestIDFromContext(context.Background()))

	ctx := logger.WithRequestID(context.Background(), "req-9")
	assert.Equal(t, "req-9", logger.RequestIDFromContext(ctx))
}
