package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

const (
	RequestIDKey   ContextKey = "request.id"
	WorkspaceIDKey ContextKey = "workspace.id"
)

// ContextLogger extracts request-scoped fields from the context so
// every log line carries the request and workspace it belongs to.
type ContextLogger struct {
	logger      *slog.Logger
	serviceName string
}

// NewContextLogger wraps the shared logger with context-field
// extraction.
func NewContextLogger(base *slog.Logger, serviceName string) *ContextLogger {
	return &ContextLogger{
		logger:      base,
		serviceName: serviceName,
	}
}

// WithContext returns a logger with context values added as fields.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := cl.logger.With("service", cl.serviceName)

	var fields []any
	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		fields = append(fields, string(RequestIDKey), requestID)
	}
	if workspaceID := ctx.Value(WorkspaceIDKey); workspaceID != nil {
		fields = append(fields, string(WorkspaceIDKey), workspaceID)
	}

	if len(fields) > 0 {
		logger = logger.With(fields...)
	}
	return logger
}

// WithRequestID adds the request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithWorkspaceID adds the workspace ID to the context.
func WithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, WorkspaceIDKey, workspaceID)
}

// RequestIDFromContext returns the request ID stamped by the request
// scope middleware, or "" when the call did not come through HTTP.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
