// Package log wraps log/slog with component-scoped loggers, the shared
// field names used across the service, and a handler that stamps every
// line with the request ID carried in the context.
package log

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the root logger installed by the mains.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level   slog.Level
	Handler slog.Handler
}

// New creates a root logger. A nil Handler falls back to a text handler on
// stdout at the configured level. The handler is wrapped so that log lines
// emitted with a request-scoped context carry the request ID.
func New(cfg Config) *Logger {
	handler := cfg.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level})
	}
	return &Logger{Logger: slog.New(ContextHandler{inner: handler})}
}

// SetDefault installs the logger as the process-wide slog default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}

// ForComponent returns a logger scoped to the given component name,
// derived from the process-wide default.
func ForComponent(component string) *slog.Logger {
	return slog.Default().With(FieldComponent, component)
}

type requestIDKey struct{}

// ContextWithRequestID stamps the request ID onto the context so every
// log line emitted while handling the request can be correlated.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request ID, or "" when the context is
// not request-scoped.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ContextHandler decorates records with the request ID from the context.
type ContextHandler struct {
	inner slog.Handler
}

func (h ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h ContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if id := RequestIDFromContext(ctx); id != "" {
		record.AddAttrs(slog.String(FieldRequestID, id))
	}
	return h.inner.Handle(ctx, record)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{inner: h.inner.WithGroup(name)}
}
