// Package observability holds the process-wide logger, Prometheus collectors
// and OpenTelemetry tracer.
package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// ContextKey types request-scoped values shared with the HTTP middleware.
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UserIDKey    ContextKey = "user_id"
	TraceIDKey   ContextKey = "trace_id"
)

// GlobalLogger is the JSON logger used below the HTTP layer.
var GlobalLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelFromEnv()}))

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func stringValue(ctx context.Context, key ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// RepoLogger writes one structured line per store mutation.
type RepoLogger struct {
	table string
}

// NewRepoLogger returns a logger tagged with table.
func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

func (l *RepoLogger) attrs(ctx context.Context, op string, fields map[string]interface{}) []any {
	attrs := []any{slog.String("table", l.table), slog.String("operation", op)}
	if rid := stringValue(ctx, RequestIDKey); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if uid := stringValue(ctx, UserIDKey); uid != "" {
		attrs = append(attrs, slog.String("user_id", uid))
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// LogCreate records an insert or upsert.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]interface{}) {
	GlobalLogger.InfoContext(ctx, "store write", l.attrs(ctx, "create", fields)...)
}

// LogDelete records a delete.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]interface{}) {
	GlobalLogger.InfoContext(ctx, "store write", l.attrs(ctx, "delete", fields)...)
}

// LogError records a failed store call. A nil err is ignored.
func (l *RepoLogger) LogError(ctx context.Context, err error, op string) {
	if err == nil {
		return
	}
	attrs := append(l.attrs(ctx, op, nil), slog.String("error", err.Error()))
	GlobalLogger.ErrorContext(ctx, "store error", attrs...)
}
