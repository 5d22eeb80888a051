package logger

import "context"

type contextKey string

const (
	runIDKey  contextKey = "snakeview.run_id"
	sourceKey contextKey = "snakeview.source"
)

// WithRunID stores the ID of one replay, listen or simulate run in ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts the run ID from context.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSource stores the frame source name ("replay", "live" or "simulate")
// in ctx.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext extracts the frame source name from context.
func SourceFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey).(string); ok {
		return s
	}
	return ""
}
