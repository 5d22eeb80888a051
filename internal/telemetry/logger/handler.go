package logger

import (
	"context"
	"log/slog"
)

// contextHandler adds the run ID and source stored in the record's context
// to every entry.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id := RunIDFromContext(ctx); id != "" {
			r.AddAttrs(slog.String("run_id", id))
		}
		if src := SourceFromContext(ctx); src != "" {
			r.AddAttrs(slog.String("source", src))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
