package logging

import (
	"context"
	"log/slog"
)

// runIDHandler wraps another handler to inject a run_id attribute into all records.
type runIDHandler struct {
	base  slog.Handler
	runID string
}

func newRunIDHandler(base slog.Handler, runID string) slog.Handler {
	if base == nil {
		return discardHandler{}
	}
	return &runIDHandler{base: base, runID: runID}
}

func (h *runIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *runIDHandler) Handle(ctx context.Context, record slog.Record) error {
	if _, ok := recordHasKey(record, FieldRunID); !ok {
		record.AddAttrs(slog.String(FieldRunID, h.runID))
	}
	return h.base.Handle(ctx, record)
}

func (h *runIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	for _, attr := range attrs {
		if attr.Key == FieldRunID {
			return h.base.WithAttrs(attrs)
		}
	}
	return &runIDHandler{base: h.base.WithAttrs(attrs), runID: h.runID}
}

func (h *runIDHandler) WithGroup(name string) slog.Handler {
	return &runIDHandler{base: h.base.WithGroup(name), runID: h.runID}
}

func recordHasKey(record slog.Record, key string) (slog.Value, bool) {
	var (
		found bool
		value slog.Value
	)
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			found, value = true, attr.Value
			return false
		}
		return true
	})
	return value, found
}
