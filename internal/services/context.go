package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	targetDateKey contextKey = "target_date"
	slotKey       contextKey = "slot"
	stageKey      contextKey = "stage"
	requestIDKey  contextKey = "request_id"
)

// WithRunID annotates context with the scrape run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the scrape run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTargetDate annotates context with the date being scraped (YYYY-MM-DD).
func WithTargetDate(ctx context.Context, date string) context.Context {
	if date == "" {
		return ctx
	}
	return context.WithValue(ctx, targetDateKey, date)
}

// TargetDateFromContext returns the target date if present.
func TargetDateFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(targetDateKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSlot annotates context with the time slot (HH:MM) being processed.
func WithSlot(ctx context.Context, slot string) context.Context {
	if slot == "" {
		return ctx
	}
	return context.WithValue(ctx, slotKey, slot)
}

// SlotFromContext returns the time slot if present.
func SlotFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(slotKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the slot chain stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
