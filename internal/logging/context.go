package logging

import (
	"context"
	"log/slog"

	"lunchscraper/internal/services"
)

// contextExtractors maps log keys to the services context accessors, in the
// order the fields appear on a record.
var contextExtractors = []struct {
	key     string
	extract func(context.Context) (string, bool)
}{
	{FieldRunID, services.RunIDFromContext},
	{FieldTargetDate, services.TargetDateFromContext},
	{FieldSlot, services.SlotFromContext},
	{FieldStage, services.StageFromContext},
	{FieldCorrelationID, services.RequestIDFromContext},
}

// ContextFields returns the run, date, slot, stage and correlation fields
// carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	for _, ex := range contextExtractors {
		if value, ok := ex.extract(ctx); ok {
			fields = append(fields, slog.String(ex.key, value))
		}
	}
	return fields
}

// WithContext returns logger with the fields carried by ctx attached.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
