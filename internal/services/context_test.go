package services_test

import (
	"context"
	"testing"

	"lunchscraper/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithTargetDate(ctx, "2024-03-15")
	ctx = services.WithSlot(ctx, "11:30")
	ctx = services.WithStage(ctx, "menu_persistence")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if date, ok := services.TargetDateFromContext(ctx); !ok || date != "2024-03-15" {
		t.Fatalf("unexpected target date: %v %v", date, ok)
	}
	if slot, ok := services.SlotFromContext(ctx); !ok || slot != "11:30" {
		t.Fatalf("unexpected slot: %v %v", slot, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "menu_persistence" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithSlot(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.SlotFromContext(ctx); ok {
		t.Fatal("expected no slot value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
}
