package services_test

import (
	"context"
	"testing"

	"beatmatcher/internal/services"
)

func TestContextAnnotations(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.TaskIDFromContext(ctx); ok {
		t.Fatal("empty context should carry no task id")
	}

	ctx = services.WithTaskID(ctx, 42)
	ctx = services.WithStage(ctx, "searching")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.TaskIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("task id = %d, %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "searching" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}

func TestEmptyAnnotationsAreNoops(t *testing.T) {
	ctx := context.Background()
	if services.WithStage(ctx, "") != ctx {
		t.Fatal("empty stage should not allocate a new context")
	}
	if services.WithRequestID(ctx, "") != ctx {
		t.Fatal("empty request id should not allocate a new context")
	}
}
