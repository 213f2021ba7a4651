package services_test

import (
	"context"
	"testing"

	"bgmexport/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithPhase(ctx, "episodes")
	ctx = services.WithSubjectID(ctx, 42)

	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
	if phase, ok := services.PhaseFromContext(ctx); !ok || phase != "episodes" {
		t.Fatalf("unexpected phase: %v %v", phase, ok)
	}
	if id, ok := services.SubjectIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected subject id: %v %v", id, ok)
	}
}

func TestPhaseBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPhase(ctx, "")
	if _, ok := services.PhaseFromContext(ctx); ok {
		t.Fatal("expected no phase value")
	}
}
