package services

import (
	"context"
	"testing"
)

func TestContextHelpersRoundTrip(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithScene(ctx, "S1A_scene")
	ctx = WithRole(ctx, "slave")
	ctx = WithStage(ctx, "esd")

	if v, ok := RunIDFromContext(ctx); !ok || v != "run-1" {
		t.Fatalf("unexpected run id %q (%v)", v, ok)
	}
	if v, ok := SceneFromContext(ctx); !ok || v != "S1A_scene" {
		t.Fatalf("unexpected scene %q (%v)", v, ok)
	}
	if v, ok := RoleFromContext(ctx); !ok || v != "slave" {
		t.Fatalf("unexpected role %q (%v)", v, ok)
	}
	if v, ok := StageFromContext(ctx); !ok || v != "esd" {
		t.Fatalf("unexpected stage %q (%v)", v, ok)
	}
}

func TestContextHelpersIgnoreEmpty(t *testing.T) {
	ctx := WithStage(context.Background(), "")
	if _, ok := StageFromContext(ctx); ok {
		t.Fatal("expected empty stage to be ignored")
	}
	if _, ok := RunIDFromContext(nil); ok { //nolint:staticcheck
		t.Fatal("expected nil context to report no run id")
	}
}
