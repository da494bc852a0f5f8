package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"sarchain/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrPersistence, "esd", "persist", "remove stale output", base)
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"esd", "persist", "remove stale output", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExecution) {
		t.Fatalf("expected nil marker to default to execution error, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want services.Severity
	}{
		{"timestamp", services.Wrap(services.ErrTimestampParse, "ordering", "", "bad token", nil), services.SeverityFatal},
		{"configuration", services.Wrap(services.ErrConfiguration, "backgeo", "", "dem missing", nil), services.SeverityFatal},
		{"operation", services.Wrap(services.ErrOperation, "esd", "", "", nil), services.SeverityFatal},
		{"persistence", services.Wrap(services.ErrPersistence, "deburst", "", "", nil), services.SeverityFatal},
		{"execution", services.Wrap(services.ErrExecution, "gpt", "", "", nil), services.SeverityFatal},
		{"discovery", services.Wrap(services.ErrDiscoverySkipped, "unwrap", "", "no subdirectories", nil), services.SeverityAdvisory},
		{"unwrap", services.Wrap(services.ErrUnwrapFailed, "unwrap", "", "exit 1", nil), services.SeverityAdvisory},
		{"untagged", errors.New("plain"), services.SeverityFatal},
		{"rewrapped", fmt.Errorf("outer: %w", services.Wrap(services.ErrUnwrapFailed, "", "", "", nil)), services.SeverityAdvisory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.SeverityOf(tt.err); got != tt.want {
				t.Fatalf("SeverityOf(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestFatalMarkerWinsOverAdvisory(t *testing.T) {
	err := errors.Join(
		services.Wrap(services.ErrUnwrapFailed, "", "", "", nil),
		services.Wrap(services.ErrExecution, "", "", "", nil),
	)
	if services.IsAdvisory(err) {
		t.Fatalf("expected joined fatal marker to dominate, got advisory")
	}
	if services.Kind(err) != services.ErrExecution.Error() {
		t.Fatalf("unexpected kind %q", services.Kind(err))
	}
}
