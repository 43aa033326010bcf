package services_test

import (
	"errors"
	"strings"
	"testing"

	"qcflow/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("disk on fire")
	err := services.Wrap(services.ErrValidation, "workflow", "set-stage", "bad stage", base)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "workflow: set-stage: bad stage") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	if services.IsRetryable(services.Wrap(services.ErrValidation, "a", "b", "c", nil)) {
		t.Fatal("validation errors must not be retryable")
	}
	if !services.IsRetryable(services.Wrap(services.ErrTransient, "a", "b", "c", nil)) {
		t.Fatal("transient errors must be retryable")
	}
}
