package parts_test

import (
	"context"
	"errors"
	"testing"

	"qcflow/internal/parts"
	"qcflow/internal/services"
	"qcflow/internal/testsupport"
)

func TestResolveOrCreateDeduplicatesIdentity(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	registry := parts.NewRegistry(st, nil)
	ctx := context.Background()

	first, created, err := registry.ResolveOrCreate(ctx, "PN-200", "A", "shaft")
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if !created {
		t.Fatal("first resolve of a new identity must report created")
	}

	second, created, err := registry.ResolveOrCreate(ctx, "PN-200", "A", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate again: %v", err)
	}
	if created {
		t.Fatal("second resolve of the same identity must not report created")
	}
	if second.ID != first.ID {
		t.Fatalf("same identity resolved to different parts: %d vs %d", first.ID, second.ID)
	}
	if second.Description != "shaft" {
		t.Fatalf("empty description should not clear stored one, got %q", second.Description)
	}
}

func TestResolveOrCreateTreatsMissingRevisionAsEmpty(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	registry := parts.NewRegistry(st, nil)
	ctx := context.Background()

	first, _, err := registry.ResolveOrCreate(ctx, "PN-201", "", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	second, created, err := registry.ResolveOrCreate(ctx, " PN-201 ", "  ", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate trimmed: %v", err)
	}
	if created {
		t.Fatal("trimmed identity matches the existing part, must not report created")
	}
	if second.ID != first.ID {
		t.Fatalf("whitespace-only revision should match empty revision: %d vs %d", first.ID, second.ID)
	}
}

func TestResolveOrCreateDistinguishesRevisions(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	registry := parts.NewRegistry(st, nil)
	ctx := context.Background()

	revA, _, err := registry.ResolveOrCreate(ctx, "PN-202", "A", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate A: %v", err)
	}
	revB, created, err := registry.ResolveOrCreate(ctx, "PN-202", "B", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate B: %v", err)
	}
	if !created {
		t.Fatal("new revision is a new identity, must report created")
	}
	if revA.ID == revB.ID {
		t.Fatal("distinct revisions should be distinct parts")
	}

	// Case differs, identity differs.
	revLower, _, err := registry.ResolveOrCreate(ctx, "PN-202", "a", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate a: %v", err)
	}
	if revLower.ID == revA.ID {
		t.Fatal("revision matching must be case-sensitive")
	}
}

func TestResolveOrCreateUpdatesDescription(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	registry := parts.NewRegistry(st, nil)
	ctx := context.Background()

	if _, _, err := registry.ResolveOrCreate(ctx, "PN-203", "A", "old text"); err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	updated, _, err := registry.ResolveOrCreate(ctx, "PN-203", "A", "new text")
	if err != nil {
		t.Fatalf("ResolveOrCreate update: %v", err)
	}
	if updated.Description != "new text" {
		t.Fatalf("description = %q, want new text", updated.Description)
	}

	got, err := registry.Get(ctx, updated.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != "new text" {
		t.Fatalf("stored description = %q, want new text", got.Description)
	}
}

func TestResolveOrCreateRejectsEmptyNumber(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	registry := parts.NewRegistry(st, nil)

	_, _, err := registry.ResolveOrCreate(context.Background(), "  ", "A", "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetUnknownPart(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	registry := parts.NewRegistry(st, nil)

	_, err := registry.Get(context.Background(), 9999)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
