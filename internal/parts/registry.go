// Package parts maintains the canonical part catalog keyed by part number and
// revision.
package parts

import (
	"context"
	"log/slog"
	"strings"

	"qcflow/internal/services"
	"qcflow/internal/store"
)

// Registry deduplicates part identities across job intake.
type Registry struct {
	store  *store.Store
	logger *slog.Logger
}

// NewRegistry builds a registry backed by the given store.
func NewRegistry(st *store.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: st, logger: logger}
}

// Normalize trims an identity component. A missing revision and an empty
// revision are the same identity.
func Normalize(value string) string {
	return strings.TrimSpace(value)
}

// ResolveOrCreate returns the part with the given identity, creating it when
// absent, and reports whether a new row was inserted. When the part exists and
// a non-empty description is supplied, the stored description is refreshed.
// Lookups are exact after trimming; no case folding is applied. Losing a create
// race counts as found, not created.
func (r *Registry) ResolveOrCreate(ctx context.Context, number, revision, description string) (*store.Part, bool, error) {
	number = Normalize(number)
	revision = Normalize(revision)
	description = strings.TrimSpace(description)
	if number == "" {
		return nil, false, services.Wrap(services.ErrValidation, "parts", "resolve", "part number is required", nil)
	}

	existing, err := r.store.FindPart(ctx, number, revision)
	if err != nil {
		return nil, false, services.Wrap(services.ErrTransient, "parts", "resolve", "lookup failed", err)
	}
	if existing != nil {
		part, err := r.refreshDescription(ctx, existing, description)
		return part, false, err
	}

	created, err := r.store.CreatePart(ctx, number, revision, description)
	if err == nil {
		r.logger.Info("part created",
			slog.String("part_number", number),
			slog.String("revision", revision))
		return created, true, nil
	}
	if !store.IsUniqueViolation(err) {
		return nil, false, services.Wrap(services.ErrTransient, "parts", "create", "insert failed", err)
	}

	// Lost a create race; the winner's row must exist now.
	existing, lookupErr := r.store.FindPart(ctx, number, revision)
	if lookupErr != nil {
		return nil, false, services.Wrap(services.ErrTransient, "parts", "resolve", "post-conflict lookup failed", lookupErr)
	}
	if existing == nil {
		return nil, false, services.Wrap(services.ErrTransient, "parts", "resolve", "part vanished after conflict", err)
	}
	part, err := r.refreshDescription(ctx, existing, description)
	return part, false, err
}

// Get fetches a part by identifier.
func (r *Registry) Get(ctx context.Context, id int64) (*store.Part, error) {
	part, err := r.store.GetPart(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "parts", "get", "lookup failed", err)
	}
	if part == nil {
		return nil, services.Wrap(services.ErrNotFound, "parts", "get", "part not found", nil)
	}
	return part, nil
}

// List returns the full catalog.
func (r *Registry) List(ctx context.Context) ([]*store.Part, error) {
	catalog, err := r.store.ListParts(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "parts", "list", "query failed", err)
	}
	return catalog, nil
}

func (r *Registry) refreshDescription(ctx context.Context, part *store.Part, description string) (*store.Part, error) {
	if description == "" || description == part.Description {
		return part, nil
	}
	if err := r.store.UpdatePartDescription(ctx, part.ID, description); err != nil {
		return nil, services.Wrap(services.ErrTransient, "parts", "resolve", "description update failed", err)
	}
	part.Description = description
	return part, nil
}
