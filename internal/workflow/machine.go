// Package workflow owns job stage transitions and their side effects.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"qcflow/internal/services"
	"qcflow/internal/store"
)

// Machine applies stage transitions to jobs. Transitions between any two known
// stages are allowed; the machine's job is keeping the completion timestamp
// and audit trail consistent with the stage, not policing stage order.
type Machine struct {
	store  *store.Store
	logger *slog.Logger
}

// NewMachine builds a workflow machine backed by the given store.
func NewMachine(st *store.Store, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{store: st, logger: logger}
}

// SetStage moves a job to the target stage. Entering complete stamps
// completed_at; leaving it clears the stamp so a reopened job never reads as
// finished. The transition and its audit entry commit atomically.
func (m *Machine) SetStage(ctx context.Context, jobID int64, target string, actor string) (*store.Job, error) {
	stage, ok := store.ParseStage(target)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "workflow", "set-stage",
			fmt.Sprintf("unknown stage %q", target), nil)
	}

	var result *store.Job
	err := m.store.WithJobLock(jobID, func() error {
		job, err := m.store.GetJob(ctx, jobID)
		if err != nil {
			return services.Wrap(services.ErrTransient, "workflow", "set-stage", "load job", err)
		}
		if job == nil {
			return services.Wrap(services.ErrNotFound, "workflow", "set-stage", "job not found", nil)
		}
		if job.Stage == stage {
			result = job
			return nil
		}

		var completedAt *time.Time
		if stage == store.StageComplete {
			now := time.Now()
			completedAt = &now
		}
		entry := store.AuditEntry{
			Actor:       actor,
			Action:      "update",
			EntityType:  "job",
			EntityID:    jobID,
			Description: fmt.Sprintf("Stage changed from %s to %s", job.Stage, stage),
		}
		if err := m.store.ApplyStage(ctx, jobID, stage, completedAt, entry); err != nil {
			return services.Wrap(services.ErrTransient, "workflow", "set-stage", "apply transition", err)
		}

		m.logger.Info("job stage changed",
			slog.String("job", job.JobNumber),
			slog.String("from", string(job.Stage)),
			slog.String("to", string(stage)))

		result, err = m.store.GetJob(ctx, jobID)
		if err != nil {
			return services.Wrap(services.ErrTransient, "workflow", "set-stage", "reload job", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Complete is a convenience for the manual completion action.
func (m *Machine) Complete(ctx context.Context, jobID int64, actor string) (*store.Job, error) {
	return m.SetStage(ctx, jobID, string(store.StageComplete), actor)
}

// Hold parks a job on hold without recording where it came from; resuming is
// an explicit transition back to a working stage.
func (m *Machine) Hold(ctx context.Context, jobID int64, actor string) (*store.Job, error) {
	return m.SetStage(ctx, jobID, string(store.StageOnHold), actor)
}

// VerifyRevision marks the job's drawing revision as checked by actor.
func (m *Machine) VerifyRevision(ctx context.Context, jobID int64, actor string) (*store.Job, error) {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "workflow", "verify-revision", "load job", err)
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "verify-revision", "job not found", nil)
	}
	if err := m.store.VerifyRevision(ctx, jobID, actor); err != nil {
		return nil, services.Wrap(services.ErrTransient, "workflow", "verify-revision", "persist verification", err)
	}
	job, err = m.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "workflow", "verify-revision", "reload job", err)
	}
	return job, nil
}
