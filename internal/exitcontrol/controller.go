package exitcontrol

import (
	"context"
	"fmt"
	"log/slog"

	"qcflow/internal/services"
	"qcflow/internal/store"
)

// Controller manages exit controls and their samples for jobs.
type Controller struct {
	store  *store.Store
	logger *slog.Logger
}

// NewController builds an exit-control controller backed by the given store.
func NewController(st *store.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{store: st, logger: logger}
}

// SampleResult carries one sample's sub-check verdicts.
type SampleResult struct {
	DimensionsOK bool
	VisualOK     bool
	SurfaceOK    bool
	Notes        string
}

// Pass reports the strict conjunction of the three sub-checks.
func (r SampleResult) Pass() bool {
	return r.DimensionsOK && r.VisualOK && r.SurfaceOK
}

// Create opens an exit control for a job, seeding the default sample plan for
// the given lot quantity. A zero lot quantity falls back to the job quantity.
func (c *Controller) Create(ctx context.Context, jobID int64, lotQuantity int, inspector, notes string) (*store.ExitControl, error) {
	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "exitcontrol", "create", "load job", err)
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "exitcontrol", "create", "job not found", nil)
	}
	if lotQuantity <= 0 {
		lotQuantity = job.Quantity
	}
	if lotQuantity <= 0 {
		return nil, services.Wrap(services.ErrValidation, "exitcontrol", "create", "lot quantity must be positive", nil)
	}

	ec, err := c.store.CreateExitControl(ctx, &store.ExitControl{
		JobID:       jobID,
		Inspector:   inspector,
		LotQuantity: lotQuantity,
		Notes:       notes,
	}, SamplePositions(lotQuantity))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "exitcontrol", "create", "persist exit control", err)
	}

	c.logger.Info("exit control opened",
		slog.String("job", job.JobNumber),
		slog.Int("lot_quantity", lotQuantity),
		slog.Int("samples", len(SamplePositions(lotQuantity))))
	return ec, nil
}

// AddSample appends one extra position to the plan. Positions must lie inside
// the lot and may not repeat.
func (c *Controller) AddSample(ctx context.Context, exitControlID int64, position int) error {
	ec, err := c.get(ctx, exitControlID)
	if err != nil {
		return err
	}
	if position < 1 || position > ec.LotQuantity {
		return services.Wrap(services.ErrValidation, "exitcontrol", "add-sample",
			fmt.Sprintf("position %d outside lot of %d", position, ec.LotQuantity), nil)
	}
	if err := c.store.AddSample(ctx, exitControlID, position); err != nil {
		if store.IsUniqueViolation(err) {
			return services.Wrap(services.ErrConflict, "exitcontrol", "add-sample",
				fmt.Sprintf("position %d already sampled", position), nil)
		}
		return services.Wrap(services.ErrTransient, "exitcontrol", "add-sample", "persist sample", err)
	}
	return nil
}

// RecordSample stores a sample's inspection result, recomputes the lot verdict
// once every sample is recorded, and on a passing lot completes the job if it
// still sits in exit control. The whole cycle is serialized per job.
func (c *Controller) RecordSample(ctx context.Context, exitControlID int64, position int, result SampleResult) (*store.ExitControl, error) {
	ec, err := c.get(ctx, exitControlID)
	if err != nil {
		return nil, err
	}

	var updated *store.ExitControl
	err = c.store.WithJobLock(ec.JobID, func() error {
		sample, err := c.store.GetSampleByPosition(ctx, exitControlID, position)
		if err != nil {
			return services.Wrap(services.ErrTransient, "exitcontrol", "record", "load sample", err)
		}
		if sample == nil {
			return services.Wrap(services.ErrNotFound, "exitcontrol", "record",
				fmt.Sprintf("no sample at position %d", position), nil)
		}

		if err := c.store.RecordSample(ctx, sample.ID, result.DimensionsOK, result.VisualOK, result.SurfaceOK, result.Pass(), result.Notes); err != nil {
			return services.Wrap(services.ErrTransient, "exitcontrol", "record", "persist result", err)
		}

		if err := c.recomputeVerdict(ctx, ec, store.StageExitControl); err != nil {
			return err
		}
		updated, err = c.get(ctx, exitControlID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Complete finalizes an exit control manually. Every planned sample must be
// recorded first. A passing lot completes the job no matter what stage it sits
// in; the inspector asking for completion overrides an intermediate move.
func (c *Controller) Complete(ctx context.Context, exitControlID int64) (*store.ExitControl, error) {
	ec, err := c.get(ctx, exitControlID)
	if err != nil {
		return nil, err
	}

	var updated *store.ExitControl
	err = c.store.WithJobLock(ec.JobID, func() error {
		samples, err := c.store.ListSamples(ctx, exitControlID)
		if err != nil {
			return services.Wrap(services.ErrTransient, "exitcontrol", "complete", "load samples", err)
		}
		pending := 0
		for _, sample := range samples {
			if !sample.Recorded() {
				pending++
			}
		}
		if pending > 0 {
			return services.Wrap(services.ErrIncompleteSampling, "exitcontrol", "complete",
				fmt.Sprintf("%d of %d samples not recorded", pending, len(samples)), nil)
		}
		if err := c.recomputeVerdict(ctx, ec, ""); err != nil {
			return err
		}
		updated, err = c.get(ctx, exitControlID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Get fetches an exit control by identifier.
func (c *Controller) Get(ctx context.Context, id int64) (*store.ExitControl, error) {
	return c.get(ctx, id)
}

// Samples lists an exit control's samples in lot order.
func (c *Controller) Samples(ctx context.Context, exitControlID int64) ([]*store.ExitControlSample, error) {
	samples, err := c.store.ListSamples(ctx, exitControlID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "exitcontrol", "samples", "query failed", err)
	}
	return samples, nil
}

func (c *Controller) get(ctx context.Context, id int64) (*store.ExitControl, error) {
	ec, err := c.store.GetExitControl(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "exitcontrol", "get", "lookup failed", err)
	}
	if ec == nil {
		return nil, services.Wrap(services.ErrNotFound, "exitcontrol", "get", "exit control not found", nil)
	}
	return ec, nil
}

// recomputeVerdict derives the lot status from the recorded samples. The lot
// stays in progress until every sample is recorded; it passes only when all
// samples pass. A passing lot completes the job when its stage matches
// requiredStage; an empty requiredStage completes unconditionally. Caller holds
// the job lock.
func (c *Controller) recomputeVerdict(ctx context.Context, ec *store.ExitControl, requiredStage store.Stage) error {
	samples, err := c.store.ListSamples(ctx, ec.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "exitcontrol", "verdict", "load samples", err)
	}

	allRecorded := true
	allPass := true
	for _, sample := range samples {
		if !sample.Recorded() {
			allRecorded = false
			break
		}
		if !*sample.OverallPass {
			allPass = false
		}
	}

	verdict := store.LotInProgress
	if allRecorded && len(samples) > 0 {
		if allPass {
			verdict = store.LotPassed
		} else {
			verdict = store.LotFailed
		}
	}
	if verdict != ec.OverallStatus {
		if err := c.store.SetLotStatus(ctx, ec.ID, verdict); err != nil {
			return services.Wrap(services.ErrTransient, "exitcontrol", "verdict", "persist status", err)
		}
		ec.OverallStatus = verdict
	}

	if verdict != store.LotPassed {
		return nil
	}
	transitioned, err := c.store.CompleteJobIfStage(ctx, ec.JobID, requiredStage, store.AuditEntry{
		Actor:       ec.Inspector,
		Action:      "update",
		EntityType:  "job",
		EntityID:    ec.JobID,
		Description: "Job completed by passing exit control",
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "exitcontrol", "verdict", "complete job", err)
	}
	if transitioned {
		c.logger.Info("job completed by exit control",
			slog.Int64("job_id", ec.JobID),
			slog.Int64("exit_control_id", ec.ID))
	}
	return nil
}
