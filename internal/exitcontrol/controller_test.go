package exitcontrol_test

import (
	"context"
	"errors"
	"testing"

	"qcflow/internal/exitcontrol"
	"qcflow/internal/services"
	"qcflow/internal/store"
	"qcflow/internal/testsupport"
	"qcflow/internal/workflow"
)

func newJobInExitControl(t *testing.T, st *store.Store, quantity int) *store.Job {
	t.Helper()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", quantity)
	machine := workflow.NewMachine(st, nil)
	job, err := machine.SetStage(context.Background(), job.ID, "exit_control", "ayse")
	if err != nil {
		t.Fatalf("SetStage: %v", err)
	}
	return job
}

func passAllSamples(t *testing.T, ctrl *exitcontrol.Controller, ecID int64, positions []int) *store.ExitControl {
	t.Helper()
	var (
		ec  *store.ExitControl
		err error
	)
	for _, pos := range positions {
		ec, err = ctrl.RecordSample(context.Background(), ecID, pos, exitcontrol.SampleResult{
			DimensionsOK: true,
			VisualOK:     true,
			SurfaceOK:    true,
		})
		if err != nil {
			t.Fatalf("RecordSample %d: %v", pos, err)
		}
	}
	return ec
}

func TestCreateSeedsDefaultPlan(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctrl := exitcontrol.NewController(st, nil)
	ctx := context.Background()
	job := newJobInExitControl(t, st, 25)

	ec, err := ctrl.Create(ctx, job.ID, 0, "ayse", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ec.LotQuantity != 25 {
		t.Fatalf("lot quantity = %d, want job quantity 25", ec.LotQuantity)
	}

	samples, err := ctrl.Samples(ctx, ec.ID)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	want := []int{1, 2, 3, 4, 5, 15, 25}
	if len(samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(samples), len(want))
	}
	for i, pos := range want {
		if samples[i].Position != pos {
			t.Fatalf("sample %d at position %d, want %d", i, samples[i].Position, pos)
		}
	}
}

func TestAddSampleValidatesPosition(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctrl := exitcontrol.NewController(st, nil)
	ctx := context.Background()
	job := newJobInExitControl(t, st, 12)

	ec, err := ctrl.Create(ctx, job.ID, 12, "ayse", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := ctrl.AddSample(ctx, ec.ID, 8); err != nil {
		t.Fatalf("AddSample valid: %v", err)
	}
	if err := ctrl.AddSample(ctx, ec.ID, 0); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("position 0 should fail validation, got %v", err)
	}
	if err := ctrl.AddSample(ctx, ec.ID, 13); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("position beyond lot should fail validation, got %v", err)
	}
	if err := ctrl.AddSample(ctx, ec.ID, 8); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("duplicate position should conflict, got %v", err)
	}
}

func TestRecordSampleStrictConjunction(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctrl := exitcontrol.NewController(st, nil)
	ctx := context.Background()
	job := newJobInExitControl(t, st, 3)

	ec, err := ctrl.Create(ctx, job.ID, 3, "ayse", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := ctrl.RecordSample(ctx, ec.ID, 1, exitcontrol.SampleResult{
		DimensionsOK: true,
		VisualOK:     true,
		SurfaceOK:    false,
	}); err != nil {
		t.Fatalf("RecordSample: %v", err)
	}

	sample, err := st.GetSampleByPosition(ctx, ec.ID, 1)
	if err != nil {
		t.Fatalf("GetSampleByPosition: %v", err)
	}
	if sample.OverallPass == nil || *sample.OverallPass {
		t.Fatal("one failing sub-check must fail the sample")
	}
}

func TestLotVerdictWaitsForAllSamples(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctrl := exitcontrol.NewController(st, nil)
	ctx := context.Background()
	job := newJobInExitControl(t, st, 3)

	ec, err := ctrl.Create(ctx, job.ID, 3, "ayse", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ec, err = ctrl.RecordSample(ctx, ec.ID, 1, exitcontrol.SampleResult{DimensionsOK: true, VisualOK: true, SurfaceOK: true})
	if err != nil {
		t.Fatalf("RecordSample: %v", err)
	}
	if ec.OverallStatus != store.LotInProgress {
		t.Fatalf("verdict with pending samples = %q, want in_progress", ec.OverallStatus)
	}

	ec = passAllSamples(t, ctrl, ec.ID, []int{2, 3})
	if ec.OverallStatus != store.LotPassed {
		t.Fatalf("verdict after all pass = %q, want passed", ec.OverallStatus)
	}
}

func TestPassingLotCompletesJobInExitControl(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctrl := exitcontrol.NewController(st, nil)
	ctx := context.Background()
	job := newJobInExitControl(t, st, 2)

	ec, err := ctrl.Create(ctx, job.ID, 2, "ayse", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	passAllSamples(t, ctrl, ec.ID, []int{1, 2})

	got, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Stage != store.StageComplete || got.CompletedAt == nil {
		t.Fatalf("passing lot should complete job, got stage=%q", got.Stage)
	}
}

func TestPassingLotLeavesMovedJobAlone(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctrl := exitcontrol.NewController(st, nil)
	machine := workflow.NewMachine(st, nil)
	ctx := context.Background()
	job := newJobInExitControl(t, st, 2)

	ec, err := ctrl.Create(ctx, job.ID, 2, "ayse", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Job got pulled back mid-inspection.
	if _, err := machine.SetStage(ctx, job.ID, "on_hold", "mehmet"); err != nil {
		t.Fatalf("SetStage: %v", err)
	}

	ec = passAllSamples(t, ctrl, ec.ID, []int{1, 2})
	if ec.OverallStatus != store.LotPassed {
		t.Fatalf("verdict = %q, want passed", ec.OverallStatus)
	}

	got, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Stage != store.StageOnHold {
		t.Fatalf("job outside exit_control must not auto-complete, got %q", got.Stage)
	}
}

func TestFailingLotHoldsJob(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctrl := exitcontrol.NewController(st, nil)
	ctx := context.Background()
	job := newJobInExitControl(t, st, 2)

	ec, err := ctrl.Create(ctx, job.ID, 2, "ayse", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := ctrl.RecordSample(ctx, ec.ID, 1, exitcontrol.SampleResult{DimensionsOK: true, VisualOK: true, SurfaceOK: true}); err != nil {
		t.Fatalf("RecordSample: %v", err)
	}
	ec, err = ctrl.RecordSample(ctx, ec.ID, 2, exitcontrol.SampleResult{DimensionsOK: false, VisualOK: true, SurfaceOK: true})
	if err != nil {
		t.Fatalf("RecordSample: %v", err)
	}
	if ec.OverallStatus != store.LotFailed {
		t.Fatalf("verdict = %q, want failed", ec.OverallStatus)
	}

	got, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Stage != store.StageExitControl {
		t.Fatalf("failing lot must not move the job, got %q", got.Stage)
	}
}

func TestManualCompleteFinishesMovedJob(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctrl := exitcontrol.NewController(st, nil)
	machine := workflow.NewMachine(st, nil)
	ctx := context.Background()
	job := newJobInExitControl(t, st, 3)

	ec, err := ctrl.Create(ctx, job.ID, 3, "ayse", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := machine.SetStage(ctx, job.ID, "in_process", "mehmet"); err != nil {
		t.Fatalf("SetStage: %v", err)
	}

	ec = passAllSamples(t, ctrl, ec.ID, []int{1, 2, 3})
	if ec.OverallStatus != store.LotPassed {
		t.Fatalf("verdict = %q, want passed", ec.OverallStatus)
	}

	// The per-sample path left the moved job alone; the explicit completion
	// request overrides the move.
	if _, err := ctrl.Complete(ctx, ec.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Stage != store.StageComplete || got.CompletedAt == nil {
		t.Fatalf("manual completion of a passed lot must complete the job, got stage=%q", got.Stage)
	}
}

func TestCompleteRequiresAllSamplesRecorded(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctrl := exitcontrol.NewController(st, nil)
	ctx := context.Background()
	job := newJobInExitControl(t, st, 3)

	ec, err := ctrl.Create(ctx, job.ID, 3, "ayse", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := ctrl.Complete(ctx, ec.ID); !errors.Is(err, services.ErrIncompleteSampling) {
		t.Fatalf("expected incomplete-sampling error, got %v", err)
	}

	passAllSamples(t, ctrl, ec.ID, []int{1, 2, 3})
	got, err := ctrl.Complete(ctx, ec.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.OverallStatus != store.LotPassed {
		t.Fatalf("verdict = %q, want passed", got.OverallStatus)
	}
}
