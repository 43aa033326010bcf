package workflow_test

import (
	"context"
	"errors"
	"testing"

	"qcflow/internal/services"
	"qcflow/internal/store"
	"qcflow/internal/testsupport"
	"qcflow/internal/workflow"
)

func TestSetStageAcceptsAnyKnownStage(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	machine := workflow.NewMachine(st, nil)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	// Skipping ahead is allowed; stage order is advisory.
	got, err := machine.SetStage(ctx, job.ID, "exit_control", "mehmet")
	if err != nil {
		t.Fatalf("SetStage: %v", err)
	}
	if got.Stage != store.StageExitControl {
		t.Fatalf("stage = %q, want exit_control", got.Stage)
	}

	// Moving backwards is allowed too.
	got, err = machine.SetStage(ctx, job.ID, "revision_check", "mehmet")
	if err != nil {
		t.Fatalf("SetStage back: %v", err)
	}
	if got.Stage != store.StageRevisionCheck {
		t.Fatalf("stage = %q, want revision_check", got.Stage)
	}
}

func TestSetStageRejectsUnknownStage(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	machine := workflow.NewMachine(st, nil)
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	_, err := machine.SetStage(context.Background(), job.ID, "shipping", "mehmet")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	got, err := st.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Stage != store.StagePOReceipt {
		t.Fatalf("rejected transition must not change stage, got %q", got.Stage)
	}
}

func TestSetStageUnknownJob(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	machine := workflow.NewMachine(st, nil)

	_, err := machine.SetStage(context.Background(), 4242, "in_process", "mehmet")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCompleteStampsAndReopenClears(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	machine := workflow.NewMachine(st, nil)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	got, err := machine.Complete(ctx, job.ID, "mehmet")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Stage != store.StageComplete {
		t.Fatalf("stage = %q, want complete", got.Stage)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at not stamped")
	}

	got, err = machine.SetStage(ctx, job.ID, "in_process", "mehmet")
	if err != nil {
		t.Fatalf("SetStage reopen: %v", err)
	}
	if got.CompletedAt != nil {
		t.Fatal("leaving complete must clear completed_at")
	}
}

func TestSetStageSameStageIsNoop(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	machine := workflow.NewMachine(st, nil)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	if _, err := machine.SetStage(ctx, job.ID, "po_receipt", "mehmet"); err != nil {
		t.Fatalf("SetStage same: %v", err)
	}
	entries, err := st.ListAudit(ctx, "job", job.ID, 10)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("no-op transition should not audit, got %d entries", len(entries))
	}
}

func TestVerifyRevision(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	machine := workflow.NewMachine(st, nil)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	got, err := machine.VerifyRevision(ctx, job.ID, "ayse")
	if err != nil {
		t.Fatalf("VerifyRevision: %v", err)
	}
	if !got.RevisionVerified || got.RevisionVerifiedBy != "ayse" || got.RevisionVerifiedAt == nil {
		t.Fatalf("verification not recorded: %+v", got)
	}
}
