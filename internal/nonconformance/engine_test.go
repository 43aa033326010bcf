package nonconformance_test

import (
	"context"
	"errors"
	"testing"

	"qcflow/internal/nonconformance"
	"qcflow/internal/notifications"
	"qcflow/internal/services"
	"qcflow/internal/store"
	"qcflow/internal/testsupport"
)

func newEngine(t *testing.T) (*nonconformance.Engine, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	svc := notifications.NewService(cfg, st, nil)
	return nonconformance.NewEngine(st, svc, nil), st
}

func TestReportInternalFilesOpenReport(t *testing.T) {
	engine, st := newEngine(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	report, err := engine.ReportInternal(ctx, nonconformance.Report{
		JobID:       job.ID,
		ReportedBy:  "mehmet",
		Severity:    "major",
		Description: "tool mark on face",
	})
	if err != nil {
		t.Fatalf("ReportInternal: %v", err)
	}
	if report.Status != store.ErrorOpen {
		t.Fatalf("status = %q, want open", report.Status)
	}
	if report.ErrorType != store.ErrorInternal {
		t.Fatalf("type = %q, want internal", report.ErrorType)
	}
	if report.Stage != store.StagePOReceipt {
		t.Fatalf("stage should default to job stage, got %q", report.Stage)
	}
}

func TestReportInternalNotifiesQualityRoles(t *testing.T) {
	engine, st := newEngine(t)
	ctx := context.Background()
	qm := testsupport.NewUser(t, st, "ayse", store.RoleQualityManager)
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	if _, err := engine.ReportInternal(ctx, nonconformance.Report{
		JobID:       job.ID,
		Severity:    "critical",
		Description: "wrong material",
	}); err != nil {
		t.Fatalf("ReportInternal: %v", err)
	}

	got, err := st.ListNotifications(ctx, qm.ID, true)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("quality manager got %d notifications, want 1", len(got))
	}
}

func TestReportInternalValidation(t *testing.T) {
	engine, st := newEngine(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	if _, err := engine.ReportInternal(ctx, nonconformance.Report{
		JobID:       job.ID,
		Severity:    "catastrophic",
		Description: "x",
	}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad severity should fail validation, got %v", err)
	}
	if _, err := engine.ReportInternal(ctx, nonconformance.Report{
		JobID:    job.ID,
		Severity: "minor",
	}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing description should fail validation, got %v", err)
	}
	if _, err := engine.ReportInternal(ctx, nonconformance.Report{
		JobID:       9999,
		Severity:    "minor",
		Description: "x",
	}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown job should be not-found, got %v", err)
	}
}

func TestReportMaterialRejectsOrigin(t *testing.T) {
	engine, st := newEngine(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)
	supplier, err := st.CreateSupplier(ctx, &store.Supplier{Name: "Acme Steel"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	mc, err := st.CreateMaterialControl(ctx, &store.MaterialControl{
		JobID:        job.ID,
		SupplierID:   &supplier.ID,
		MaterialType: "bar stock",
	})
	if err != nil {
		t.Fatalf("CreateMaterialControl: %v", err)
	}

	report, err := engine.ReportMaterial(ctx, mc.ID, nonconformance.Report{
		ReportedBy:  "ayse",
		Severity:    "major",
		Description: "certificate mismatch",
	})
	if err != nil {
		t.Fatalf("ReportMaterial: %v", err)
	}
	if report.ErrorType != store.ErrorMaterialSupplier {
		t.Fatalf("type = %q, want material_supplier", report.ErrorType)
	}
	if report.SupplierID == nil || *report.SupplierID != supplier.ID {
		t.Fatalf("supplier not copied onto report: %v", report.SupplierID)
	}
	if report.MaterialControlID == nil || *report.MaterialControlID != mc.ID {
		t.Fatalf("origin not linked: %v", report.MaterialControlID)
	}

	got, err := st.GetMaterialControl(ctx, mc.ID)
	if err != nil {
		t.Fatalf("GetMaterialControl: %v", err)
	}
	if got.Status != store.MaterialRejected {
		t.Fatalf("origin status = %q, want rejected", got.Status)
	}

	audit, err := st.ListAudit(ctx, "error_report", report.ID, 10)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(audit) != 1 {
		t.Fatalf("got %d audit entries for the report, want 1", len(audit))
	}
}

func TestReportExternalRejectsOrigin(t *testing.T) {
	engine, st := newEngine(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)
	ep, err := st.CreateExternalProcess(ctx, &store.ExternalProcess{
		JobID:        job.ID,
		ProcessType:  "anodizing",
		QuantitySent: 10,
	})
	if err != nil {
		t.Fatalf("CreateExternalProcess: %v", err)
	}

	report, err := engine.ReportExternal(ctx, ep.ID, nonconformance.Report{
		ReportedBy:  "ayse",
		Severity:    "minor",
		Description: "coating too thin",
	})
	if err != nil {
		t.Fatalf("ReportExternal: %v", err)
	}
	if report.ErrorType != store.ErrorExternalSupplier {
		t.Fatalf("type = %q, want external_supplier", report.ErrorType)
	}

	got, err := st.GetExternalProcess(ctx, ep.ID)
	if err != nil {
		t.Fatalf("GetExternalProcess: %v", err)
	}
	if got.Status != store.ExternalRejected {
		t.Fatalf("origin status = %q, want rejected", got.Status)
	}
}

func TestTransitionLifecycle(t *testing.T) {
	engine, st := newEngine(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	report, err := engine.ReportInternal(ctx, nonconformance.Report{
		JobID:       job.ID,
		Severity:    "major",
		Description: "out of tolerance",
	})
	if err != nil {
		t.Fatalf("ReportInternal: %v", err)
	}

	report, err = engine.Transition(ctx, report.ID, "investigating", "ayse")
	if err != nil {
		t.Fatalf("open->investigating: %v", err)
	}
	if report.Status != store.ErrorInvestigating {
		t.Fatalf("status = %q", report.Status)
	}

	// investigating -> closed skips resolution and is rejected.
	if _, err := engine.Transition(ctx, report.ID, "closed", "ayse"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("investigating->closed should fail, got %v", err)
	}

	report, err = engine.Transition(ctx, report.ID, "resolved", "ayse")
	if err != nil {
		t.Fatalf("investigating->resolved: %v", err)
	}
	if report.ResolvedDate == nil {
		t.Fatal("resolved_date not stamped")
	}

	report, err = engine.Transition(ctx, report.ID, "closed", "ayse")
	if err != nil {
		t.Fatalf("resolved->closed: %v", err)
	}
	if report.ClosedDate == nil {
		t.Fatal("closed_date not stamped")
	}

	// Closed reports can reopen; the dates clear.
	report, err = engine.Transition(ctx, report.ID, "open", "ayse")
	if err != nil {
		t.Fatalf("closed->open: %v", err)
	}
	if report.ResolvedDate != nil || report.ClosedDate != nil {
		t.Fatalf("reopen should clear dates: resolved=%v closed=%v", report.ResolvedDate, report.ClosedDate)
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	engine, st := newEngine(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)
	report, err := engine.ReportInternal(ctx, nonconformance.Report{
		JobID:       job.ID,
		Severity:    "minor",
		Description: "x",
	})
	if err != nil {
		t.Fatalf("ReportInternal: %v", err)
	}

	if _, err := engine.Transition(ctx, report.ID, "escalated", "ayse"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetMaterialStatusRejectionEscalates(t *testing.T) {
	engine, st := newEngine(t)
	ctx := context.Background()
	qm := testsupport.NewUser(t, st, "ayse", store.RoleQualityManager)
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)
	mc, err := st.CreateMaterialControl(ctx, &store.MaterialControl{JobID: job.ID, MaterialType: "sheet"})
	if err != nil {
		t.Fatalf("CreateMaterialControl: %v", err)
	}

	got, err := engine.SetMaterialStatus(ctx, mc.ID, "rejected", "ayse")
	if err != nil {
		t.Fatalf("SetMaterialStatus: %v", err)
	}
	if got.Status != store.MaterialRejected {
		t.Fatalf("status = %q", got.Status)
	}

	ns, err := st.ListNotifications(ctx, qm.ID, true)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(ns) != 1 || ns[0].Kind != "material_rejected" {
		t.Fatalf("expected one material_rejected notification, got %+v", ns)
	}
}

func TestSetMaterialStatusApprovalDoesNotEscalate(t *testing.T) {
	engine, st := newEngine(t)
	ctx := context.Background()
	qm := testsupport.NewUser(t, st, "ayse", store.RoleQualityManager)
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)
	mc, err := st.CreateMaterialControl(ctx, &store.MaterialControl{JobID: job.ID, MaterialType: "sheet"})
	if err != nil {
		t.Fatalf("CreateMaterialControl: %v", err)
	}

	if _, err := engine.SetMaterialStatus(ctx, mc.ID, "approved", "ayse"); err != nil {
		t.Fatalf("SetMaterialStatus: %v", err)
	}
	ns, err := st.ListNotifications(ctx, qm.ID, false)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(ns) != 0 {
		t.Fatalf("approval should not notify, got %d", len(ns))
	}
}

func TestInspectExternalRejectionEscalates(t *testing.T) {
	engine, st := newEngine(t)
	ctx := context.Background()
	qm := testsupport.NewUser(t, st, "ayse", store.RoleQualityManager)
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)
	ep, err := st.CreateExternalProcess(ctx, &store.ExternalProcess{JobID: job.ID, ProcessType: "plating", QuantitySent: 10})
	if err != nil {
		t.Fatalf("CreateExternalProcess: %v", err)
	}
	if err := st.MarkExternalReceived(ctx, ep.ID, 10); err != nil {
		t.Fatalf("MarkExternalReceived: %v", err)
	}

	got, err := engine.InspectExternal(ctx, ep.ID, "rejected", "ayse", "blisters in coating")
	if err != nil {
		t.Fatalf("InspectExternal: %v", err)
	}
	if got.Status != store.ExternalRejected || got.InspectionNotes != "blisters in coating" {
		t.Fatalf("unexpected record %+v", got)
	}

	ns, err := st.ListNotifications(ctx, qm.ID, true)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(ns) != 1 || ns[0].Kind != "external_rejected" {
		t.Fatalf("expected one external_rejected notification, got %+v", ns)
	}
}

func TestUpdateDetailsKeepsExistingWhenBlank(t *testing.T) {
	engine, st := newEngine(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)
	report, err := engine.ReportInternal(ctx, nonconformance.Report{
		JobID:       job.ID,
		Severity:    "major",
		Description: "original description",
	})
	if err != nil {
		t.Fatalf("ReportInternal: %v", err)
	}

	got, err := engine.UpdateDetails(ctx, &store.ErrorReport{
		ID:          report.ID,
		Disposition: "rework",
		RootCause:   "worn tool",
	})
	if err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	if got.Description != "original description" || got.Severity != store.SeverityMajor {
		t.Fatalf("blank fields must not clobber existing values: %+v", got)
	}
	if got.Disposition != "rework" || got.RootCause != "worn tool" {
		t.Fatalf("details not stored: %+v", got)
	}
}
