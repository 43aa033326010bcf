package jobs_test

import (
	"context"
	"errors"
	"testing"

	"qcflow/internal/jobs"
	"qcflow/internal/parts"
	"qcflow/internal/services"
	"qcflow/internal/store"
	"qcflow/internal/testsupport"
)

func floatPtr(v float64) *float64 { return &v }

func newService(t *testing.T) (*jobs.Service, *store.Store) {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	registry := parts.NewRegistry(st, nil)
	return jobs.NewService(st, registry, nil), st
}

func TestCreateAssignsSequentialJobNumbers(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, jobs.CreateInput{
		PONumber:   "PO-1001",
		PartNumber: "PN-1",
		Quantity:   10,
		Actor:      "mehmet",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.JobNumber != "JOB00001" {
		t.Fatalf("job number = %q, want JOB00001", first.JobNumber)
	}
	if first.Stage != store.StagePOReceipt {
		t.Fatalf("stage = %q, want po_receipt", first.Stage)
	}

	second, err := svc.Create(ctx, jobs.CreateInput{
		PONumber:   "PO-1002",
		PartNumber: "PN-2",
		Quantity:   5,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if second.JobNumber != "JOB00002" {
		t.Fatalf("job number = %q, want JOB00002", second.JobNumber)
	}
}

func TestCreateReusesPartIdentity(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, jobs.CreateInput{
		PONumber:        "PO-1",
		PartNumber:      "PN-9",
		PartRevision:    "B",
		PartDescription: "flange",
		Quantity:        10,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(ctx, jobs.CreateInput{
		PONumber:     "PO-2",
		PartNumber:   "PN-9",
		PartRevision: "B",
		Quantity:     20,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.PartID != second.PartID {
		t.Fatalf("same identity resolved to different parts: %d vs %d", first.PartID, second.PartID)
	}
	if second.PartDescription != "flange" {
		t.Fatalf("description should carry over from the catalog, got %q", second.PartDescription)
	}
}

func TestCreateWithDimensions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, jobs.CreateInput{
		PONumber:   "PO-1",
		PartNumber: "PN-1",
		Quantity:   10,
		Dimensions: []jobs.DimensionInput{
			{Name: "bore", Nominal: 10, TolerancePlus: floatPtr(0.05), ToleranceMinus: floatPtr(-0.05)},
			{Name: "length", Nominal: 120, TolerancePlus: floatPtr(0.2), ToleranceMinus: floatPtr(-0.2)},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	dims, err := svc.Dimensions(ctx, job.ID)
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}
	if len(dims) != 2 {
		t.Fatalf("got %d dimensions, want 2", len(dims))
	}
	if dims[0].Number != 1 || dims[1].Number != 2 {
		t.Fatalf("dimension numbers = %d,%d", dims[0].Number, dims[1].Number)
	}
	if dims[0].Unit != "mm" {
		t.Fatalf("unit should default to mm, got %q", dims[0].Unit)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, jobs.CreateInput{PartNumber: "PN-1", Quantity: 1}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing PO should fail validation, got %v", err)
	}
	if _, err := svc.Create(ctx, jobs.CreateInput{PONumber: "PO-1", PartNumber: "PN-1"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("zero quantity should fail validation, got %v", err)
	}
	if _, err := svc.Create(ctx, jobs.CreateInput{PONumber: "PO-1", Quantity: 1}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing part number should fail validation, got %v", err)
	}
}

func TestCreateWithBadDimensionLeavesNothingBehind(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, jobs.CreateInput{
		PONumber:   "PO-1",
		PartNumber: "PN-1",
		Quantity:   10,
		Dimensions: []jobs.DimensionInput{
			{Name: "bore", Nominal: 10},
			{Nominal: 120},
		},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unnamed dimension should fail validation, got %v", err)
	}

	remaining, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("rejected create left %d jobs behind", len(remaining))
	}
}

func TestEditReResolvesPart(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, jobs.CreateInput{
		PONumber:     "PO-1",
		PartNumber:   "PN-1",
		PartRevision: "A",
		Quantity:     10,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	edited, err := svc.Edit(ctx, job.ID, jobs.EditInput{
		PONumber:     "PO-1",
		PartNumber:   "PN-1",
		PartRevision: "B",
		Quantity:     10,
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if edited.PartID == job.PartID {
		t.Fatal("revision change should resolve to a new part identity")
	}
	if edited.PartRevision != "B" {
		t.Fatalf("revision = %q, want B", edited.PartRevision)
	}
	if edited.Stage != job.Stage {
		t.Fatal("edit must not touch the workflow stage")
	}
}

func TestCopyDimensions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	src, err := svc.Create(ctx, jobs.CreateInput{
		PONumber:   "PO-1",
		PartNumber: "PN-1",
		Quantity:   10,
		Dimensions: []jobs.DimensionInput{
			{Name: "bore", Nominal: 10},
			{Name: "length", Nominal: 120},
		},
	})
	if err != nil {
		t.Fatalf("Create src: %v", err)
	}
	dst, err := svc.Create(ctx, jobs.CreateInput{
		PONumber:   "PO-2",
		PartNumber: "PN-1",
		Quantity:   10,
		Dimensions: []jobs.DimensionInput{{Name: "width", Nominal: 40}},
	})
	if err != nil {
		t.Fatalf("Create dst: %v", err)
	}

	copied, err := svc.CopyDimensions(ctx, dst.ID, src.ID)
	if err != nil {
		t.Fatalf("CopyDimensions: %v", err)
	}
	if copied != 2 {
		t.Fatalf("copied %d, want 2", copied)
	}

	dims, err := svc.Dimensions(ctx, dst.ID)
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}
	if len(dims) != 3 {
		t.Fatalf("got %d dimensions, want 3", len(dims))
	}
	if dims[2].Number != 3 {
		t.Fatalf("copied dimensions must continue numbering, last = %d", dims[2].Number)
	}
}

func TestRecordMeasurementsEvaluatesTolerances(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, jobs.CreateInput{
		PONumber:   "PO-1",
		PartNumber: "PN-1",
		Quantity:   10,
		Dimensions: []jobs.DimensionInput{
			{Name: "bore", Nominal: 10, TolerancePlus: floatPtr(0.1), ToleranceMinus: floatPtr(-0.1)},
			{Name: "thread", Unit: "go/nogo"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	dims, err := svc.Dimensions(ctx, job.ID)
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}

	report, err := svc.RecordMeasurements(ctx, job.ID, "in_process", "ayse", "", []jobs.MeasurementInput{
		{DimensionID: dims[0].ID, ActualValue: 10.05},
		{DimensionID: dims[1].ID, ActualValue: 1},
	})
	if err != nil {
		t.Fatalf("RecordMeasurements: %v", err)
	}
	if report.OverallStatus != store.ReportPass {
		t.Fatalf("verdict = %q, want pass", report.OverallStatus)
	}

	report, err = svc.RecordMeasurements(ctx, job.ID, "final", "ayse", "", []jobs.MeasurementInput{
		{DimensionID: dims[0].ID, ActualValue: 10.2},
		{DimensionID: dims[1].ID, ActualValue: 1},
	})
	if err != nil {
		t.Fatalf("RecordMeasurements: %v", err)
	}
	if report.OverallStatus != store.ReportFail {
		t.Fatalf("verdict = %q, want fail", report.OverallStatus)
	}

	ms, err := svc.Measurements(ctx, report.ID)
	if err != nil {
		t.Fatalf("Measurements: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("got %d measurements, want 2", len(ms))
	}
	if ms[0].PassFail != "fail" {
		t.Fatalf("out-of-band measurement stored as %q, want fail", ms[0].PassFail)
	}
}

func TestRecordMeasurementsEmptyStaysPending(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, jobs.CreateInput{PONumber: "PO-1", PartNumber: "PN-1", Quantity: 10})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	report, err := svc.RecordMeasurements(ctx, job.ID, "", "ayse", "", nil)
	if err != nil {
		t.Fatalf("RecordMeasurements: %v", err)
	}
	if report.OverallStatus != store.ReportPending {
		t.Fatalf("empty report verdict = %q, want pending", report.OverallStatus)
	}
	if report.ReportType != "in_process" {
		t.Fatalf("report type should default to in_process, got %q", report.ReportType)
	}
}

func TestRecordMeasurementsRejectsForeignDimension(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	jobA, err := svc.Create(ctx, jobs.CreateInput{
		PONumber:   "PO-1",
		PartNumber: "PN-1",
		Quantity:   10,
		Dimensions: []jobs.DimensionInput{{Name: "bore", Nominal: 10}},
	})
	if err != nil {
		t.Fatalf("Create A: %v", err)
	}
	jobB, err := svc.Create(ctx, jobs.CreateInput{PONumber: "PO-2", PartNumber: "PN-2", Quantity: 10})
	if err != nil {
		t.Fatalf("Create B: %v", err)
	}
	dims, err := svc.Dimensions(ctx, jobA.ID)
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}

	_, err = svc.RecordMeasurements(ctx, jobB.ID, "", "ayse", "", []jobs.MeasurementInput{
		{DimensionID: dims[0].ID, ActualValue: 10},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("foreign dimension should fail validation, got %v", err)
	}

	// The whole batch is checked before anything is written, so the
	// rejected call must not leave a report shell on the job.
	reports, err := svc.Reports(ctx, jobB.ID)
	if err != nil {
		t.Fatalf("Reports: %v", err)
	}
	if len(reports) != 0 {
		t.Fatalf("rejected batch left %d reports behind", len(reports))
	}
}
