package store_test

import (
	"context"
	"testing"

	"qcflow/internal/store"
	"qcflow/internal/testsupport"
)

func TestCreatePartEnforcesIdentityUniqueness(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := st.CreatePart(ctx, "PN-100", "B", "bracket")
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected persisted part id")
	}

	if _, err := st.CreatePart(ctx, "PN-100", "B", "duplicate"); !store.IsUniqueViolation(err) {
		t.Fatalf("expected uniqueness violation, got %v", err)
	}

	// A different revision is a different identity.
	if _, err := st.CreatePart(ctx, "PN-100", "C", ""); err != nil {
		t.Fatalf("CreatePart rev C: %v", err)
	}

	found, err := st.FindPart(ctx, "PN-100", "B")
	if err != nil {
		t.Fatalf("FindPart: %v", err)
	}
	if found == nil || found.ID != first.ID {
		t.Fatalf("FindPart returned %+v, want id %d", found, first.ID)
	}
}

func TestNextJobNumberSequence(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	num, err := st.NextJobNumber(ctx)
	if err != nil {
		t.Fatalf("NextJobNumber: %v", err)
	}
	if num != "JOB00001" {
		t.Fatalf("first job number = %q, want JOB00001", num)
	}

	testsupport.NewJob(t, st, "PO-1", "PN-1", 10)
	testsupport.NewJob(t, st, "PO-2", "PN-2", 10)

	num, err = st.NextJobNumber(ctx)
	if err != nil {
		t.Fatalf("NextJobNumber: %v", err)
	}
	if num != "JOB00003" {
		t.Fatalf("job number after two jobs = %q, want JOB00003", num)
	}
}

func TestCreateJobDefaultsToPOReceipt(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	job := testsupport.NewJob(t, st, "PO-77", "PN-77", 5)
	if job.Stage != store.StagePOReceipt {
		t.Fatalf("new job stage = %q, want %q", job.Stage, store.StagePOReceipt)
	}
	if job.CompletedAt != nil {
		t.Fatal("new job should not be completed")
	}
}

func TestAddDimensionAssignsSequentialNumbers(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	for i := 0; i < 3; i++ {
		dim, err := st.AddDimension(ctx, &store.Dimension{
			JobID:   job.ID,
			Name:    "bore",
			Nominal: 10.0,
			Unit:    "mm",
		})
		if err != nil {
			t.Fatalf("AddDimension #%d: %v", i+1, err)
		}
		if dim.Number != i+1 {
			t.Fatalf("dimension number = %d, want %d", dim.Number, i+1)
		}
	}
}

func TestDeleteDimensionDoesNotRenumber(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	var ids []int64
	for i := 0; i < 3; i++ {
		dim, err := st.AddDimension(ctx, &store.Dimension{JobID: job.ID, Name: "d", Nominal: 1, Unit: "mm"})
		if err != nil {
			t.Fatalf("AddDimension: %v", err)
		}
		ids = append(ids, dim.ID)
	}

	deleted, err := st.DeleteDimension(ctx, job.ID, ids[1])
	if err != nil {
		t.Fatalf("DeleteDimension: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion")
	}

	dims, err := st.ListDimensions(ctx, job.ID)
	if err != nil {
		t.Fatalf("ListDimensions: %v", err)
	}
	if len(dims) != 2 {
		t.Fatalf("got %d dimensions, want 2", len(dims))
	}
	if dims[0].Number != 1 || dims[1].Number != 3 {
		t.Fatalf("numbers after delete = %d,%d, want 1,3", dims[0].Number, dims[1].Number)
	}

	// Next add continues after the surviving max.
	dim, err := st.AddDimension(ctx, &store.Dimension{JobID: job.ID, Name: "d", Nominal: 1, Unit: "mm"})
	if err != nil {
		t.Fatalf("AddDimension: %v", err)
	}
	if dim.Number != 4 {
		t.Fatalf("number after delete+add = %d, want 4", dim.Number)
	}
}

func TestCompleteJobIfStageIsConditional(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	entry := store.AuditEntry{Action: "update", EntityType: "job", EntityID: job.ID}

	transitioned, err := st.CompleteJobIfStage(ctx, job.ID, store.StageExitControl, entry)
	if err != nil {
		t.Fatalf("CompleteJobIfStage: %v", err)
	}
	if transitioned {
		t.Fatal("job in po_receipt should not complete conditionally on exit_control")
	}

	if err := st.ApplyStage(ctx, job.ID, store.StageExitControl, nil, entry); err != nil {
		t.Fatalf("ApplyStage: %v", err)
	}
	transitioned, err = st.CompleteJobIfStage(ctx, job.ID, store.StageExitControl, entry)
	if err != nil {
		t.Fatalf("CompleteJobIfStage: %v", err)
	}
	if !transitioned {
		t.Fatal("job in exit_control should complete conditionally")
	}

	got, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Stage != store.StageComplete || got.CompletedAt == nil {
		t.Fatalf("after completion stage=%q completedAt=%v", got.Stage, got.CompletedAt)
	}
}

func TestSetErrorReportStatusStampsAndClearsDates(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	report, err := st.CreateErrorReport(ctx, &store.ErrorReport{
		JobID:       job.ID,
		Stage:       store.StageInProcess,
		Severity:    store.SeverityMajor,
		Description: "scratch on face",
		ErrorType:   store.ErrorInternal,
	})
	if err != nil {
		t.Fatalf("CreateErrorReport: %v", err)
	}
	if report.Status != store.ErrorOpen {
		t.Fatalf("new report status = %q, want open", report.Status)
	}

	if err := st.SetErrorReportStatus(ctx, report.ID, store.ErrorResolved); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, _ := st.GetErrorReport(ctx, report.ID)
	if got.ResolvedDate == nil {
		t.Fatal("resolved_date not stamped")
	}

	if err := st.SetErrorReportStatus(ctx, report.ID, store.ErrorClosed); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, _ = st.GetErrorReport(ctx, report.ID)
	if got.ClosedDate == nil {
		t.Fatal("closed_date not stamped")
	}

	if err := st.SetErrorReportStatus(ctx, report.ID, store.ErrorOpen); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, _ = st.GetErrorReport(ctx, report.ID)
	if got.ResolvedDate != nil || got.ClosedDate != nil {
		t.Fatalf("reopen should clear dates, got resolved=%v closed=%v", got.ResolvedDate, got.ClosedDate)
	}
}

func TestExitControlSamplesCreatedWithPlan(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 25)

	ec, err := st.CreateExitControl(ctx, &store.ExitControl{
		JobID:       job.ID,
		LotQuantity: 25,
	}, []int{1, 2, 3, 4, 5, 15, 25})
	if err != nil {
		t.Fatalf("CreateExitControl: %v", err)
	}
	if ec.OverallStatus != store.LotInProgress {
		t.Fatalf("overall status = %q, want in_progress", ec.OverallStatus)
	}

	samples, err := st.ListSamples(ctx, ec.ID)
	if err != nil {
		t.Fatalf("ListSamples: %v", err)
	}
	if len(samples) != 7 {
		t.Fatalf("got %d samples, want 7", len(samples))
	}
	for i, want := range []int{1, 2, 3, 4, 5, 15, 25} {
		if samples[i].Position != want {
			t.Fatalf("sample %d position = %d, want %d", i, samples[i].Position, want)
		}
		if samples[i].Recorded() {
			t.Fatalf("sample %d should start unrecorded", i)
		}
	}

	if err := st.AddSample(ctx, ec.ID, 15); !store.IsUniqueViolation(err) {
		t.Fatalf("duplicate position should violate uniqueness, got %v", err)
	}
}

func TestNotificationsReadLifecycle(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	user := testsupport.NewUser(t, st, "ayse", store.RoleQualityManager)

	for i := 0; i < 3; i++ {
		if err := st.CreateNotification(ctx, &store.Notification{
			UserID:  user.ID,
			Kind:    "error_report",
			Title:   "New error report",
			Message: "see report",
		}); err != nil {
			t.Fatalf("CreateNotification: %v", err)
		}
	}

	unread, err := st.ListNotifications(ctx, user.ID, true)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(unread) != 3 {
		t.Fatalf("got %d unread, want 3", len(unread))
	}

	if err := st.MarkNotificationRead(ctx, unread[0].ID); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	changed, err := st.MarkAllNotificationsRead(ctx, user.ID)
	if err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}
	if changed != 2 {
		t.Fatalf("marked %d, want 2", changed)
	}
}

func TestAuditTrailRecordsStageTransitions(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	err := st.ApplyStage(ctx, job.ID, store.StageInProcess, nil, store.AuditEntry{
		Actor:       "mehmet",
		Action:      "update",
		EntityType:  "job",
		EntityID:    job.ID,
		Description: "Stage changed to in_process",
	})
	if err != nil {
		t.Fatalf("ApplyStage: %v", err)
	}

	entries, err := st.ListAudit(ctx, "job", job.ID, 10)
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	if entries[0].Actor != "mehmet" || entries[0].Description != "Stage changed to in_process" {
		t.Fatalf("unexpected audit entry %+v", entries[0])
	}
}

func TestAddAttachmentGeneratesReference(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, st, "PO-1", "PN-1", 10)

	a, err := st.AddAttachment(ctx, &store.Attachment{
		EntityType: "job",
		EntityID:   job.ID,
		FileName:   "drawing.pdf",
		UploadedBy: "mehmet",
	})
	if err != nil {
		t.Fatalf("AddAttachment: %v", err)
	}
	if a.Reference == "" {
		t.Fatal("expected generated reference")
	}

	list, err := st.ListAttachments(ctx, "job", job.ID)
	if err != nil {
		t.Fatalf("ListAttachments: %v", err)
	}
	if len(list) != 1 || list[0].Reference != a.Reference {
		t.Fatalf("unexpected attachments %+v", list)
	}
}

func TestOpenRejectsSecondProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_ = testsupport.MustOpenStore(t, cfg)

	if _, err := store.Open(cfg); err == nil {
		t.Fatal("second Open on same data dir should fail while lock is held")
	}
}
