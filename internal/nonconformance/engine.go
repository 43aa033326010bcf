// Package nonconformance records quality escapes and drives their lifecycle
// from discovery to closure.
package nonconformance

import (
	"context"
	"fmt"
	"log/slog"

	"qcflow/internal/notifications"
	"qcflow/internal/services"
	"qcflow/internal/store"
)

// Engine files error reports, flips rejected origins, and escalates to the
// quality roles. Notification delivery is best effort and never fails the
// recording of the report itself.
type Engine struct {
	store    *store.Store
	notifier notifications.Service
	logger   *slog.Logger
}

// NewEngine builds a nonconformance engine.
func NewEngine(st *store.Store, notifier notifications.Service, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = notifications.Noop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, notifier: notifier, logger: logger}
}

// Report is the caller-facing input for filing an error report.
type Report struct {
	JobID            int64
	ReportedBy       string
	Stage            string
	Severity         string
	Description      string
	AffectedQuantity *int
	AssignedTo       string
}

// ReportInternal files an internally caused error report.
func (e *Engine) ReportInternal(ctx context.Context, input Report) (*store.ErrorReport, error) {
	job, draft, err := e.prepare(ctx, input, store.ErrorInternal)
	if err != nil {
		return nil, err
	}
	return e.file(ctx, job, draft)
}

// ReportMaterial files an error report attributed to the material supplier.
// The originating material control is rejected if it is not already, so the
// inspection record and the report never disagree.
func (e *Engine) ReportMaterial(ctx context.Context, materialControlID int64, input Report) (*store.ErrorReport, error) {
	mc, err := e.store.GetMaterialControl(ctx, materialControlID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "report-material", "load material control", err)
	}
	if mc == nil {
		return nil, services.Wrap(services.ErrNotFound, "nonconformance", "report-material", "material control not found", nil)
	}
	if input.JobID == 0 {
		input.JobID = mc.JobID
	} else if input.JobID != mc.JobID {
		return nil, services.Wrap(services.ErrValidation, "nonconformance", "report-material", "material control belongs to a different job", nil)
	}

	job, draft, err := e.prepare(ctx, input, store.ErrorMaterialSupplier)
	if err != nil {
		return nil, err
	}
	draft.MaterialControlID = &mc.ID
	draft.SupplierID = mc.SupplierID
	return e.file(ctx, job, draft)
}

// ReportExternal files an error report attributed to the external-process
// supplier, rejecting the originating process record if needed.
func (e *Engine) ReportExternal(ctx context.Context, externalProcessID int64, input Report) (*store.ErrorReport, error) {
	ep, err := e.store.GetExternalProcess(ctx, externalProcessID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "report-external", "load external process", err)
	}
	if ep == nil {
		return nil, services.Wrap(services.ErrNotFound, "nonconformance", "report-external", "external process not found", nil)
	}
	if input.JobID == 0 {
		input.JobID = ep.JobID
	} else if input.JobID != ep.JobID {
		return nil, services.Wrap(services.ErrValidation, "nonconformance", "report-external", "external process belongs to a different job", nil)
	}

	job, draft, err := e.prepare(ctx, input, store.ErrorExternalSupplier)
	if err != nil {
		return nil, err
	}
	draft.ExternalProcessID = &ep.ID
	draft.SupplierID = ep.SupplierID
	return e.file(ctx, job, draft)
}

// Transition moves an error report through its lifecycle. Valid moves are
// open to investigating or resolved, investigating to resolved, resolved to
// closed, and any status back to open. Reopening clears the resolution dates.
func (e *Engine) Transition(ctx context.Context, reportID int64, target string, actor string) (*store.ErrorReport, error) {
	status, ok := store.ParseErrorStatus(target)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "nonconformance", "transition",
			fmt.Sprintf("unknown status %q", target), nil)
	}

	report, err := e.get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status == status {
		return report, nil
	}
	if !allowedTransition(report.Status, status) {
		return nil, services.Wrap(services.ErrValidation, "nonconformance", "transition",
			fmt.Sprintf("cannot move %s report to %s", report.Status, status), nil)
	}

	if err := e.store.SetErrorReportStatus(ctx, reportID, status); err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "transition", "persist status", err)
	}
	if err := e.store.RecordAudit(ctx, store.AuditEntry{
		Actor:       actor,
		Action:      "update",
		EntityType:  "error_report",
		EntityID:    reportID,
		Description: fmt.Sprintf("Status changed from %s to %s", report.Status, status),
	}); err != nil {
		e.logger.Warn("audit write failed", slog.String("error", err.Error()))
	}
	return e.get(ctx, reportID)
}

// UpdateDetails replaces the investigation fields of a report.
func (e *Engine) UpdateDetails(ctx context.Context, report *store.ErrorReport) (*store.ErrorReport, error) {
	existing, err := e.get(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	if report.Severity != "" {
		if _, ok := store.ParseSeverity(string(report.Severity)); !ok {
			return nil, services.Wrap(services.ErrValidation, "nonconformance", "update",
				fmt.Sprintf("unknown severity %q", report.Severity), nil)
		}
	} else {
		report.Severity = existing.Severity
	}
	if report.Description == "" {
		report.Description = existing.Description
	}
	if err := e.store.UpdateErrorReportDetails(ctx, report); err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "update", "persist details", err)
	}
	return e.get(ctx, report.ID)
}

// Get fetches an error report by identifier.
func (e *Engine) Get(ctx context.Context, id int64) (*store.ErrorReport, error) {
	return e.get(ctx, id)
}

// List returns error reports, optionally scoped to a job and status set.
func (e *Engine) List(ctx context.Context, jobID int64, statuses ...store.ErrorStatus) ([]*store.ErrorReport, error) {
	reports, err := e.store.ListErrorReports(ctx, jobID, statuses...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "list", "query failed", err)
	}
	return reports, nil
}

// SetMaterialStatus records an incoming-material inspection outcome. A
// rejection escalates to the quality roles.
func (e *Engine) SetMaterialStatus(ctx context.Context, materialControlID int64, target, inspector string) (*store.MaterialControl, error) {
	status, ok := store.ParseMaterialStatus(target)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "nonconformance", "material-status",
			fmt.Sprintf("unknown status %q", target), nil)
	}
	mc, err := e.store.GetMaterialControl(ctx, materialControlID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "material-status", "load material control", err)
	}
	if mc == nil {
		return nil, services.Wrap(services.ErrNotFound, "nonconformance", "material-status", "material control not found", nil)
	}

	if err := e.store.SetMaterialStatus(ctx, materialControlID, status, inspector); err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "material-status", "persist status", err)
	}
	mc, err = e.store.GetMaterialControl(ctx, materialControlID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "material-status", "reload material control", err)
	}

	if status == store.MaterialRejected {
		if job, jobErr := e.store.GetJob(ctx, mc.JobID); jobErr == nil && job != nil {
			if notifyErr := e.notifier.NotifyMaterialRejected(ctx, job, mc); notifyErr != nil {
				e.logger.Warn("material rejection escalation failed", slog.String("error", notifyErr.Error()))
			}
		}
	}
	return mc, nil
}

// InspectExternal records the inspection outcome for parts returned from an
// external process. A rejection escalates to the quality roles.
func (e *Engine) InspectExternal(ctx context.Context, externalProcessID int64, target, inspector, notes string) (*store.ExternalProcess, error) {
	status, ok := store.ParseExternalStatus(target)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "nonconformance", "inspect-external",
			fmt.Sprintf("unknown status %q", target), nil)
	}
	ep, err := e.store.GetExternalProcess(ctx, externalProcessID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "inspect-external", "load external process", err)
	}
	if ep == nil {
		return nil, services.Wrap(services.ErrNotFound, "nonconformance", "inspect-external", "external process not found", nil)
	}

	if err := e.store.SetExternalStatus(ctx, externalProcessID, status, inspector, notes); err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "inspect-external", "persist status", err)
	}
	ep, err = e.store.GetExternalProcess(ctx, externalProcessID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "inspect-external", "reload external process", err)
	}

	if status == store.ExternalRejected {
		if job, jobErr := e.store.GetJob(ctx, ep.JobID); jobErr == nil && job != nil {
			if notifyErr := e.notifier.NotifyExternalRejected(ctx, job, ep); notifyErr != nil {
				e.logger.Warn("external rejection escalation failed", slog.String("error", notifyErr.Error()))
			}
		}
	}
	return ep, nil
}

func (e *Engine) prepare(ctx context.Context, input Report, errorType store.ErrorType) (*store.Job, *store.ErrorReport, error) {
	job, err := e.store.GetJob(ctx, input.JobID)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "nonconformance", "report", "load job", err)
	}
	if job == nil {
		return nil, nil, services.Wrap(services.ErrNotFound, "nonconformance", "report", "job not found", nil)
	}

	severity, ok := store.ParseSeverity(input.Severity)
	if !ok {
		return nil, nil, services.Wrap(services.ErrValidation, "nonconformance", "report",
			fmt.Sprintf("unknown severity %q", input.Severity), nil)
	}
	if input.Description == "" {
		return nil, nil, services.Wrap(services.ErrValidation, "nonconformance", "report", "description is required", nil)
	}

	stage := job.Stage
	if input.Stage != "" {
		parsed, ok := store.ParseStage(input.Stage)
		if !ok {
			return nil, nil, services.Wrap(services.ErrValidation, "nonconformance", "report",
				fmt.Sprintf("unknown stage %q", input.Stage), nil)
		}
		stage = parsed
	}

	return job, &store.ErrorReport{
		JobID:            job.ID,
		ReportedBy:       input.ReportedBy,
		Stage:            stage,
		Severity:         severity,
		Description:      input.Description,
		AffectedQuantity: input.AffectedQuantity,
		ErrorType:        errorType,
		AssignedTo:       input.AssignedTo,
	}, nil
}

// file persists the report, its origin rejection, and the audit entry as one
// durable write, then escalates. Notification failures never undo the report.
func (e *Engine) file(ctx context.Context, job *store.Job, draft *store.ErrorReport) (*store.ErrorReport, error) {
	report, err := e.store.FileErrorReport(ctx, draft, store.AuditEntry{
		Actor:       draft.ReportedBy,
		Action:      "create",
		EntityType:  "error_report",
		Description: fmt.Sprintf("%s %s error reported on %s", draft.Severity, draft.ErrorType, job.JobNumber),
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "report", "persist report", err)
	}

	if notifyErr := e.notifier.NotifyErrorReport(ctx, job, report); notifyErr != nil {
		e.logger.Warn("error report escalation failed",
			slog.Int64("report_id", report.ID),
			slog.String("error", notifyErr.Error()))
	}

	e.logger.Info("error report filed",
		slog.String("job", job.JobNumber),
		slog.String("type", string(report.ErrorType)),
		slog.String("severity", string(report.Severity)))
	return report, nil
}

func (e *Engine) get(ctx context.Context, id int64) (*store.ErrorReport, error) {
	report, err := e.store.GetErrorReport(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "nonconformance", "get", "lookup failed", err)
	}
	if report == nil {
		return nil, services.Wrap(services.ErrNotFound, "nonconformance", "get", "error report not found", nil)
	}
	return report, nil
}

func allowedTransition(from, to store.ErrorStatus) bool {
	if to == store.ErrorOpen {
		return true
	}
	switch from {
	case store.ErrorOpen:
		return to == store.ErrorInvestigating || to == store.ErrorResolved
	case store.ErrorInvestigating:
		return to == store.ErrorResolved
	case store.ErrorResolved:
		return to == store.ErrorClosed
	default:
		return false
	}
}
