package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const errorReportColumns = `id, job_id, reported_by, workflow_stage, severity, description,
    affected_quantity, error_type, supplier_id, material_control_id, external_process_id,
    disposition, root_cause, corrective_action, assigned_to, status, found_date,
    resolved_date, closed_date, updated_at`

// CreateErrorReport inserts a nonconformance record in status open.
func (s *Store) CreateErrorReport(ctx context.Context, report *ErrorReport) (*ErrorReport, error) {
	if report == nil {
		return nil, errors.New("error report is nil")
	}
	if report.Status == "" {
		report.Status = ErrorOpen
	}
	now := time.Now()
	if report.FoundDate.IsZero() {
		report.FoundDate = now
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO error_reports (job_id, reported_by, workflow_stage, severity, description,
            affected_quantity, error_type, supplier_id, material_control_id, external_process_id,
            disposition, root_cause, corrective_action, assigned_to, status, found_date, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.JobID,
		nullableString(report.ReportedBy),
		report.Stage,
		report.Severity,
		report.Description,
		nullableInt(report.AffectedQuantity),
		report.ErrorType,
		nullableInt64(report.SupplierID),
		nullableInt64(report.MaterialControlID),
		nullableInt64(report.ExternalProcessID),
		nullableString(report.Disposition),
		nullableString(report.RootCause),
		nullableString(report.CorrectiveAction),
		nullableString(report.AssignedTo),
		report.Status,
		timestamp(report.FoundDate),
		timestamp(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert error report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetErrorReport(ctx, id)
}

// FileErrorReport inserts a nonconformance record, rejects its linked origin
// record when it is not already rejected, and writes the audit entry, all in
// one transaction. The reporter is recorded as the rejecting inspector.
func (s *Store) FileErrorReport(ctx context.Context, report *ErrorReport, entry AuditEntry) (*ErrorReport, error) {
	if report == nil {
		return nil, errors.New("error report is nil")
	}
	if report.Status == "" {
		report.Status = ErrorOpen
	}
	now := time.Now()
	if report.FoundDate.IsZero() {
		report.FoundDate = now
	}
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO error_reports (job_id, reported_by, workflow_stage, severity, description,
                affected_quantity, error_type, supplier_id, material_control_id, external_process_id,
                disposition, root_cause, corrective_action, assigned_to, status, found_date, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.JobID,
			nullableString(report.ReportedBy),
			report.Stage,
			report.Severity,
			report.Description,
			nullableInt(report.AffectedQuantity),
			report.ErrorType,
			nullableInt64(report.SupplierID),
			nullableInt64(report.MaterialControlID),
			nullableInt64(report.ExternalProcessID),
			nullableString(report.Disposition),
			nullableString(report.RootCause),
			nullableString(report.CorrectiveAction),
			nullableString(report.AssignedTo),
			report.Status,
			timestamp(report.FoundDate),
			timestamp(now),
		)
		if err != nil {
			return fmt.Errorf("insert error report: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if report.MaterialControlID != nil {
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE material_controls SET status = ?, inspector = ?, updated_at = ?
                 WHERE id = ? AND status != ?`,
				MaterialRejected,
				nullableString(report.ReportedBy),
				timestamp(now),
				*report.MaterialControlID,
				MaterialRejected,
			); err != nil {
				return fmt.Errorf("reject material control: %w", err)
			}
		}
		if report.ExternalProcessID != nil {
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE external_processes SET status = ?, inspector = ?, updated_at = ?
                 WHERE id = ? AND status != ?`,
				ExternalRejected,
				nullableString(report.ReportedBy),
				timestamp(now),
				*report.ExternalProcessID,
				ExternalRejected,
			); err != nil {
				return fmt.Errorf("reject external process: %w", err)
			}
		}
		entry.EntityID = id
		return insertAudit(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return s.GetErrorReport(ctx, id)
}

// GetErrorReport fetches an error report by identifier.
func (s *Store) GetErrorReport(ctx context.Context, id int64) (*ErrorReport, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+errorReportColumns+` FROM error_reports WHERE id = ?`, id)
	report, err := scanErrorReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get error report: %w", err)
	}
	return report, nil
}

// UpdateErrorReportDetails replaces the investigation fields of a report.
// Status and lifecycle dates are managed separately by SetErrorReportStatus.
func (s *Store) UpdateErrorReportDetails(ctx context.Context, report *ErrorReport) error {
	if report == nil {
		return errors.New("error report is nil")
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE error_reports SET severity = ?, description = ?, affected_quantity = ?,
            disposition = ?, root_cause = ?, corrective_action = ?, assigned_to = ?,
            updated_at = ? WHERE id = ?`,
		report.Severity,
		report.Description,
		nullableInt(report.AffectedQuantity),
		nullableString(report.Disposition),
		nullableString(report.RootCause),
		nullableString(report.CorrectiveAction),
		nullableString(report.AssignedTo),
		timestamp(time.Now()),
		report.ID,
	)
	if err != nil {
		return fmt.Errorf("update error report: %w", err)
	}
	return nil
}

// SetErrorReportStatus updates the lifecycle status and stamps or clears the
// matching date columns. Reopening clears both resolution dates.
func (s *Store) SetErrorReportStatus(ctx context.Context, id int64, status ErrorStatus) error {
	now := timestamp(time.Now())
	var query string
	args := []any{status}
	switch status {
	case ErrorResolved:
		query = `UPDATE error_reports SET status = ?, resolved_date = ?, updated_at = ? WHERE id = ?`
		args = append(args, now, now, id)
	case ErrorClosed:
		query = `UPDATE error_reports SET status = ?, closed_date = ?, updated_at = ? WHERE id = ?`
		args = append(args, now, now, id)
	case ErrorOpen:
		query = `UPDATE error_reports SET status = ?, resolved_date = NULL, closed_date = NULL,
            updated_at = ? WHERE id = ?`
		args = append(args, now, id)
	default:
		query = `UPDATE error_reports SET status = ?, updated_at = ? WHERE id = ?`
		args = append(args, now, id)
	}
	if _, err := s.execWithRetry(ctx, query, args...); err != nil {
		return fmt.Errorf("set error report status: %w", err)
	}
	return nil
}

// ListErrorReports returns error reports, optionally filtered by job and by
// status. Zero jobID and empty statuses mean no filter.
func (s *Store) ListErrorReports(ctx context.Context, jobID int64, statuses ...ErrorStatus) ([]*ErrorReport, error) {
	query := `SELECT ` + errorReportColumns + ` FROM error_reports`
	var (
		clauses []string
		args    []any
	)
	if jobID > 0 {
		clauses = append(clauses, "job_id = ?")
		args = append(args, jobID)
	}
	if len(statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(statuses))+")")
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY found_date DESC, id DESC"

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list error reports: %w", err)
	}
	defer rows.Close()

	var reports []*ErrorReport
	for rows.Next() {
		report, err := scanErrorReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func scanErrorReport(scanner rowScanner) (*ErrorReport, error) {
	var (
		report      ErrorReport
		reportedBy  sql.NullString
		stageRaw    string
		severityRaw string
		affectedQty sql.NullInt64
		typeRaw     string
		supplierID  sql.NullInt64
		materialID  sql.NullInt64
		externalID  sql.NullInt64
		disposition sql.NullString
		rootCause   sql.NullString
		corrective  sql.NullString
		assignedTo  sql.NullString
		statusRaw   string
		foundRaw    string
		resolvedRaw sql.NullString
		closedRaw   sql.NullString
		updatedRaw  string
	)
	if err := scanner.Scan(
		&report.ID,
		&report.JobID,
		&reportedBy,
		&stageRaw,
		&severityRaw,
		&report.Description,
		&affectedQty,
		&typeRaw,
		&supplierID,
		&materialID,
		&externalID,
		&disposition,
		&rootCause,
		&corrective,
		&assignedTo,
		&statusRaw,
		&foundRaw,
		&resolvedRaw,
		&closedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	report.ReportedBy = reportedBy.String
	report.Stage = Stage(stageRaw)
	report.Severity = Severity(severityRaw)
	report.AffectedQuantity = intFromNull(affectedQty)
	report.ErrorType = ErrorType(typeRaw)
	report.SupplierID = int64FromNull(supplierID)
	report.MaterialControlID = int64FromNull(materialID)
	report.ExternalProcessID = int64FromNull(externalID)
	report.Disposition = disposition.String
	report.RootCause = rootCause.String
	report.CorrectiveAction = corrective.String
	report.AssignedTo = assignedTo.String
	report.Status = ErrorStatus(statusRaw)
	if found, err := parseTimeString(foundRaw); err == nil {
		report.FoundDate = found
	}
	report.ResolvedDate = timeFromNull(resolvedRaw)
	report.ClosedDate = timeFromNull(closedRaw)
	if updated, err := parseTimeString(updatedRaw); err == nil {
		report.UpdatedAt = updated
	}
	return &report, nil
}
