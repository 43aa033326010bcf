package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const externalColumns = `id, job_id, supplier_id, process_type, quantity_sent, quantity_received,
    sent_date, expected_return_date, actual_return_date, inspector, inspection_notes,
    status, notes, created_at, updated_at`

// CreateExternalProcess inserts an outsourced-process record in status "sent".
func (s *Store) CreateExternalProcess(ctx context.Context, ep *ExternalProcess) (*ExternalProcess, error) {
	if ep == nil {
		return nil, errors.New("external process is nil")
	}
	if ep.Status == "" {
		ep.Status = ExternalSent
	}
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO external_processes (job_id, supplier_id, process_type, quantity_sent,
            quantity_received, sent_date, expected_return_date, status, notes, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ep.JobID,
		nullableInt64(ep.SupplierID),
		ep.ProcessType,
		ep.QuantitySent,
		ep.QuantityReceived,
		nullableTime(ep.SentDate),
		nullableTime(ep.ExpectedReturnDate),
		ep.Status,
		nullableString(ep.Notes),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert external process: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetExternalProcess(ctx, id)
}

// GetExternalProcess fetches an external process by identifier.
func (s *Store) GetExternalProcess(ctx context.Context, id int64) (*ExternalProcess, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+externalColumns+` FROM external_processes WHERE id = ?`, id)
	ep, err := scanExternalProcess(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get external process: %w", err)
	}
	return ep, nil
}

// MarkExternalReceived records receipt of parts back from the supplier.
func (s *Store) MarkExternalReceived(ctx context.Context, id int64, quantityReceived int) error {
	now := timestamp(time.Now())
	_, err := s.execWithRetry(
		ctx,
		`UPDATE external_processes SET status = ?, actual_return_date = ?, quantity_received = ?,
            updated_at = ? WHERE id = ?`,
		ExternalReceived,
		now,
		quantityReceived,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark external received: %w", err)
	}
	return nil
}

// SetExternalStatus records the inspection outcome for returned parts.
func (s *Store) SetExternalStatus(ctx context.Context, id int64, status ExternalStatus, inspector, inspectionNotes string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE external_processes SET status = ?, inspector = ?, inspection_notes = ?,
            updated_at = ? WHERE id = ?`,
		status,
		nullableString(inspector),
		nullableString(inspectionNotes),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set external status: %w", err)
	}
	return nil
}

// ListExternalProcesses returns a job's external processes ordered by creation.
func (s *Store) ListExternalProcesses(ctx context.Context, jobID int64) ([]*ExternalProcess, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+externalColumns+` FROM external_processes WHERE job_id = ? ORDER BY created_at`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list external processes: %w", err)
	}
	defer rows.Close()

	var eps []*ExternalProcess
	for rows.Next() {
		ep, err := scanExternalProcess(rows)
		if err != nil {
			return nil, err
		}
		eps = append(eps, ep)
	}
	return eps, rows.Err()
}

func scanExternalProcess(scanner rowScanner) (*ExternalProcess, error) {
	var (
		ep          ExternalProcess
		supplierID  sql.NullInt64
		sentRaw     sql.NullString
		expectedRaw sql.NullString
		actualRaw   sql.NullString
		inspector   sql.NullString
		inspNotes   sql.NullString
		notes       sql.NullString
		statusRaw   string
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&ep.ID,
		&ep.JobID,
		&supplierID,
		&ep.ProcessType,
		&ep.QuantitySent,
		&ep.QuantityReceived,
		&sentRaw,
		&expectedRaw,
		&actualRaw,
		&inspector,
		&inspNotes,
		&statusRaw,
		&notes,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	ep.SupplierID = int64FromNull(supplierID)
	ep.SentDate = timeFromNull(sentRaw)
	ep.ExpectedReturnDate = timeFromNull(expectedRaw)
	ep.ActualReturnDate = timeFromNull(actualRaw)
	ep.Inspector = inspector.String
	ep.InspectionNotes = inspNotes.String
	ep.Status = ExternalStatus(statusRaw)
	ep.Notes = notes.String
	if created, err := parseTimeString(createdRaw); err == nil {
		ep.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		ep.UpdatedAt = updated
	}
	return &ep, nil
}
