package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const materialColumns = `id, job_id, supplier_id, inspector, material_type, batch_number,
    quantity_received, certificate_matches, visual_ok, dimensions_ok, status, notes,
    created_at, updated_at`

// CreateMaterialControl inserts an incoming-material inspection record.
func (s *Store) CreateMaterialControl(ctx context.Context, mc *MaterialControl) (*MaterialControl, error) {
	if mc == nil {
		return nil, errors.New("material control is nil")
	}
	if mc.Status == "" {
		mc.Status = MaterialPending
	}
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO material_controls (job_id, supplier_id, inspector, material_type, batch_number,
            quantity_received, certificate_matches, visual_ok, dimensions_ok, status, notes,
            created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mc.JobID,
		nullableInt64(mc.SupplierID),
		nullableString(mc.Inspector),
		mc.MaterialType,
		nullableString(mc.BatchNumber),
		nullableString(mc.QuantityReceived),
		boolToInt(mc.CertificateMatches),
		boolToInt(mc.VisualOK),
		nullableBool(mc.DimensionsOK),
		mc.Status,
		nullableString(mc.Notes),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert material control: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetMaterialControl(ctx, id)
}

// GetMaterialControl fetches a material control by identifier.
func (s *Store) GetMaterialControl(ctx context.Context, id int64) (*MaterialControl, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+materialColumns+` FROM material_controls WHERE id = ?`, id)
	mc, err := scanMaterialControl(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get material control: %w", err)
	}
	return mc, nil
}

// SetMaterialStatus updates the inspection status and inspector.
func (s *Store) SetMaterialStatus(ctx context.Context, id int64, status MaterialStatus, inspector string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE material_controls SET status = ?, inspector = ?, updated_at = ? WHERE id = ?`,
		status,
		nullableString(inspector),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set material status: %w", err)
	}
	return nil
}

// ListMaterialControls returns a job's material controls ordered by creation.
func (s *Store) ListMaterialControls(ctx context.Context, jobID int64) ([]*MaterialControl, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+materialColumns+` FROM material_controls WHERE job_id = ? ORDER BY created_at`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list material controls: %w", err)
	}
	defer rows.Close()

	var mcs []*MaterialControl
	for rows.Next() {
		mc, err := scanMaterialControl(rows)
		if err != nil {
			return nil, err
		}
		mcs = append(mcs, mc)
	}
	return mcs, rows.Err()
}

func scanMaterialControl(scanner rowScanner) (*MaterialControl, error) {
	var (
		mc          MaterialControl
		supplierID  sql.NullInt64
		inspector   sql.NullString
		batch       sql.NullString
		qty         sql.NullString
		certMatches sql.NullInt64
		visualOK    sql.NullInt64
		dimsOK      sql.NullInt64
		notes       sql.NullString
		statusRaw   string
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&mc.ID,
		&mc.JobID,
		&supplierID,
		&inspector,
		&mc.MaterialType,
		&batch,
		&qty,
		&certMatches,
		&visualOK,
		&dimsOK,
		&statusRaw,
		&notes,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	mc.SupplierID = int64FromNull(supplierID)
	mc.Inspector = inspector.String
	mc.BatchNumber = batch.String
	mc.QuantityReceived = qty.String
	mc.CertificateMatches = certMatches.Valid && certMatches.Int64 != 0
	mc.VisualOK = visualOK.Valid && visualOK.Int64 != 0
	mc.DimensionsOK = boolFromNull(dimsOK)
	mc.Status = MaterialStatus(statusRaw)
	mc.Notes = notes.String
	if created, err := parseTimeString(createdRaw); err == nil {
		mc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		mc.UpdatedAt = updated
	}
	return &mc, nil
}
