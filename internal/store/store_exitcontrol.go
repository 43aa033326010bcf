package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const exitControlColumns = `id, job_id, inspector, lot_quantity, overall_status, notes, created_at`

const sampleColumns = `id, exit_control_id, position, dimensions_ok, visual_ok, surface_ok,
    overall_pass, notes, inspected_at`

// CreateExitControl inserts an exit control together with its initial sample
// rows, one transaction for the whole set.
func (s *Store) CreateExitControl(ctx context.Context, ec *ExitControl, positions []int) (*ExitControl, error) {
	if ec == nil {
		return nil, errors.New("exit control is nil")
	}
	if ec.OverallStatus == "" {
		ec.OverallStatus = LotInProgress
	}
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO exit_controls (job_id, inspector, lot_quantity, overall_status, notes, created_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			ec.JobID,
			nullableString(ec.Inspector),
			ec.LotQuantity,
			ec.OverallStatus,
			nullableString(ec.Notes),
			timestamp(time.Now()),
		)
		if err != nil {
			return fmt.Errorf("insert exit control: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		for _, pos := range positions {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO exit_control_samples (exit_control_id, position) VALUES (?, ?)`,
				id,
				pos,
			); err != nil {
				return fmt.Errorf("insert sample %d: %w", pos, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetExitControl(ctx, id)
}

// GetExitControl fetches an exit control by identifier.
func (s *Store) GetExitControl(ctx context.Context, id int64) (*ExitControl, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+exitControlColumns+` FROM exit_controls WHERE id = ?`, id)
	ec, err := scanExitControl(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exit control: %w", err)
	}
	return ec, nil
}

// ListExitControls returns a job's exit controls ordered by creation.
func (s *Store) ListExitControls(ctx context.Context, jobID int64) ([]*ExitControl, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+exitControlColumns+` FROM exit_controls WHERE job_id = ? ORDER BY created_at`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list exit controls: %w", err)
	}
	defer rows.Close()

	var ecs []*ExitControl
	for rows.Next() {
		ec, err := scanExitControl(rows)
		if err != nil {
			return nil, err
		}
		ecs = append(ecs, ec)
	}
	return ecs, rows.Err()
}

// SetLotStatus updates the overall status of an exit control.
func (s *Store) SetLotStatus(ctx context.Context, id int64, status LotStatus) error {
	_, err := s.execWithRetry(ctx, `UPDATE exit_controls SET overall_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set lot status: %w", err)
	}
	return nil
}

// ListSamples returns an exit control's samples ordered by lot position.
func (s *Store) ListSamples(ctx context.Context, exitControlID int64) ([]*ExitControlSample, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+sampleColumns+` FROM exit_control_samples WHERE exit_control_id = ? ORDER BY position`,
		exitControlID,
	)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var samples []*ExitControlSample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// GetSampleByPosition fetches one sample by its lot position.
func (s *Store) GetSampleByPosition(ctx context.Context, exitControlID int64, position int) (*ExitControlSample, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+sampleColumns+` FROM exit_control_samples WHERE exit_control_id = ? AND position = ?`,
		exitControlID,
		position,
	)
	sample, err := scanSample(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sample: %w", err)
	}
	return sample, nil
}

// AddSample inserts one manually chosen sample position. A uniqueness
// violation on (exit_control_id, position) surfaces unwrapped so callers can
// detect duplicates with IsUniqueViolation.
func (s *Store) AddSample(ctx context.Context, exitControlID int64, position int) error {
	_, err := s.db.ExecContext(
		ensureContext(ctx),
		`INSERT INTO exit_control_samples (exit_control_id, position) VALUES (?, ?)`,
		exitControlID,
		position,
	)
	return err
}

// RecordSample stores the three sub-check verdicts and the derived overall
// result for one sample.
func (s *Store) RecordSample(ctx context.Context, sampleID int64, dimensionsOK, visualOK, surfaceOK, overallPass bool, notes string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE exit_control_samples SET dimensions_ok = ?, visual_ok = ?, surface_ok = ?,
            overall_pass = ?, notes = ?, inspected_at = ? WHERE id = ?`,
		boolToInt(dimensionsOK),
		boolToInt(visualOK),
		boolToInt(surfaceOK),
		boolToInt(overallPass),
		nullableString(notes),
		timestamp(time.Now()),
		sampleID,
	)
	if err != nil {
		return fmt.Errorf("record sample: %w", err)
	}
	return nil
}

func scanExitControl(scanner rowScanner) (*ExitControl, error) {
	var (
		ec         ExitControl
		inspector  sql.NullString
		notes      sql.NullString
		statusRaw  string
		createdRaw string
	)
	if err := scanner.Scan(
		&ec.ID,
		&ec.JobID,
		&inspector,
		&ec.LotQuantity,
		&statusRaw,
		&notes,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	ec.Inspector = inspector.String
	ec.OverallStatus = LotStatus(statusRaw)
	ec.Notes = notes.String
	if created, err := parseTimeString(createdRaw); err == nil {
		ec.CreatedAt = created
	}
	return &ec, nil
}

func scanSample(scanner rowScanner) (*ExitControlSample, error) {
	var (
		sample       ExitControlSample
		dimsOK       sql.NullInt64
		visualOK     sql.NullInt64
		surfaceOK    sql.NullInt64
		overallPass  sql.NullInt64
		notes        sql.NullString
		inspectedRaw sql.NullString
	)
	if err := scanner.Scan(
		&sample.ID,
		&sample.ExitControlID,
		&sample.Position,
		&dimsOK,
		&visualOK,
		&surfaceOK,
		&overallPass,
		&notes,
		&inspectedRaw,
	); err != nil {
		return nil, err
	}
	sample.DimensionsOK = boolFromNull(dimsOK)
	sample.VisualOK = boolFromNull(visualOK)
	sample.SurfaceOK = boolFromNull(surfaceOK)
	sample.OverallPass = boolFromNull(overallPass)
	sample.Notes = notes.String
	sample.InspectedAt = timeFromNull(inspectedRaw)
	return &sample, nil
}
