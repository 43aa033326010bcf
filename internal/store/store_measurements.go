package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const reportColumns = `id, job_id, report_type, inspector, overall_status, notes, created_at`

const measurementColumns = `id, report_id, job_dimension_id, actual_value, pass_fail, equipment,
    sample_number, measured_by, measured_at, notes`

// CreateMeasurementReport inserts a report together with its measurements in
// one transaction. The caller supplies the computed overall status; a failed
// measurement insert rolls back the report shell too.
func (s *Store) CreateMeasurementReport(ctx context.Context, report *MeasurementReport, measurements []*Measurement) (*MeasurementReport, error) {
	if report == nil {
		return nil, errors.New("report is nil")
	}
	if report.OverallStatus == "" {
		report.OverallStatus = ReportPending
	}
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO measurement_reports (job_id, report_type, inspector, overall_status, notes, created_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			report.JobID,
			report.ReportType,
			nullableString(report.Inspector),
			report.OverallStatus,
			nullableString(report.Notes),
			timestamp(time.Now()),
		)
		if err != nil {
			return fmt.Errorf("insert measurement report: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		for _, m := range measurements {
			m.ReportID = id
			if err := upsertMeasurement(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetMeasurementReport(ctx, id)
}

// GetMeasurementReport fetches a report by identifier.
func (s *Store) GetMeasurementReport(ctx context.Context, id int64) (*MeasurementReport, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+reportColumns+` FROM measurement_reports WHERE id = ?`, id)
	report, err := scanMeasurementReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get measurement report: %w", err)
	}
	return report, nil
}

// upsertMeasurement inserts a measurement, replacing any existing row for the
// same (report, dimension, sample) key so a batch keeps its last value.
func upsertMeasurement(ctx context.Context, tx *sql.Tx, m *Measurement) error {
	if m == nil {
		return errors.New("measurement is nil")
	}
	if m.SampleNumber <= 0 {
		m.SampleNumber = 1
	}
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO measurements (report_id, job_dimension_id, actual_value, pass_fail, equipment,
            sample_number, measured_by, measured_at, notes)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(report_id, job_dimension_id, sample_number) DO UPDATE SET
            actual_value = excluded.actual_value,
            pass_fail = excluded.pass_fail,
            equipment = excluded.equipment,
            measured_by = excluded.measured_by,
            measured_at = excluded.measured_at,
            notes = excluded.notes`,
		m.ReportID,
		m.DimensionID,
		m.ActualValue,
		m.PassFail,
		nullableString(m.Equipment),
		m.SampleNumber,
		nullableString(m.MeasuredBy),
		timestamp(time.Now()),
		nullableString(m.Notes),
	)
	if err != nil {
		return fmt.Errorf("upsert measurement: %w", err)
	}
	return nil
}

// ListMeasurements returns a report's measurements ordered by dimension and sample.
func (s *Store) ListMeasurements(ctx context.Context, reportID int64) ([]*Measurement, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+measurementColumns+` FROM measurements WHERE report_id = ?
         ORDER BY job_dimension_id, sample_number`,
		reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	defer rows.Close()

	var ms []*Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}

// ListMeasurementReports returns a job's reports ordered by creation.
func (s *Store) ListMeasurementReports(ctx context.Context, jobID int64) ([]*MeasurementReport, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+reportColumns+` FROM measurement_reports WHERE job_id = ? ORDER BY created_at`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list measurement reports: %w", err)
	}
	defer rows.Close()

	var reports []*MeasurementReport
	for rows.Next() {
		report, err := scanMeasurementReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func scanMeasurementReport(scanner rowScanner) (*MeasurementReport, error) {
	var (
		report     MeasurementReport
		inspector  sql.NullString
		notes      sql.NullString
		statusRaw  string
		createdRaw string
	)
	if err := scanner.Scan(
		&report.ID,
		&report.JobID,
		&report.ReportType,
		&inspector,
		&statusRaw,
		&notes,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	report.Inspector = inspector.String
	report.OverallStatus = ReportStatus(statusRaw)
	report.Notes = notes.String
	if created, err := parseTimeString(createdRaw); err == nil {
		report.CreatedAt = created
	}
	return &report, nil
}

func scanMeasurement(scanner rowScanner) (*Measurement, error) {
	var (
		m           Measurement
		equipment   sql.NullString
		measuredBy  sql.NullString
		measuredRaw string
		notes       sql.NullString
	)
	if err := scanner.Scan(
		&m.ID,
		&m.ReportID,
		&m.DimensionID,
		&m.ActualValue,
		&m.PassFail,
		&equipment,
		&m.SampleNumber,
		&measuredBy,
		&measuredRaw,
		&notes,
	); err != nil {
		return nil, err
	}
	m.Equipment = equipment.String
	m.MeasuredBy = measuredBy.String
	m.Notes = notes.String
	if measured, err := parseTimeString(measuredRaw); err == nil {
		m.MeasuredAt = measured
	}
	return &m, nil
}
