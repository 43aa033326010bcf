package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const dimensionColumns = `id, job_id, dimension_number, dimension_name, nominal_value,
    tolerance_plus, tolerance_minus, unit, drawing_reference, critical, created_at`

// AddDimension inserts a dimension, assigning the next dimension_number for the
// job inside the same transaction so concurrent adds cannot collide.
func (s *Store) AddDimension(ctx context.Context, dim *Dimension) (*Dimension, error) {
	if dim == nil {
		return nil, errors.New("dimension is nil")
	}
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var maxNum sql.NullInt64
		row := tx.QueryRowContext(ctx, `SELECT MAX(dimension_number) FROM job_dimensions WHERE job_id = ?`, dim.JobID)
		if err := row.Scan(&maxNum); err != nil {
			return fmt.Errorf("next dimension number: %w", err)
		}
		dim.Number = int(maxNum.Int64) + 1

		if err := insertDimension(ctx, tx, dim); err != nil {
			return err
		}
		id = dim.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetDimension(ctx, id)
}

// insertDimension writes one dimension row inside an open transaction and
// fills in its assigned identifier.
func insertDimension(ctx context.Context, tx *sql.Tx, dim *Dimension) error {
	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO job_dimensions (job_id, dimension_number, dimension_name, nominal_value,
            tolerance_plus, tolerance_minus, unit, drawing_reference, critical, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dim.JobID,
		dim.Number,
		dim.Name,
		dim.Nominal,
		nullableFloat(dim.TolerancePlus),
		nullableFloat(dim.ToleranceMinus),
		dim.Unit,
		nullableString(dim.DrawingReference),
		boolToInt(dim.Critical),
		timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert dimension %d: %w", dim.Number, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	dim.ID = id
	return nil
}

// GetDimension fetches a dimension by identifier.
func (s *Store) GetDimension(ctx context.Context, id int64) (*Dimension, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+dimensionColumns+` FROM job_dimensions WHERE id = ?`, id)
	dim, err := scanDimension(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dimension: %w", err)
	}
	return dim, nil
}

// ListDimensions returns a job's dimensions ordered by dimension number.
func (s *Store) ListDimensions(ctx context.Context, jobID int64) ([]*Dimension, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+dimensionColumns+` FROM job_dimensions WHERE job_id = ? ORDER BY dimension_number`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list dimensions: %w", err)
	}
	defer rows.Close()

	var dims []*Dimension
	for rows.Next() {
		dim, err := scanDimension(rows)
		if err != nil {
			return nil, err
		}
		dims = append(dims, dim)
	}
	return dims, rows.Err()
}

// DeleteDimension removes a dimension from a job. Remaining dimension numbers
// are not renumbered.
func (s *Store) DeleteDimension(ctx context.Context, jobID, dimID int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM job_dimensions WHERE id = ? AND job_id = ?`, dimID, jobID)
	if err != nil {
		return false, fmt.Errorf("delete dimension: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CopyDimensions copies all dimensions from one job to another, numbering them
// after the destination's existing dimensions. Returns the number copied.
func (s *Store) CopyDimensions(ctx context.Context, dstJobID, srcJobID int64) (int, error) {
	src, err := s.ListDimensions(ctx, srcJobID)
	if err != nil {
		return 0, err
	}
	copied := 0
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var maxNum sql.NullInt64
		row := tx.QueryRowContext(ctx, `SELECT MAX(dimension_number) FROM job_dimensions WHERE job_id = ?`, dstJobID)
		if err := row.Scan(&maxNum); err != nil {
			return fmt.Errorf("next dimension number: %w", err)
		}
		next := int(maxNum.Int64) + 1
		now := timestamp(time.Now())
		for _, dim := range src {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO job_dimensions (job_id, dimension_number, dimension_name, nominal_value,
                    tolerance_plus, tolerance_minus, unit, drawing_reference, critical, created_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				dstJobID,
				next,
				dim.Name,
				dim.Nominal,
				nullableFloat(dim.TolerancePlus),
				nullableFloat(dim.ToleranceMinus),
				dim.Unit,
				nullableString(dim.DrawingReference),
				boolToInt(dim.Critical),
				now,
			); err != nil {
				return fmt.Errorf("copy dimension: %w", err)
			}
			next++
			copied++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return copied, nil
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func scanDimension(scanner rowScanner) (*Dimension, error) {
	var (
		dim        Dimension
		tolPlus    sql.NullFloat64
		tolMinus   sql.NullFloat64
		drawingRef sql.NullString
		critical   sql.NullInt64
		createdRaw string
	)
	if err := scanner.Scan(
		&dim.ID,
		&dim.JobID,
		&dim.Number,
		&dim.Name,
		&dim.Nominal,
		&tolPlus,
		&tolMinus,
		&dim.Unit,
		&drawingRef,
		&critical,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	dim.TolerancePlus = floatFromNull(tolPlus)
	dim.ToleranceMinus = floatFromNull(tolMinus)
	dim.DrawingReference = drawingRef.String
	dim.Critical = critical.Valid && critical.Int64 != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		dim.CreatedAt = created
	}
	return &dim, nil
}
