package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const jobColumns = `id, po_number, job_number, customer_ref, part_id, part_number, part_revision,
    part_description, quantity, due_date, workflow_stage, drawing_number, revision_verified,
    revision_verified_by, revision_verified_at, special_requirements, created_at, updated_at, completed_at`

// NextJobNumber generates the next sequential internal job number (JOB00001, ...).
func (s *Store) NextJobNumber(ctx context.Context) (string, error) {
	var maxNum sql.NullInt64
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT MAX(CAST(SUBSTR(job_number, 4) AS INTEGER)) FROM jobs WHERE job_number LIKE 'JOB%'`,
	)
	if err := row.Scan(&maxNum); err != nil {
		return "", fmt.Errorf("next job number: %w", err)
	}
	return fmt.Sprintf("JOB%05d", maxNum.Int64+1), nil
}

// CreateJob inserts a new job and returns the stored row.
func (s *Store) CreateJob(ctx context.Context, job *Job) (*Job, error) {
	if job == nil {
		return nil, errors.New("job is nil")
	}
	now := timestamp(time.Now())
	if job.Stage == "" {
		job.Stage = StagePOReceipt
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (po_number, job_number, customer_ref, part_id, part_number, part_revision,
            part_description, quantity, due_date, workflow_stage, drawing_number,
            special_requirements, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.PONumber,
		job.JobNumber,
		nullableString(job.CustomerRef),
		job.PartID,
		job.PartNumber,
		job.PartRevision,
		nullableString(job.PartDescription),
		job.Quantity,
		nullableTime(job.DueDate),
		job.Stage,
		nullableString(job.DrawingNumber),
		nullableString(job.SpecialRequirements),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetJob(ctx, id)
}

// CreateJobWithDimensions inserts the job, its initial dimension plan numbered
// from one, and the intake audit entry in a single transaction.
func (s *Store) CreateJobWithDimensions(ctx context.Context, job *Job, dims []*Dimension, entry AuditEntry) (*Job, error) {
	if job == nil {
		return nil, errors.New("job is nil")
	}
	now := timestamp(time.Now())
	if job.Stage == "" {
		job.Stage = StagePOReceipt
	}
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO jobs (po_number, job_number, customer_ref, part_id, part_number, part_revision,
                part_description, quantity, due_date, workflow_stage, drawing_number,
                special_requirements, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.PONumber,
			job.JobNumber,
			nullableString(job.CustomerRef),
			job.PartID,
			job.PartNumber,
			job.PartRevision,
			nullableString(job.PartDescription),
			job.Quantity,
			nullableTime(job.DueDate),
			job.Stage,
			nullableString(job.DrawingNumber),
			nullableString(job.SpecialRequirements),
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		for i, dim := range dims {
			dim.JobID = id
			dim.Number = i + 1
			if err := insertDimension(ctx, tx, dim); err != nil {
				return err
			}
		}
		entry.EntityID = id
		return insertAudit(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetJobByNumber fetches a job by its internal job number.
func (s *Store) GetJobByNumber(ctx context.Context, number string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE job_number = ?`, number)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job by number: %w", err)
	}
	return job, nil
}

// UpdateJobDetails persists editable job fields. The workflow stage and
// completion timestamp are owned by the state machine and left untouched.
func (s *Store) UpdateJobDetails(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET po_number = ?, customer_ref = ?, part_id = ?, part_number = ?,
            part_revision = ?, part_description = ?, quantity = ?, due_date = ?,
            drawing_number = ?, special_requirements = ?, updated_at = ?
         WHERE id = ?`,
		job.PONumber,
		nullableString(job.CustomerRef),
		job.PartID,
		job.PartNumber,
		job.PartRevision,
		nullableString(job.PartDescription),
		job.Quantity,
		nullableTime(job.DueDate),
		nullableString(job.DrawingNumber),
		nullableString(job.SpecialRequirements),
		timestamp(time.Now()),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// ApplyStage atomically writes a stage transition, its completion-timestamp
// side effect, and the audit entry recording it.
func (s *Store) ApplyStage(ctx context.Context, jobID int64, stage Stage, completedAt *time.Time, entry AuditEntry) error {
	now := timestamp(time.Now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE jobs SET workflow_stage = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
			stage,
			nullableTime(completedAt),
			now,
			jobID,
		); err != nil {
			return fmt.Errorf("update stage: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

// CompleteJobIfStage transitions the job to complete only when its current
// stage matches want, stamping completed_at and recording an audit entry. When
// want is empty the transition is unconditional. Returns whether a row changed.
func (s *Store) CompleteJobIfStage(ctx context.Context, jobID int64, want Stage, entry AuditEntry) (bool, error) {
	now := time.Now()
	transitioned := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE jobs SET workflow_stage = ?, completed_at = ?, updated_at = ? WHERE id = ?`
		args := []any{StageComplete, timestamp(now), timestamp(now), jobID}
		if want != "" {
			query += ` AND workflow_stage = ?`
			args = append(args, want)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("complete job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		transitioned = affected > 0
		if !transitioned {
			return nil
		}
		return insertAudit(ctx, tx, entry)
	})
	return transitioned, err
}

// VerifyRevision records the drawing-revision verification flag with actor and
// timestamp, plus an audit entry, in one transaction.
func (s *Store) VerifyRevision(ctx context.Context, jobID int64, actor string) error {
	now := time.Now()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE jobs SET revision_verified = 1, revision_verified_by = ?,
                revision_verified_at = ?, updated_at = ? WHERE id = ?`,
			nullableString(actor),
			timestamp(now),
			timestamp(now),
			jobID,
		); err != nil {
			return fmt.Errorf("verify revision: %w", err)
		}
		return insertAudit(ctx, tx, AuditEntry{
			Actor:       actor,
			Action:      "update",
			EntityType:  "job",
			EntityID:    jobID,
			Description: "Verified drawing revision",
		})
	})
}

// ListJobs returns jobs filtered by stage set (or all jobs when none given).
func (s *Store) ListJobs(ctx context.Context, stages ...Stage) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(stages) == 0 {
		rows, err = s.db.QueryContext(ensureContext(ctx), baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(stages))
		args := make([]any, len(stages))
		for i, stage := range stages {
			args[i] = stage
		}
		rows, err = s.db.QueryContext(ensureContext(ctx), baseQuery+` WHERE workflow_stage IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job            Job
		customerRef    sql.NullString
		partDesc       sql.NullString
		partRevision   sql.NullString
		dueRaw         sql.NullString
		drawing        sql.NullString
		verified       sql.NullInt64
		verifiedBy     sql.NullString
		verifiedAtRaw  sql.NullString
		special        sql.NullString
		createdRaw     string
		updatedRaw     string
		completedRaw   sql.NullString
		stageRaw       string
	)
	if err := scanner.Scan(
		&job.ID,
		&job.PONumber,
		&job.JobNumber,
		&customerRef,
		&job.PartID,
		&job.PartNumber,
		&partRevision,
		&partDesc,
		&job.Quantity,
		&dueRaw,
		&stageRaw,
		&drawing,
		&verified,
		&verifiedBy,
		&verifiedAtRaw,
		&special,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}
	job.CustomerRef = customerRef.String
	job.PartRevision = partRevision.String
	job.PartDescription = partDesc.String
	job.Stage = Stage(stageRaw)
	job.DrawingNumber = drawing.String
	job.RevisionVerified = verified.Valid && verified.Int64 != 0
	job.RevisionVerifiedBy = verifiedBy.String
	job.RevisionVerifiedAt = timeFromNull(verifiedAtRaw)
	job.SpecialRequirements = special.String
	job.DueDate = timeFromNull(dueRaw)
	job.CompletedAt = timeFromNull(completedRaw)
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return &job, nil
}
