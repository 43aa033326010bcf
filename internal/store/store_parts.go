package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const partColumns = "id, part_number, part_revision, part_description, created_at, updated_at"

// CreatePart inserts a new part identity. A uniqueness violation on
// (part_number, part_revision) surfaces unwrapped so callers can detect it
// with IsUniqueViolation.
func (s *Store) CreatePart(ctx context.Context, number, revision, description string) (*Part, error) {
	now := timestamp(time.Now())
	res, err := s.db.ExecContext(
		ensureContext(ctx),
		`INSERT INTO parts (part_number, part_revision, part_description, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		number,
		revision,
		nullableString(description),
		now,
		now,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetPart(ctx, id)
}

// GetPart fetches a part by identifier.
func (s *Store) GetPart(ctx context.Context, id int64) (*Part, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+partColumns+` FROM parts WHERE id = ?`, id)
	part, err := scanPart(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get part: %w", err)
	}
	return part, nil
}

// FindPart returns the part matching the exact (number, revision) identity.
func (s *Store) FindPart(ctx context.Context, number, revision string) (*Part, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+partColumns+` FROM parts WHERE part_number = ? AND part_revision = ?`,
		number,
		revision,
	)
	part, err := scanPart(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find part: %w", err)
	}
	return part, nil
}

// UpdatePartDescription updates the mutable description field.
func (s *Store) UpdatePartDescription(ctx context.Context, id int64, description string) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE parts SET part_description = ?, updated_at = ? WHERE id = ?`,
		nullableString(description),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update part description: %w", err)
	}
	return nil
}

// ListParts returns all parts ordered by number and revision.
func (s *Store) ListParts(ctx context.Context) ([]*Part, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+partColumns+` FROM parts ORDER BY part_number, part_revision`,
	)
	if err != nil {
		return nil, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()

	var parts []*Part
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, rows.Err()
}

func scanPart(scanner rowScanner) (*Part, error) {
	var (
		part        Part
		description sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(&part.ID, &part.Number, &part.Revision, &description, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	part.Description = description.String
	if created, err := parseTimeString(createdRaw); err == nil {
		part.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		part.UpdatedAt = updated
	}
	return &part, nil
}
