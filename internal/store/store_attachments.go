package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const attachmentColumns = `id, entity_type, entity_id, file_name, reference, uploaded_by, uploaded_at`

// AddAttachment records an uploaded file against an entity and returns the row
// with its generated reference. The file bytes live outside the database.
func (s *Store) AddAttachment(ctx context.Context, a *Attachment) (*Attachment, error) {
	if a == nil {
		return nil, errors.New("attachment is nil")
	}
	if a.Reference == "" {
		a.Reference = uuid.NewString()
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO attachments (entity_type, entity_id, file_name, reference, uploaded_by, uploaded_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		a.EntityType,
		a.EntityID,
		a.FileName,
		a.Reference,
		nullableString(a.UploadedBy),
		timestamp(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("insert attachment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+attachmentColumns+` FROM attachments WHERE id = ?`, id)
	attachment, err := scanAttachment(row)
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return attachment, nil
}

// ListAttachments returns an entity's attachments in upload order.
func (s *Store) ListAttachments(ctx context.Context, entityType string, entityID int64) ([]*Attachment, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+attachmentColumns+` FROM attachments WHERE entity_type = ? AND entity_id = ? ORDER BY id`,
		entityType,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*Attachment
	for rows.Next() {
		attachment, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}
	return attachments, rows.Err()
}

func scanAttachment(scanner rowScanner) (*Attachment, error) {
	var (
		a           Attachment
		uploadedBy  sql.NullString
		uploadedRaw string
	)
	if err := scanner.Scan(
		&a.ID,
		&a.EntityType,
		&a.EntityID,
		&a.FileName,
		&a.Reference,
		&uploadedBy,
		&uploadedRaw,
	); err != nil {
		return nil, err
	}
	a.UploadedBy = uploadedBy.String
	if uploaded, err := parseTimeString(uploadedRaw); err == nil {
		a.UploadedAt = uploaded
	}
	return &a, nil
}
