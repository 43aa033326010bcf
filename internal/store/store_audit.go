package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const auditColumns = `id, actor, action, entity_type, entity_id, description, created_at`

func insertAudit(ctx context.Context, tx *sql.Tx, entry AuditEntry) error {
	if entry.Action == "" {
		return nil
	}
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO audit_log (actor, action, entity_type, entity_id, description, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		nullableString(entry.Actor),
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		nullableString(entry.Description),
		timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// RecordAudit appends one entry to the audit trail.
func (s *Store) RecordAudit(ctx context.Context, entry AuditEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertAudit(ctx, tx, entry)
	})
}

// ListAudit returns the audit trail for an entity, newest first.
func (s *Store) ListAudit(ctx context.Context, entityType string, entityID int64, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+auditColumns+` FROM audit_log WHERE entity_type = ? AND entity_id = ?
         ORDER BY id DESC LIMIT ?`,
		entityType,
		entityID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// RecentAudit returns the most recent audit entries across all entities.
func (s *Store) RecentAudit(ctx context.Context, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+auditColumns+` FROM audit_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent audit: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanAuditEntry(scanner rowScanner) (*AuditEntry, error) {
	var (
		entry       AuditEntry
		actor       sql.NullString
		description sql.NullString
		createdRaw  string
	)
	if err := scanner.Scan(
		&entry.ID,
		&actor,
		&entry.Action,
		&entry.EntityType,
		&entry.EntityID,
		&description,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	entry.Actor = actor.String
	entry.Description = description.String
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return &entry, nil
}
