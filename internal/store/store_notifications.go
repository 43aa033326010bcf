package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const notificationColumns = `id, user_id, kind, title, message, link_entity_type,
    link_entity_id, read, created_at`

// CreateNotification inserts one in-app notification row.
func (s *Store) CreateNotification(ctx context.Context, n *Notification) error {
	if n == nil {
		return errors.New("notification is nil")
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO notifications (user_id, kind, title, message, link_entity_type,
            link_entity_id, read, created_at)
         VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		n.UserID,
		n.Kind,
		n.Title,
		n.Message,
		nullableString(n.LinkEntityType),
		n.LinkEntityID,
		timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first. When
// unreadOnly is set, read notifications are skipped.
func (s *Store) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var ns []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		ns = append(ns, n)
	}
	return ns, rows.Err()
}

// MarkNotificationRead marks a single notification read.
func (s *Store) MarkNotificationRead(ctx context.Context, id int64) error {
	_, err := s.execWithRetry(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification for a user read and
// returns how many changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	res, err := s.execWithRetry(ctx, `UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func scanNotification(scanner rowScanner) (*Notification, error) {
	var (
		n          Notification
		linkType   sql.NullString
		linkID     sql.NullInt64
		read       int64
		createdRaw string
	)
	if err := scanner.Scan(
		&n.ID,
		&n.UserID,
		&n.Kind,
		&n.Title,
		&n.Message,
		&linkType,
		&linkID,
		&read,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	n.LinkEntityType = linkType.String
	n.LinkEntityID = linkID.Int64
	n.Read = read != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		n.CreatedAt = created
	}
	return &n, nil
}
