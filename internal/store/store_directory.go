package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const userColumns = `id, name, role, active, created_at`

const supplierColumns = `id, name, kind, active, created_at`

// CreateUser inserts a user. The name must be unique; a uniqueness violation
// surfaces unwrapped so callers can detect it with IsUniqueViolation.
func (s *Store) CreateUser(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	if user.Role == "" {
		user.Role = RoleOperator
	}
	res, err := s.db.ExecContext(
		ensureContext(ctx),
		`INSERT INTO users (name, role, active, created_at) VALUES (?, ?, 1, ?)`,
		user.Name,
		user.Role,
		timestamp(time.Now()),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser fetches a user by identifier.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetUserByName fetches a user by name.
func (s *Store) GetUserByName(ctx context.Context, name string) (*User, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+userColumns+` FROM users WHERE name = ?`, name)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by name: %w", err)
	}
	return user, nil
}

// UsersWithRole returns the active users holding any of the given roles.
func (s *Store) UsersWithRole(ctx context.Context, roles ...Role) ([]*User, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(roles))
	for _, role := range roles {
		args = append(args, role)
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+userColumns+` FROM users WHERE active = 1 AND role IN (`+makePlaceholders(len(roles))+`) ORDER BY name`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("users with role: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+userColumns+` FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetUserActive toggles a user's active flag.
func (s *Store) SetUserActive(ctx context.Context, id int64, active bool) error {
	_, err := s.execWithRetry(ctx, `UPDATE users SET active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return nil
}

// CreateSupplier inserts a supplier.
func (s *Store) CreateSupplier(ctx context.Context, supplier *Supplier) (*Supplier, error) {
	if supplier == nil {
		return nil, errors.New("supplier is nil")
	}
	if supplier.Kind == "" {
		supplier.Kind = "material"
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO suppliers (name, kind, active, created_at) VALUES (?, ?, 1, ?)`,
		supplier.Name,
		supplier.Kind,
		timestamp(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("insert supplier: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetSupplier(ctx, id)
}

// GetSupplier fetches a supplier by identifier.
func (s *Store) GetSupplier(ctx context.Context, id int64) (*Supplier, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+supplierColumns+` FROM suppliers WHERE id = ?`, id)
	supplier, err := scanSupplier(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return supplier, nil
}

// ListSuppliers returns all suppliers ordered by name.
func (s *Store) ListSuppliers(ctx context.Context) ([]*Supplier, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+supplierColumns+` FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []*Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, supplier)
	}
	return suppliers, rows.Err()
}

func scanUser(scanner rowScanner) (*User, error) {
	var (
		user       User
		roleRaw    string
		active     int64
		createdRaw string
	)
	if err := scanner.Scan(&user.ID, &user.Name, &roleRaw, &active, &createdRaw); err != nil {
		return nil, err
	}
	user.Role = Role(roleRaw)
	user.Active = active != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		user.CreatedAt = created
	}
	return &user, nil
}

func scanSupplier(scanner rowScanner) (*Supplier, error) {
	var (
		supplier   Supplier
		active     int64
		createdRaw string
	)
	if err := scanner.Scan(&supplier.ID, &supplier.Name, &supplier.Kind, &active, &createdRaw); err != nil {
		return nil, err
	}
	supplier.Active = active != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		supplier.CreatedAt = created
	}
	return &supplier, nil
}
