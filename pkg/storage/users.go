package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/taskforge/taskforge/pkg/api"
	"github.com/taskforge/taskforge/pkg/auth"
)

// UserStore implements api.UserStore on database/sql
type UserStore struct {
	db *DB
}

// NewUserStore creates a user store on the given connection.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = "id, username, email, full_name, hashed_password, disabled, is_admin, creation_date, disable_date, last_login"

// scanUser reads one user row, handling nullable timestamps
func scanUser(row interface{ Scan(...interface{}) error }) (*auth.User, error) {
	var user auth.User
	var disableDate, lastLogin sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.HashedPassword,
		&user.Disabled,
		&user.IsAdmin,
		&user.CreationDate,
		&disableDate,
		&lastLogin,
	)
	if err != nil {
		return nil, err
	}
	if disableDate.Valid {
		user.DisableDate = &disableDate.Time
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return &user, nil
}

// isUniqueViolation reports whether err is a unique constraint failure
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// duplicateError maps a unique violation to the conflicting field
func duplicateError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "email") {
		return api.ErrDuplicateEmail
	}
	return api.ErrDuplicateUsername
}

// CreateUser inserts a new user and fills in its assigned ID.
func (s *UserStore) CreateUser(ctx context.Context, user *auth.User) error {
	if user.CreationDate.IsZero() {
		user.CreationDate = time.Now().UTC()
	}

	if s.db.Dialect() == DialectPostgreSQL {
		query := s.db.Rebind(`INSERT INTO users
			(username, email, full_name, hashed_password, disabled, is_admin, creation_date, disable_date, last_login)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
		err := s.db.QueryRowContext(ctx, query,
			user.Username, user.Email, user.FullName, user.HashedPassword,
			user.Disabled, user.IsAdmin, user.CreationDate, user.DisableDate, user.LastLogin,
		).Scan(&user.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return duplicateError(err)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	}

	query := s.db.Rebind(`INSERT INTO users
		(username, email, full_name, hashed_password, disabled, is_admin, creation_date, disable_date, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	result, err := s.db.ExecContext(ctx, query,
		user.Username, user.Email, user.FullName, user.HashedPassword,
		user.Disabled, user.IsAdmin, user.CreationDate, user.DisableDate, user.LastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateError(err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID fetches a user by primary key.
func (s *UserStore) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	query := s.db.Rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindByUsername fetches a user by username. Satisfies auth.UserFinder.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	query := s.db.Rebind("SELECT " + userColumns + " FROM users WHERE username = ?")
	user, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail fetches a user by email address.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := s.db.Rebind("SELECT " + userColumns + " FROM users WHERE email = ?")
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns users ordered by ID with skip/limit pagination.
func (s *UserStore) ListUsers(ctx context.Context, skip, limit int) ([]*auth.User, error) {
	query := s.db.Rebind("SELECT " + userColumns + " FROM users ORDER BY id LIMIT ? OFFSET ?")
	rows, err := s.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*auth.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUser persists mutable account fields.
func (s *UserStore) UpdateUser(ctx context.Context, user *auth.User) error {
	query := s.db.Rebind(`UPDATE users SET
		email = ?, full_name = ?, hashed_password = ?, disabled = ?, is_admin = ?, disable_date = ?
		WHERE id = ?`)
	result, err := s.db.ExecContext(ctx, query,
		user.Email, user.FullName, user.HashedPassword,
		user.Disabled, user.IsAdmin, user.DisableDate, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateError(err)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin records a successful login timestamp.
func (s *UserStore) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	query := s.db.Rebind("UPDATE users SET last_login = ? WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// DeleteUser removes a user and their tasks in one transaction. SQLite does
// not enforce the schema's cascade without a pragma, so the tasks are
// deleted explicitly.
func (s *UserStore) DeleteUser(ctx context.Context, id int64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.db.Rebind("DELETE FROM tasks WHERE user_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete user tasks: %w", err)
		}

		result, err := tx.ExecContext(ctx, s.db.Rebind("DELETE FROM users WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read delete result: %w", err)
		}
		if affected == 0 {
			return auth.ErrUserNotFound
		}
		return nil
	})
}
