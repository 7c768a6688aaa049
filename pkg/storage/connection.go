package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

// DB wraps a pooled database handle with its dialect
type DB struct {
	*sql.DB
	dialect string
}

// Dialect returns the dialect constant for this connection.
func (d *DB) Dialect() string {
	return d.dialect
}

// Rebind rewrites ? placeholders for this connection's dialect.
func (d *DB) Rebind(query string) string {
	return Rebind(d.dialect, query)
}

// Open opens a pooled database connection and verifies it with a ping.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	driver, dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, dialect: dialectForDriver(driver)}, nil
}

// schemaStatements returns the DDL for the given dialect. IF NOT EXISTS
// makes startup idempotent.
func schemaStatements(dialect string) []string {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	timestampType := "TIMESTAMP"
	boolType := "BOOLEAN"
	if dialect == DialectPostgreSQL {
		idColumn = "BIGSERIAL PRIMARY KEY"
		timestampType = "TIMESTAMPTZ"
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS users (
			id %s,
			username VARCHAR(50) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			full_name VARCHAR(255) NOT NULL DEFAULT '',
			hashed_password VARCHAR(255) NOT NULL,
			disabled %s NOT NULL DEFAULT FALSE,
			is_admin %s NOT NULL DEFAULT FALSE,
			creation_date %s NOT NULL,
			disable_date %s,
			last_login %s
		)`, idColumn, boolType, boolType, timestampType, timestampType, timestampType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tasks (
			id %s,
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			done %s NOT NULL DEFAULT FALSE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at %s NOT NULL,
			updated_at %s NOT NULL
		)`, idColumn, boolType, timestampType, timestampType),
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
	}
}

// InitSchema creates the users and tasks tables when they do not exist.
func (d *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(d.dialect) {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
