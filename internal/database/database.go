package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Postgres driver
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a requested row does not exist or is not
// visible to the acting user. Ownership failures are deliberately
// indistinguishable from missing rows.
var ErrNotFound = errors.New("not found")

// DB wraps a sql.DB connection pool
type DB struct {
	*sql.DB
}

// New opens a connection pool against the configured Postgres URL
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			_ = closeErr
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate creates the schema if it does not exist yet
func (db *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			phone_number TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			due_dt TIMESTAMPTZ,
			working_dt TIMESTAMPTZ,
			duration_mins INT NOT NULL DEFAULT 0,
			priority INT NOT NULL DEFAULT 2,
			tags TEXT[],
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due_dt ON tasks(due_dt)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id UUID PRIMARY KEY REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS session_messages (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES sessions(user_id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_messages_session ON session_messages(session_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
