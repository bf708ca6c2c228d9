package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tasky-bot/tasky/internal/models"
)

// pgUniqueViolation is the Postgres error code for unique constraint violations
const pgUniqueViolation = "23505"

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, phone_number, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.PhoneNumber,
		user.DisplayName,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByPhone retrieves a user by phone number
func (r *UserRepository) GetByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, phone_number, display_name, created_at, updated_at
		FROM users
		WHERE phone_number = $1
	`

	err := r.db.QueryRowContext(ctx, query, phoneNumber).Scan(
		&user.ID,
		&user.PhoneNumber,
		&user.DisplayName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, phone_number, display_name, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.PhoneNumber,
		&user.DisplayName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetOrCreateByPhone resolves a phone number to a user, creating the user on
// first contact. Two concurrent first contacts race on the insert; the loser
// hits the unique constraint and re-selects the winner's row, so exactly one
// user ever exists per phone number. Display name is last-seen-wins.
func (r *UserRepository) GetOrCreateByPhone(ctx context.Context, phoneNumber, displayName string) (*models.User, error) {
	user, err := r.GetByPhone(ctx, phoneNumber)
	if err == nil {
		if displayName != "" && displayName != user.DisplayName {
			if updateErr := r.updateDisplayName(ctx, user.ID, displayName); updateErr == nil {
				user.DisplayName = displayName
			}
		}
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user = &models.User{
		ID:          uuid.New(),
		PhoneNumber: phoneNumber,
		DisplayName: displayName,
	}
	createErr := r.Create(ctx, user)
	if createErr == nil {
		return user, nil
	}

	var pqErr *pq.Error
	if errors.As(createErr, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		// Lost the creation race; the row exists now
		return r.GetByPhone(ctx, phoneNumber)
	}

	return nil, createErr
}

// ListAll retrieves every user
func (r *UserRepository) ListAll(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT id, phone_number, display_name, created_at, updated_at
		FROM users
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID,
			&user.PhoneNumber,
			&user.DisplayName,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func (r *UserRepository) updateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error {
	query := `UPDATE users SET display_name = $2, updated_at = $3 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, displayName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}
