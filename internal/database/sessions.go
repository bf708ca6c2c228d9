package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tasky-bot/tasky/internal/models"
)

// SessionRepository handles conversation session database operations.
// Sessions are keyed by user ID, one persistent session per user.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetOrCreate ensures a session row exists for the user and returns it
func (r *SessionRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	query := `
		INSERT INTO sessions (user_id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, created_at
	`

	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, userID, time.Now().UTC()).Scan(&session.UserID, &session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create session: %w", err)
	}

	return session, nil
}

// AppendMessage records one conversation turn in the session history
func (r *SessionRepository) AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) error {
	query := `
		INSERT INTO session_messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, uuid.New(), sessionID, role, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to append session message: %w", err)
	}

	return nil
}

// ListRecentMessages returns up to limit of the most recent messages,
// ordered oldest first so they can be replayed into a model context.
func (r *SessionRepository) ListRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.SessionMessage, error) {
	query := `
		SELECT id, session_id, role, content, created_at
		FROM (
			SELECT id, session_id, role, content, created_at
			FROM session_messages
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query session messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.SessionMessage
	for rows.Next() {
		msg := &models.SessionMessage{}
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session messages: %w", err)
	}

	return messages, nil
}
