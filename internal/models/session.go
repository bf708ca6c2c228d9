package models

import (
	"time"

	"github.com/google/uuid"
)

// Session binds a user to the agent's memory of prior turns.
// The session ID equals the user ID: one persistent session per user,
// never rotated or expired.
type Session struct {
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionMessage is one turn of a session's conversation history
type SessionMessage struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
