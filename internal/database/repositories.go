package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tasky-bot/tasky/internal/models"
)

// UserRepositoryInterface defines the contract for user database operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByPhone(ctx context.Context, phoneNumber string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetOrCreateByPhone(ctx context.Context, phoneNumber, displayName string) (*models.User, error)
	ListAll(ctx context.Context) ([]*models.User, error)
}

// TaskRepositoryInterface defines the contract for task database operations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	ListDueOn(ctx context.Context, userID uuid.UUID, day time.Time) ([]*models.Task, error)
}

// SessionRepositoryInterface defines the contract for session database operations
type SessionRepositoryInterface interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Session, error)
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) error
	ListRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.SessionMessage, error)
}

// Compile-time interface checks
var (
	_ UserRepositoryInterface    = (*UserRepository)(nil)
	_ TaskRepositoryInterface    = (*TaskRepository)(nil)
	_ SessionRepositoryInterface = (*SessionRepository)(nil)
)
