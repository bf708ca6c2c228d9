package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusArchived   TaskStatus = "archived"
)

// TaskPriority represents the priority of a task (1=high, 2=medium, 3=low)
type TaskPriority int

const (
	TaskPriorityHigh   TaskPriority = 1
	TaskPriorityMedium TaskPriority = 2
	TaskPriorityLow    TaskPriority = 3
)

const (
	// MaxTaskTitleLength is the maximum length for a task title
	MaxTaskTitleLength = 255
	// DefaultTaskDurationMins is the default duration for a task
	DefaultTaskDurationMins = 0
)

// Task represents a unit of work owned by exactly one user
type Task struct {
	ID           uuid.UUID    `json:"task_id"`
	UserID       uuid.UUID    `json:"-"`
	Title        string       `json:"title"`
	Description  *string      `json:"description"`
	Status       TaskStatus   `json:"status"`
	DueDt        *time.Time   `json:"due_dt"`
	WorkingDt    *time.Time   `json:"working_dt"`
	DurationMins int          `json:"duration_mins"`
	Priority     TaskPriority `json:"priority"`
	Tags         []string     `json:"tags"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    *time.Time   `json:"updated_at"`
}
