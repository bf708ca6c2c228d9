package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeDailySummary delivers one user's daily task digest
	JobTypeDailySummary JobType = "daily_summary"
)

// Job represents a job in the queue
type Job struct {
	ID          uuid.UUID `json:"id"`
	Type        JobType   `json:"type"`
	UserID      uuid.UUID `json:"user_id"`
	SummaryDate string    `json:"summary_date,omitempty"` // YYYY-MM-DD
	CreatedAt   time.Time `json:"created_at"`
	RetryCount  int       `json:"retry_count"`
	MaxRetries  int       `json:"max_retries"`
}

// NewDailySummaryJob creates a summary job for one user and day
func NewDailySummaryJob(userID uuid.UUID, summaryDate string) *Job {
	return &Job{
		ID:          uuid.New(),
		Type:        JobTypeDailySummary,
		UserID:      userID,
		SummaryDate: summaryDate,
		CreatedAt:   time.Now().UTC(),
		MaxRetries:  3,
	}
}

// CanRetry reports whether the job has retry budget left
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}
