package tasks

import "github.com/tasky-bot/tasky/internal/models"

// Batch operation statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DraftError reports one failed draft from a Create batch
type DraftError struct {
	DraftIndex   int    `json:"draft_index"`
	Title        string `json:"title"`
	ErrorMessage string `json:"error_message"`
}

// CreateResult is the outcome of a Create batch. Status is "error" only
// when zero drafts succeeded; partial success stays "success" with a
// non-empty Errors list.
type CreateResult struct {
	Status    string       `json:"status"`
	Message   string       `json:"message"`
	TaskCount int          `json:"task_count"`
	Errors    []DraftError `json:"errors"`
}

// ReadResult is the outcome of a Read call
type ReadResult struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Tasks   []*models.Task `json:"tasks"`
	Count   int            `json:"count"`
}

// FailedUpdate reports one failed item from an Update batch
type FailedUpdate struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// UpdateOutcome splits an Update batch into its per-item results
type UpdateOutcome struct {
	SuccessfulUpdates []*models.Task `json:"successful_updates"`
	FailedUpdates     []FailedUpdate `json:"failed_updates"`
}

// UpdateResult is the outcome of an Update batch
type UpdateResult struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Results UpdateOutcome `json:"results"`
}

// FailedDelete reports one failed item from a Delete batch
type FailedDelete struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// DeleteOutcome splits a Delete batch into its per-item results
type DeleteOutcome struct {
	SuccessfulDeletes []string       `json:"successful_deletes"`
	FailedDeletes     []FailedDelete `json:"failed_deletes"`
}

// DeleteResult is the outcome of a Delete batch. Status is "success"
// when at least one delete succeeded.
type DeleteResult struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Results DeleteOutcome `json:"results"`
}
