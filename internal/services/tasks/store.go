package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tasky-bot/tasky/internal/database"
	"github.com/tasky-bot/tasky/internal/models"
	"github.com/tasky-bot/tasky/internal/validation"
)

// Draft is one task to create. Title is required; everything else falls
// back to the documented defaults.
type Draft struct {
	Title        string   `json:"title"`
	Description  *string  `json:"description,omitempty"`
	Status       string   `json:"status,omitempty"`
	DueDt        string   `json:"due_dt,omitempty"`
	WorkingDt    string   `json:"working_dt,omitempty"`
	DurationMins *int     `json:"duration_mins,omitempty"`
	Priority     *int     `json:"priority,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// Update is one partial task mutation. Nil fields are left untouched.
type Update struct {
	TaskID       string   `json:"task_id"`
	Title        *string  `json:"title,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Status       *string  `json:"status,omitempty"`
	DueDt        *string  `json:"due_dt,omitempty"`
	WorkingDt    *string  `json:"working_dt,omitempty"`
	DurationMins *int     `json:"duration_mins,omitempty"`
	Priority     *int     `json:"priority,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// Filters narrows a Read call. Date values use the same two accepted
// formats as Create; tags match as a logical AND.
type Filters struct {
	WorkingDt string   `json:"working_dt,omitempty"`
	DueDt     string   `json:"due_dt,omitempty"`
	Status    string   `json:"status,omitempty"`
	Priority  *int     `json:"priority,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Store provides per-user batch CRUD over tasks. Every operation is
// scoped to a single owner; cross-user access is never possible.
type Store struct {
	repo   database.TaskRepositoryInterface
	logger *zap.Logger
}

// NewStore creates a new task store
func NewStore(repo database.TaskRepositoryInterface, logger *zap.Logger) *Store {
	return &Store{repo: repo, logger: logger}
}

// Create persists a batch of drafts for owner. Each draft succeeds or
// fails independently; a storage failure aborts the remainder.
func (s *Store) Create(ctx context.Context, drafts []Draft, owner uuid.UUID) CreateResult {
	result := CreateResult{Status: StatusSuccess, Errors: []DraftError{}}

	for i, draft := range drafts {
		task, err := buildTask(draft, owner)
		if err != nil {
			result.Errors = append(result.Errors, DraftError{
				DraftIndex:   i,
				Title:        draft.Title,
				ErrorMessage: err.Error(),
			})
			continue
		}

		if err := s.repo.Create(ctx, task); err != nil {
			s.logger.Error("task create failed",
				zap.String("user_id", owner.String()),
				zap.Error(err))
			return CreateResult{
				Status:  StatusError,
				Message: fmt.Sprintf("Database error: %v", err),
				Errors:  result.Errors,
			}
		}

		result.TaskCount++
	}

	if result.TaskCount == 0 && len(drafts) > 0 {
		result.Status = StatusError
		result.Message = "no tasks created"
	} else {
		result.Message = fmt.Sprintf("created %d of %d tasks", result.TaskCount, len(drafts))
	}

	s.logger.Info("task batch created",
		zap.String("user_id", owner.String()),
		zap.Int("created", result.TaskCount),
		zap.Int("failed", len(result.Errors)))

	return result
}

// Read lists owner's tasks narrowed by filters. An invalid date filter
// aborts the whole read.
func (s *Store) Read(ctx context.Context, filters Filters, owner uuid.UUID) ReadResult {
	repoFilter, err := buildFilter(filters)
	if err != nil {
		return ReadResult{Status: StatusError, Message: err.Error(), Tasks: []*models.Task{}}
	}

	found, err := s.repo.ListByUser(ctx, owner, repoFilter)
	if err != nil {
		s.logger.Error("task read failed",
			zap.String("user_id", owner.String()),
			zap.Error(err))
		return ReadResult{
			Status:  StatusError,
			Message: fmt.Sprintf("Database error: %v", err),
			Tasks:   []*models.Task{},
		}
	}

	if found == nil {
		found = []*models.Task{}
	}

	return ReadResult{Status: StatusSuccess, Tasks: found, Count: len(found)}
}

// ApplyUpdates mutates a batch of owner's tasks. Each item validates
// and writes independently; an unknown or unowned task_id fails only
// that item.
func (s *Store) ApplyUpdates(ctx context.Context, updates []Update, owner uuid.UUID) UpdateResult {
	outcome := UpdateOutcome{
		SuccessfulUpdates: []*models.Task{},
		FailedUpdates:     []FailedUpdate{},
	}

	for _, upd := range updates {
		task, failed, dbErr := s.applyOne(ctx, upd, owner)
		if dbErr != nil {
			s.logger.Error("task update failed",
				zap.String("user_id", owner.String()),
				zap.Error(dbErr))
			return UpdateResult{
				Status:  StatusError,
				Message: fmt.Sprintf("Database error: %v", dbErr),
				Results: outcome,
			}
		}
		if failed != nil {
			outcome.FailedUpdates = append(outcome.FailedUpdates, *failed)
			continue
		}
		outcome.SuccessfulUpdates = append(outcome.SuccessfulUpdates, task)
	}

	result := UpdateResult{Results: outcome}
	if len(outcome.SuccessfulUpdates) == 0 && len(updates) > 0 {
		result.Status = StatusError
		result.Message = "no tasks updated"
	} else {
		result.Status = StatusSuccess
		result.Message = fmt.Sprintf("updated %d of %d tasks", len(outcome.SuccessfulUpdates), len(updates))
	}

	return result
}

// applyOne returns exactly one of: the updated task, a per-item
// failure, or a storage error that should abort the batch.
func (s *Store) applyOne(ctx context.Context, upd Update, owner uuid.UUID) (*models.Task, *FailedUpdate, error) {
	taskID, err := uuid.Parse(upd.TaskID)
	if err != nil {
		return nil, &FailedUpdate{TaskID: upd.TaskID, Reason: "not found or not owned"}, nil
	}

	if !hasUpdateFields(upd) {
		return nil, &FailedUpdate{TaskID: upd.TaskID, Reason: "No fields provided for update"}, nil
	}

	task, err := s.repo.GetByIDAndUser(ctx, taskID, owner)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &FailedUpdate{TaskID: upd.TaskID, Reason: "not found or not owned"}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if reason := mergeUpdate(task, upd); reason != "" {
		return nil, &FailedUpdate{TaskID: upd.TaskID, Reason: reason}, nil
	}

	err = s.repo.Update(ctx, task)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &FailedUpdate{TaskID: upd.TaskID, Reason: "not found or not owned"}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	return task, nil, nil
}

// Delete removes a batch of owner's tasks by id. A malformed id fails
// only that item rather than aborting the batch.
func (s *Store) Delete(ctx context.Context, taskIDs []string, owner uuid.UUID) DeleteResult {
	outcome := DeleteOutcome{
		SuccessfulDeletes: []string{},
		FailedDeletes:     []FailedDelete{},
	}

	for _, raw := range taskIDs {
		taskID, err := uuid.Parse(raw)
		if err != nil {
			outcome.FailedDeletes = append(outcome.FailedDeletes, FailedDelete{
				TaskID: raw,
				Reason: fmt.Sprintf("invalid task id: %s", raw),
			})
			continue
		}

		err = s.repo.Delete(ctx, taskID, owner)
		if errors.Is(err, database.ErrNotFound) {
			outcome.FailedDeletes = append(outcome.FailedDeletes, FailedDelete{
				TaskID: raw,
				Reason: "not found or unauthorized",
			})
			continue
		}
		if err != nil {
			s.logger.Error("task delete failed",
				zap.String("user_id", owner.String()),
				zap.Error(err))
			return DeleteResult{
				Status:  StatusError,
				Message: fmt.Sprintf("Database error: %v", err),
				Results: outcome,
			}
		}

		outcome.SuccessfulDeletes = append(outcome.SuccessfulDeletes, raw)
	}

	result := DeleteResult{Results: outcome}
	if len(outcome.SuccessfulDeletes) == 0 && len(taskIDs) > 0 {
		result.Status = StatusError
		result.Message = "no tasks deleted"
	} else {
		result.Status = StatusSuccess
		result.Message = fmt.Sprintf("deleted %d of %d tasks", len(outcome.SuccessfulDeletes), len(taskIDs))
	}

	return result
}

// buildTask validates a draft and materializes it as a persistable task
func buildTask(draft Draft, owner uuid.UUID) (*models.Task, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	if utf8.RuneCountInString(title) > models.MaxTaskTitleLength {
		return nil, fmt.Errorf("title exceeds %d characters", models.MaxTaskTitleLength)
	}

	status := models.TaskStatusPending
	if draft.Status != "" {
		if err := validation.ValidateTaskStatus(draft.Status); err != nil {
			return nil, err
		}
		status = models.TaskStatus(draft.Status)
	}

	priority := models.TaskPriorityMedium
	if draft.Priority != nil {
		if err := validation.ValidateTaskPriority(*draft.Priority); err != nil {
			return nil, err
		}
		priority = models.TaskPriority(*draft.Priority)
	}

	durationMins := models.DefaultTaskDurationMins
	if draft.DurationMins != nil {
		if *draft.DurationMins < 0 {
			return nil, errors.New("duration_mins must not be negative")
		}
		durationMins = *draft.DurationMins
	}

	dueDt, err := parseOptionalDate(draft.DueDt)
	if err != nil {
		return nil, err
	}
	workingDt, err := parseOptionalDate(draft.WorkingDt)
	if err != nil {
		return nil, err
	}

	tags := draft.Tags
	if tags == nil {
		tags = []string{}
	}

	return &models.Task{
		ID:           uuid.New(),
		UserID:       owner,
		Title:        title,
		Description:  draft.Description,
		Status:       status,
		DueDt:        dueDt,
		WorkingDt:    workingDt,
		DurationMins: durationMins,
		Priority:     priority,
		Tags:         tags,
	}, nil
}

// mergeUpdate validates and folds the requested changes into task.
// It returns a non-empty reason on the first invalid field.
func mergeUpdate(task *models.Task, upd Update) string {
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return "title is required"
		}
		if utf8.RuneCountInString(title) > models.MaxTaskTitleLength {
			return fmt.Sprintf("title exceeds %d characters", models.MaxTaskTitleLength)
		}
		task.Title = title
	}

	if upd.Status != nil {
		if err := validation.ValidateTaskStatus(*upd.Status); err != nil {
			return err.Error()
		}
		task.Status = models.TaskStatus(*upd.Status)
	}

	if upd.Priority != nil {
		if err := validation.ValidateTaskPriority(*upd.Priority); err != nil {
			return err.Error()
		}
		task.Priority = models.TaskPriority(*upd.Priority)
	}

	if upd.DueDt != nil {
		parsed, err := validation.ParseTaskDate(*upd.DueDt)
		if err != nil {
			return err.Error()
		}
		task.DueDt = &parsed
	}

	if upd.WorkingDt != nil {
		parsed, err := validation.ParseTaskDate(*upd.WorkingDt)
		if err != nil {
			return err.Error()
		}
		task.WorkingDt = &parsed
	}

	if upd.DurationMins != nil {
		if *upd.DurationMins < 0 {
			return "duration_mins must not be negative"
		}
		task.DurationMins = *upd.DurationMins
	}

	if upd.Description != nil {
		task.Description = upd.Description
	}

	if upd.Tags != nil {
		task.Tags = upd.Tags
	}

	return ""
}

func hasUpdateFields(upd Update) bool {
	return upd.Title != nil ||
		upd.Description != nil ||
		upd.Status != nil ||
		upd.DueDt != nil ||
		upd.WorkingDt != nil ||
		upd.DurationMins != nil ||
		upd.Priority != nil ||
		upd.Tags != nil
}

func buildFilter(filters Filters) (database.TaskFilter, error) {
	var repoFilter database.TaskFilter

	if filters.WorkingDt != "" {
		parsed, err := validation.ParseTaskDate(filters.WorkingDt)
		if err != nil {
			return database.TaskFilter{}, err
		}
		repoFilter.WorkingDt = &parsed
	}

	if filters.DueDt != "" {
		parsed, err := validation.ParseTaskDate(filters.DueDt)
		if err != nil {
			return database.TaskFilter{}, err
		}
		repoFilter.DueDt = &parsed
	}

	if filters.Status != "" {
		if err := validation.ValidateTaskStatus(filters.Status); err != nil {
			return database.TaskFilter{}, err
		}
		status := models.TaskStatus(filters.Status)
		repoFilter.Status = &status
	}

	if filters.Priority != nil {
		if err := validation.ValidateTaskPriority(*filters.Priority); err != nil {
			return database.TaskFilter{}, err
		}
		priority := models.TaskPriority(*filters.Priority)
		repoFilter.Priority = &priority
	}

	repoFilter.Tags = filters.Tags

	return repoFilter, nil
}

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := validation.ParseTaskDate(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
