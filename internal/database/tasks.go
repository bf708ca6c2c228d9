package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tasky-bot/tasky/internal/models"
)

// TaskFilter narrows a per-user task listing. Nil fields are not applied.
// Tags is a logical AND: a task matches only if it carries every listed tag.
type TaskFilter struct {
	WorkingDt *time.Time
	DueDt     *time.Time
	Status    *models.TaskStatus
	Priority  *models.TaskPriority
	Tags      []string
}

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, status, due_dt, working_dt, duration_mins, priority, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.DueDt,
		task.WorkingDt,
		task.DurationMins,
		task.Priority,
		pq.Array(task.Tags),
		time.Now().UTC(),
	).Scan(&task.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByIDAndUser retrieves a task by ID, scoped to the owning user.
// A task owned by another user is reported as ErrNotFound.
func (r *TaskRepository) GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Task, error) {
	query := `
		SELECT id, user_id, title, description, status, due_dt, working_dt, duration_mins, priority, tags, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListByUser retrieves tasks for a user, narrowed by the given filter.
// Results are always scoped to the owning user.
func (r *TaskRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*models.Task, error) {
	query := `
		SELECT id, user_id, title, description, status, due_dt, working_dt, duration_mins, priority, tags, created_at, updated_at
		FROM tasks
		WHERE user_id = $1
	`
	args := []any{userID}
	argIndex := 2

	if filter.WorkingDt != nil {
		query += fmt.Sprintf(" AND working_dt = $%d", argIndex)
		args = append(args, *filter.WorkingDt)
		argIndex++
	}

	if filter.DueDt != nil {
		query += fmt.Sprintf(" AND due_dt = $%d", argIndex)
		args = append(args, *filter.DueDt)
		argIndex++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, string(*filter.Status))
		argIndex++
	}

	if filter.Priority != nil {
		query += fmt.Sprintf(" AND priority = $%d", argIndex)
		args = append(args, int(*filter.Priority))
		argIndex++
	}

	if len(filter.Tags) > 0 {
		query += fmt.Sprintf(" AND tags @> $%d", argIndex)
		args = append(args, pq.Array(filter.Tags))
		argIndex++
	}

	query += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Update updates an existing task, scoped to the owning user.
// Every successful update stamps a new updated_at.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $3, description = $4, status = $5, due_dt = $6, working_dt = $7, duration_mins = $8, priority = $9, tags = $10, updated_at = $11
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.DueDt,
		task.WorkingDt,
		task.DurationMins,
		task.Priority,
		pq.Array(task.Tags),
		now,
	).Scan(&task.UpdatedAt)

	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// Delete deletes a task, scoped to the owning user
func (r *TaskRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListDueOn retrieves a user's tasks due on the given calendar day (UTC)
func (r *TaskRepository) ListDueOn(ctx context.Context, userID uuid.UUID, day time.Time) ([]*models.Task, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := `
		SELECT id, user_id, title, description, status, due_dt, working_dt, duration_mins, priority, tags, created_at, updated_at
		FROM tasks
		WHERE user_id = $1 AND due_dt >= $2 AND due_dt < $3
		ORDER BY due_dt
	`

	rows, err := r.db.QueryContext(ctx, query, userID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks due on %s: %w", dayStart.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var tags pq.StringArray
	var updatedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.DueDt,
		&task.WorkingDt,
		&task.DurationMins,
		&task.Priority,
		&tags,
		&task.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Tags are materialized as a non-nil slice so callers always see a list
	task.Tags = []string(tags)
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if updatedAt.Valid {
		task.UpdatedAt = &updatedAt.Time
	}

	return task, nil
}
