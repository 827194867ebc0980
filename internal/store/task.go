package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tasktrack/apiserver/types"
)

// TaskFilter narrows task queries to an actor's visibility scope.
// A zero filter matches every task.
type TaskFilter struct {
	// AssigneeID limits results to tasks assigned to this user.
	AssigneeID *int

	// SupervisorID limits results to tasks whose assignee is supervised
	// by this admin.
	SupervisorID *int

	// Status limits results to tasks in this lifecycle state.
	Status *types.TaskStatus
}

// TaskRepository handles persistence for tasks.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `t.id, t.title, t.description, t.assigned_to, u.username, t.created_by, t.due_date, t.status, t.completion_report, t.worked_hours, t.attachment_key, t.created_at, t.updated_at`

func scanTask(row interface{ Scan(...any) error }) (types.Task, error) {
	var task types.Task
	var workedHours sql.NullFloat64
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.AssignedTo,
		&task.AssigneeUsername,
		&task.CreatedBy,
		&task.DueDate,
		&task.Status,
		&task.CompletionReport,
		&workedHours,
		&task.AttachmentKey,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if workedHours.Valid {
		task.WorkedHours = &workedHours.Float64
	}
	return task, err
}

// filterClause builds the WHERE clause for a TaskFilter. The supervisor
// scope is a join through the assignee's assigned_admin reference.
func filterClause(filter TaskFilter) (string, []any) {
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		conditions = append(conditions, fmt.Sprintf("t.assigned_to = $%d", len(args)))
	}
	if filter.SupervisorID != nil {
		args = append(args, *filter.SupervisorID)
		conditions = append(conditions, fmt.Sprintf("u.assigned_admin = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns the tasks matching the filter, newest-created first.
func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]types.Task, error) {
	where, args := filterClause(filter)
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		JOIN users u ON u.id = t.assigned_to` + where + `
		ORDER BY t.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]types.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Count returns the number of tasks matching the filter.
func (r *TaskRepository) Count(ctx context.Context, filter TaskFilter) (int, error) {
	where, args := filterClause(filter)
	query := `
		SELECT COUNT(1)
		FROM tasks t
		JOIN users u ON u.id = t.assigned_to` + where

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *TaskRepository) Get(ctx context.Context, id int) (types.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks t
		JOIN users u ON u.id = t.assigned_to
		WHERE t.id = $1`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

// GetForAssignee fetches a task only if it is assigned to the given user.
// Any other caller gets ErrNotFound, so task existence never leaks.
func (r *TaskRepository) GetForAssignee(ctx context.Context, id, userID int) (types.Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks t
		JOIN users u ON u.id = t.assigned_to
		WHERE t.id = $1 AND t.assigned_to = $2`
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = types.StatusPending
	}

	const query = `
		INSERT INTO tasks (title, description, assigned_to, created_by, due_date, status, completion_report, worked_hours, attachment_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.AssignedTo,
		task.CreatedBy,
		task.DueDate,
		task.Status,
		task.CompletionReport,
		task.WorkedHours,
		task.AttachmentKey,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID); err != nil {
		return types.Task{}, err
	}
	return task, nil
}

// Update persists the task's mutable fields. The assignment, creator, and
// creation timestamp never change after creation.
func (r *TaskRepository) Update(ctx context.Context, task types.Task) (types.Task, error) {
	task.UpdatedAt = time.Now()

	const query = `
		UPDATE tasks
		SET title = $1,
			description = $2,
			due_date = $3,
			status = $4,
			completion_report = $5,
			worked_hours = $6,
			attachment_key = $7,
			updated_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.DueDate,
		task.Status,
		task.CompletionReport,
		task.WorkedHours,
		task.AttachmentKey,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return types.Task{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Task{}, err
	}
	if affected == 0 {
		return types.Task{}, ErrNotFound
	}
	return task, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
