package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TWRT/task-manager/internal/models"
)

// TaskFilter selects tasks for ListTasks. An empty AssignedTo lists every task.
type TaskFilter struct {
	AssignedTo string
}

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const taskColumns = `id, title, description, assigned_to, assigned_by, priority, status,
	due_date, created_at, updated_at, version`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var (
		t                             models.Task
		dueDate, createdAt, updatedAt string
	)
	err := row.Scan(
		&t.Id,
		&t.Title,
		&t.Description,
		&t.AssignedTo,
		&t.AssignedBy,
		&t.Priority,
		&t.Status,
		&dueDate,
		&createdAt,
		&updatedAt,
		&t.Version,
	)
	if err != nil {
		return nil, err
	}
	if t.DueDate, err = parseTime(dueDate); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTask returns the task with its stages and notes, or ErrNotFound.
func (r *TaskRepository) LoadTask(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}

	if err := loadChildren(ctx, r.db, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns matching tasks newest-created first.
func (r *TaskRepository) ListTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if filter.AssignedTo != "" {
		query += ` WHERE assigned_to = ?`
		args = append(args, filter.AssignedTo)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	rows.Close()

	for i := range tasks {
		if err := loadChildren(ctx, r.db, &tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func loadChildren(ctx context.Context, q queryer, task *models.Task) error {
	stageRows, err := q.QueryContext(ctx,
		`SELECT name, completed, completed_at, approved_by FROM task_stages WHERE task_id = ? ORDER BY position`,
		task.Id,
	)
	if err != nil {
		return fmt.Errorf("load stages for %s: %w", task.Id, err)
	}
	defer stageRows.Close()

	task.Stages = nil
	for stageRows.Next() {
		var (
			s           models.Stage
			completedAt sql.NullString
			approvedBy  sql.NullString
		)
		if err := stageRows.Scan(&s.Name, &s.Completed, &completedAt, &approvedBy); err != nil {
			return fmt.Errorf("scan stage: %w", err)
		}
		if completedAt.Valid {
			at, err := parseTime(completedAt.String)
			if err != nil {
				return fmt.Errorf("scan stage: %w", err)
			}
			s.CompletedAt = &at
		}
		s.ApprovedBy = approvedBy.String
		task.Stages = append(task.Stages, s)
	}
	if err := stageRows.Err(); err != nil {
		return fmt.Errorf("load stages for %s: %w", task.Id, err)
	}

	noteRows, err := q.QueryContext(ctx,
		`SELECT content, created_by, created_at FROM task_notes WHERE task_id = ? ORDER BY position`,
		task.Id,
	)
	if err != nil {
		return fmt.Errorf("load notes for %s: %w", task.Id, err)
	}
	defer noteRows.Close()

	task.Notes = nil
	for noteRows.Next() {
		var (
			n         models.Note
			createdAt string
			err       error
		)
		if err := noteRows.Scan(&n.Content, &n.CreatedBy, &createdAt); err != nil {
			return fmt.Errorf("scan note: %w", err)
		}
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return fmt.Errorf("scan note: %w", err)
		}
		task.Notes = append(task.Notes, n)
	}
	return noteRows.Err()
}

// SaveTask stores the whole task in one transaction. A task with Version 0 is
// inserted; otherwise the stored version must equal task.Version or
// ErrVersionConflict is returned. On success task.Version is advanced.
func (r *TaskRepository) SaveTask(ctx context.Context, task *models.Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	next := task.Version + 1
	if task.Version == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.Id,
			task.Title,
			task.Description,
			task.AssignedTo,
			task.AssignedBy,
			task.Priority,
			task.Status,
			formatTime(task.DueDate),
			formatTime(task.CreatedAt),
			formatTime(task.UpdatedAt),
			next,
		)
		if err != nil {
			return fmt.Errorf("insert task %s: %w", task.Id, err)
		}
	} else {
		result, err := tx.ExecContext(ctx, `
			UPDATE tasks SET title = ?, description = ?, assigned_to = ?, priority = ?, status = ?,
				due_date = ?, updated_at = ?, version = ?
			WHERE id = ? AND version = ?`,
			task.Title,
			task.Description,
			task.AssignedTo,
			task.Priority,
			task.Status,
			formatTime(task.DueDate),
			formatTime(task.UpdatedAt),
			next,
			task.Id,
			task.Version,
		)
		if err != nil {
			return fmt.Errorf("update task %s: %w", task.Id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update task %s: %w", task.Id, err)
		}
		if n == 0 {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, task.Id).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("update task %s: %w", task.Id, ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("update task %s: %w", task.Id, err)
			}
			return fmt.Errorf("update task %s: %w", task.Id, ErrVersionConflict)
		}
	}

	if err := replaceChildren(ctx, tx, task); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit task %s: %w", task.Id, err)
	}
	task.Version = next
	return nil
}

func replaceChildren(ctx context.Context, tx *sql.Tx, task *models.Task) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_stages WHERE task_id = ?`, task.Id); err != nil {
		return fmt.Errorf("clear stages: %w", err)
	}
	for i, s := range task.Stages {
		var completedAt sql.NullString
		if s.CompletedAt != nil {
			completedAt = sql.NullString{String: formatTime(*s.CompletedAt), Valid: true}
		}
		approvedBy := sql.NullString{String: s.ApprovedBy, Valid: s.ApprovedBy != ""}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO task_stages (task_id, position, name, completed, completed_at, approved_by) VALUES (?, ?, ?, ?, ?, ?)`,
			task.Id, i, s.Name, s.Completed, completedAt, approvedBy,
		)
		if err != nil {
			return fmt.Errorf("insert stage %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_notes WHERE task_id = ?`, task.Id); err != nil {
		return fmt.Errorf("clear notes: %w", err)
	}
	for i, n := range task.Notes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO task_notes (task_id, position, content, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
			task.Id, i, n.Content, n.CreatedBy, formatTime(n.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert note %d: %w", i, err)
		}
	}
	return nil
}

// DeleteTask removes the task with its stages and notes.
func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_stages WHERE task_id = ?`, id); err != nil {
		return fmt.Errorf("delete stages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_notes WHERE task_id = ?`, id); err != nil {
		return fmt.Errorf("delete notes: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}
