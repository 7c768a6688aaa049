package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/taskforge/taskforge/pkg/api"
)

// TaskStore implements api.TaskStore on database/sql
type TaskStore struct {
	db *DB
}

// NewTaskStore creates a task store on the given connection.
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskColumns = "id, title, description, done, user_id, created_at, updated_at"

func scanTask(row interface{ Scan(...interface{}) error }) (*api.Task, error) {
	var task api.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Done,
		&task.UserID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask inserts a new task and fills in its assigned ID and timestamps.
func (s *TaskStore) CreateTask(ctx context.Context, task *api.Task) error {
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	if s.db.Dialect() == DialectPostgreSQL {
		query := s.db.Rebind(`INSERT INTO tasks (title, description, done, user_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
		err := s.db.QueryRowContext(ctx, query,
			task.Title, task.Description, task.Done, task.UserID, task.CreatedAt, task.UpdatedAt,
		).Scan(&task.ID)
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return nil
	}

	query := s.db.Rebind(`INSERT INTO tasks (title, description, done, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	result, err := s.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Done, task.UserID, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted task id: %w", err)
	}
	task.ID = id
	return nil
}

// GetTask fetches a task by primary key.
func (s *TaskStore) GetTask(ctx context.Context, id int64) (*api.Task, error) {
	query := s.db.Rebind("SELECT " + taskColumns + " FROM tasks WHERE id = ?")
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, api.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListTasksByUser returns one user's tasks, newest first.
func (s *TaskStore) ListTasksByUser(ctx context.Context, userID int64, skip, limit int) ([]*api.Task, error) {
	query := s.db.Rebind("SELECT " + taskColumns + " FROM tasks WHERE user_id = ? ORDER BY id DESC LIMIT ? OFFSET ?")
	rows, err := s.db.QueryContext(ctx, query, userID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListAllTasks returns every user's tasks, newest first. Admin only at the
// handler layer.
func (s *TaskStore) ListAllTasks(ctx context.Context, skip, limit int) ([]*api.Task, error) {
	query := s.db.Rebind("SELECT " + taskColumns + " FROM tasks ORDER BY id DESC LIMIT ? OFFSET ?")
	rows, err := s.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]*api.Task, error) {
	tasks := make([]*api.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTask persists title, description, and done state.
func (s *TaskStore) UpdateTask(ctx context.Context, task *api.Task) error {
	task.UpdatedAt = time.Now().UTC()

	query := s.db.Rebind("UPDATE tasks SET title = ?, description = ?, done = ?, updated_at = ? WHERE id = ?")
	result, err := s.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Done, task.UpdatedAt, task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return api.ErrTaskNotFound
	}
	return nil
}

// DeleteTask removes a task by primary key.
func (s *TaskStore) DeleteTask(ctx context.Context, id int64) error {
	query := s.db.Rebind("DELETE FROM tasks WHERE id = ?")
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return api.ErrTaskNotFound
	}
	return nil
}

// Stats aggregates completion counts for one user, or all users when
// userID is 0.
func (s *TaskStore) Stats(ctx context.Context, userID int64) (*api.TaskStats, error) {
	stats := &api.TaskStats{Scope: "all"}

	var row *sql.Row
	if userID > 0 {
		stats.Scope = "user"
		query := s.db.Rebind(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN done THEN 1 ELSE 0 END), 0)
			FROM tasks WHERE user_id = ?`)
		row = s.db.QueryRowContext(ctx, query, userID)
	} else {
		query := `SELECT COUNT(*), COALESCE(SUM(CASE WHEN done THEN 1 ELSE 0 END), 0) FROM tasks`
		row = s.db.QueryRowContext(ctx, query)
	}

	if err := row.Scan(&stats.Total, &stats.Completed); err != nil {
		return nil, fmt.Errorf("failed to aggregate task stats: %w", err)
	}

	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		rate := float64(stats.Completed) / float64(stats.Total) * 100
		stats.CompletionRate = math.Round(rate*10) / 10
	}
	return stats, nil
}
