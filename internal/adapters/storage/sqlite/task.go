package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quillworks/quill-agent/internal/domain"
)

const taskColumns = `id, user_id, title, description, priority, is_completed,
	completed_at, due_date, source_session_id, created_at, updated_at`

func (s *Store) CreateTask(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" || task.UserID == "" {
		return domain.ErrMissingIdentity
	}

	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.Description, task.Priority,
		task.IsCompleted, fmtNullTime(task.CompletedAt), fmtNullTime(task.DueDate),
		task.SourceSessionID, fmtTime(task.CreatedAt), fmtTime(task.UpdatedAt))
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, userID domain.UserID, taskID domain.TaskID) (*domain.Task, error) {
	// Scoping by user means a foreign task reads as absent.
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID)
	task, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return task, err
}

func (s *Store) ListTasks(ctx context.Context, userID domain.UserID, includeCompleted bool) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	if !includeCompleted {
		query += ` AND is_completed = 0`
	}
	query += ` ORDER BY priority ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (s *Store) GetPending(ctx context.Context, userID domain.UserID) ([]*domain.Task, error) {
	return s.ListTasks(ctx, userID, false)
}

func (s *Store) UpdateTask(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrNotFound
	}

	task.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, priority = ?, is_completed = ?,
			completed_at = ?, due_date = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		task.Title, task.Description, task.Priority, task.IsCompleted,
		fmtNullTime(task.CompletedAt), fmtNullTime(task.DueDate), fmtTime(task.UpdatedAt),
		task.ID, task.UserID)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, userID domain.UserID, taskID domain.TaskID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`, taskID, userID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) NextPriority(ctx context.Context, userID domain.UserID) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(priority), 0) + 1 FROM tasks WHERE user_id = ?`, userID)
	var next int
	if err := row.Scan(&next); err != nil {
		return 0, fmt.Errorf("computing next priority: %w", err)
	}
	return next, nil
}

// Reorder reassigns priorities in two phases inside one transaction. The
// UNIQUE(user_id, priority) constraint checks per statement, so the affected
// tasks first move into a range above both the user's current priorities and
// the requested ones, then to their final values. A final value colliding
// with an untouched task trips the constraint and rolls everything back.
func (s *Store) Reorder(ctx context.Context, userID domain.UserID, order []domain.TaskPriority) error {
	if len(order) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(order))
	for _, assignment := range order {
		if _, dup := seen[assignment.Priority]; dup {
			return fmt.Errorf("duplicate priority %d in reorder request", assignment.Priority)
		}
		seen[assignment.Priority] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reorder: %w", err)
	}
	defer tx.Rollback()

	var maxPriority int
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(priority), 0) FROM tasks WHERE user_id = ?`, userID)
	if err := row.Scan(&maxPriority); err != nil {
		return fmt.Errorf("reading max priority: %w", err)
	}
	// The parking range must clear both the current priorities and the
	// requested final ones, otherwise a final value can land on a sibling
	// still parked.
	offset := maxPriority
	for _, assignment := range order {
		if assignment.Priority > offset {
			offset = assignment.Priority
		}
	}
	offset++

	now := fmtTime(time.Now())

	// Phase one: park every affected task in the disjoint range. A zero
	// row count means the task is missing or not the user's; fail closed.
	for _, assignment := range order {
		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET priority = priority + ? WHERE id = ? AND user_id = ?`,
			offset, assignment.TaskID, userID)
		if err != nil {
			return fmt.Errorf("staging task %s: %w", assignment.TaskID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}
	}

	// Phase two: final values.
	for _, assignment := range order {
		_, err := tx.ExecContext(ctx,
			`UPDATE tasks SET priority = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			assignment.Priority, now, assignment.TaskID, userID)
		if err != nil {
			return fmt.Errorf("assigning priority %d to task %s: %w",
				assignment.Priority, assignment.TaskID, err)
		}
	}

	return tx.Commit()
}

func scanTask(scan func(...any) error) (*domain.Task, error) {
	var task domain.Task
	var completedAt, dueDate sql.NullString
	var createdAt, updatedAt string

	err := scan(&task.ID, &task.UserID, &task.Title, &task.Description, &task.Priority,
		&task.IsCompleted, &completedAt, &dueDate, &task.SourceSessionID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	if task.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if task.DueDate, err = parseNullTime(dueDate); err != nil {
		return nil, err
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &task, nil
}
