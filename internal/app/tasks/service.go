package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillworks/quill-agent/internal/domain"
	"github.com/quillworks/quill-agent/internal/observability"
)

// Service holds task logic on top of a domain.TaskStore. Every operation is
// scoped by user; the store reports tasks owned by someone else as absent.
type Service struct {
	store domain.TaskStore
	now   func() time.Time
	newID func() domain.TaskID
}

func NewService(store domain.TaskStore) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: func() domain.TaskID { return domain.TaskID(uuid.NewString()) },
	}
}

type CreateInput struct {
	Title           string
	Description     string
	DueDate         *time.Time
	SourceSessionID domain.SessionID
}

func (s *Service) Create(ctx context.Context, userID domain.UserID, in CreateInput) (*domain.Task, error) {
	if userID == "" {
		return nil, domain.ErrMissingIdentity
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	priority, err := s.store.NextPriority(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("assigning priority: %w", err)
	}

	task := &domain.Task{
		ID:              s.newID(),
		UserID:          userID,
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		Priority:        priority,
		DueDate:         in.DueDate,
		SourceSessionID: in.SourceSessionID,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	observability.LoggerFromContext(ctx).Info("task created",
		"user_id", userID, "task_id", task.ID, "priority", task.Priority)
	return task, nil
}

func (s *Service) List(ctx context.Context, userID domain.UserID, includeCompleted bool) ([]*domain.Task, error) {
	if userID == "" {
		return nil, domain.ErrMissingIdentity
	}
	return s.store.ListTasks(ctx, userID, includeCompleted)
}

func (s *Service) Complete(ctx context.Context, userID domain.UserID, taskID domain.TaskID) (*domain.Task, error) {
	task, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsCompleted {
		return task, nil
	}

	now := s.now()
	task.IsCompleted = true
	task.CompletedAt = &now
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("completing task: %w", err)
	}
	return task, nil
}

// CompleteByTitle completes the first open task whose title matches the
// given one by case-insensitive substring, in either direction. When nothing
// matches, the user's current open titles come back so the caller can show
// what exists.
func (s *Service) CompleteByTitle(ctx context.Context, userID domain.UserID, title string) (*domain.Task, []string, error) {
	needle := strings.ToLower(strings.TrimSpace(title))
	if needle == "" {
		return nil, nil, fmt.Errorf("task title is required")
	}

	open, err := s.store.GetPending(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing open tasks: %w", err)
	}

	for _, task := range open {
		candidate := strings.ToLower(task.Title)
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			done, err := s.Complete(ctx, userID, task.ID)
			return done, nil, err
		}
	}

	titles := make([]string, 0, len(open))
	for _, task := range open {
		titles = append(titles, task.Title)
	}
	return nil, titles, domain.ErrNotFound
}

type UpdateInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	ClearDue    bool
}

func (s *Service) Update(ctx context.Context, userID domain.UserID, taskID domain.TaskID, in UpdateInput) (*domain.Task, error) {
	task, err := s.store.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		task.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		task.Description = strings.TrimSpace(*in.Description)
	}
	if in.ClearDue {
		task.DueDate = nil
	} else if in.DueDate != nil {
		task.DueDate = in.DueDate
	}

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}
	return task, nil
}

func (s *Service) Delete(ctx context.Context, userID domain.UserID, taskID domain.TaskID) error {
	return s.store.DeleteTask(ctx, userID, taskID)
}

// Reorder bulk-reassigns priorities. The store carries the two-phase
// temporary-range protocol; this layer only validates the request shape.
func (s *Service) Reorder(ctx context.Context, userID domain.UserID, order []domain.TaskPriority) error {
	if userID == "" {
		return domain.ErrMissingIdentity
	}
	if len(order) == 0 {
		return nil
	}

	seen := make(map[domain.TaskID]struct{}, len(order))
	for _, assignment := range order {
		if _, dup := seen[assignment.TaskID]; dup {
			return fmt.Errorf("task %s appears twice in reorder request", assignment.TaskID)
		}
		seen[assignment.TaskID] = struct{}{}
	}

	return s.store.Reorder(ctx, userID, order)
}
