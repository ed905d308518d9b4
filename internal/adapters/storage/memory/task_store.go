package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quillworks/quill-agent/internal/domain"
)

// TaskStore is an in-memory domain.TaskStore. It enforces the same per-user
// priority uniqueness the sqlite backend gets from its constraint, so tests
// against this store exercise the same reorder contract.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[domain.TaskID]*domain.Task
	now   func() time.Time
}

func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[domain.TaskID]*domain.Task),
		now:   time.Now,
	}
}

func (s *TaskStore) CreateTask(_ context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" || task.UserID == "" {
		return domain.ErrMissingIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	if err := s.checkPriorityFree(task.UserID, task.Priority, task.ID); err != nil {
		return err
	}

	now := s.now()
	stored := *task
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.tasks[task.ID] = &stored
	*task = stored
	return nil
}

func (s *TaskStore) GetTask(_ context.Context, userID domain.UserID, taskID domain.TaskID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owned(userID, taskID)
}

func (s *TaskStore) ListTasks(_ context.Context, userID domain.UserID, includeCompleted bool) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Task
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		if !includeCompleted && t.IsCompleted {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (s *TaskStore) GetPending(ctx context.Context, userID domain.UserID) ([]*domain.Task, error) {
	return s.ListTasks(ctx, userID, false)
}

func (s *TaskStore) UpdateTask(_ context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.owned(task.UserID, task.ID)
	if err != nil {
		return err
	}
	if task.Priority != current.Priority {
		if err := s.checkPriorityFree(task.UserID, task.Priority, task.ID); err != nil {
			return err
		}
	}

	stored := *task
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = s.now()
	s.tasks[task.ID] = &stored
	*task = stored
	return nil
}

func (s *TaskStore) DeleteTask(_ context.Context, userID domain.UserID, taskID domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(userID, taskID); err != nil {
		return err
	}
	delete(s.tasks, taskID)
	return nil
}

func (s *TaskStore) NextPriority(_ context.Context, userID domain.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, t := range s.tasks {
		if t.UserID == userID && t.Priority > max {
			max = t.Priority
		}
	}
	return max + 1, nil
}

// Reorder validates that every task belongs to the user and that the final
// assignment is collision-free, then applies it. The map swap is atomic
// under the lock, which is this store's equivalent of the two-phase write.
func (s *TaskStore) Reorder(_ context.Context, userID domain.UserID, order []domain.TaskPriority) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	affected := make(map[domain.TaskID]struct{}, len(order))
	finals := make(map[int]struct{}, len(order))
	for _, assignment := range order {
		if _, err := s.owned(userID, assignment.TaskID); err != nil {
			return err
		}
		if _, dup := finals[assignment.Priority]; dup {
			return fmt.Errorf("duplicate priority %d in reorder request", assignment.Priority)
		}
		finals[assignment.Priority] = struct{}{}
		affected[assignment.TaskID] = struct{}{}
	}

	// Untouched tasks must not collide with the final assignment either.
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		if _, isAffected := affected[t.ID]; isAffected {
			continue
		}
		if _, taken := finals[t.Priority]; taken {
			return fmt.Errorf("priority %d already held by task %s", t.Priority, t.ID)
		}
	}

	now := s.now()
	for _, assignment := range order {
		t := s.tasks[assignment.TaskID]
		t.Priority = assignment.Priority
		t.UpdatedAt = now
	}
	return nil
}

// owned returns the task only when it belongs to userID. A task owned by
// someone else is reported as absent, never as forbidden.
func (s *TaskStore) owned(userID domain.UserID, taskID domain.TaskID) (*domain.Task, error) {
	t, ok := s.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *TaskStore) checkPriorityFree(userID domain.UserID, priority int, exclude domain.TaskID) error {
	for _, t := range s.tasks {
		if t.UserID == userID && t.ID != exclude && t.Priority == priority {
			return fmt.Errorf("priority %d already held by task %s", priority, t.ID)
		}
	}
	return nil
}
