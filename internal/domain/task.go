package domain

import "time"

// Task is an action item extracted from conversation. Priority is a dense
// per-user ordering key; stores enforce its uniqueness, which is why bulk
// reordering must go through the two-phase protocol in TaskStore.Reorder.
type Task struct {
	ID              TaskID
	UserID          UserID
	Title           string
	Description     string
	Priority        int
	IsCompleted     bool
	CompletedAt     *time.Time
	DueDate         *time.Time
	SourceSessionID SessionID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TaskPriority is one assignment in a bulk reorder request.
type TaskPriority struct {
	TaskID   TaskID
	Priority int
}
