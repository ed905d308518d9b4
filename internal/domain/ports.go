package domain

import "context"

// Generator is the opaque language model call. Output has no structural
// contract; callers must parse defensively. Implementations are expected to
// bound latency with the caller's context.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TemplateStore supplies a user's journal template. It never fails: a user
// without a template gets an empty one, which routes all content to
// FallbackSection.
type TemplateStore interface {
	GetTemplate(ctx context.Context, userID UserID) Template
}

// DraftStore persists the per-session draft and turns it into entries.
type DraftStore interface {
	GetDraft(ctx context.Context, sessionID SessionID) (*Draft, error)
	CreateDraft(ctx context.Context, sessionID SessionID, userID UserID) (*Draft, error)
	UpdateDraftData(ctx context.Context, sessionID SessionID, data DraftData) (*Draft, error)

	// FinalizeDraft persists the entry and clears the draft's data in one
	// atomic step. On failure neither side takes effect.
	FinalizeDraft(ctx context.Context, sessionID SessionID, entry *Entry) error
}

// EntryStore reads back finalized entries.
type EntryStore interface {
	ListEntriesByUser(ctx context.Context, userID UserID, limit int) ([]*Entry, error)
	SearchEntries(ctx context.Context, userID UserID, query string, limit int) ([]*Entry, error)
}

// PreferenceStore persists user preference records. GetPreferences returns
// ErrNotFound for users with no record yet.
type PreferenceStore interface {
	GetPreferences(ctx context.Context, userID UserID) (*UserPreferences, error)
	SetPreferences(ctx context.Context, prefs *UserPreferences) error
}

// TaskStore persists tasks, always scoped by user. Operations on a task that
// exists but belongs to another user return ErrNotFound.
type TaskStore interface {
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, userID UserID, taskID TaskID) (*Task, error)
	ListTasks(ctx context.Context, userID UserID, includeCompleted bool) ([]*Task, error)
	GetPending(ctx context.Context, userID UserID) ([]*Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, userID UserID, taskID TaskID) error

	// NextPriority returns one past the user's current highest priority.
	NextPriority(ctx context.Context, userID UserID) (int, error)

	// Reorder applies a bulk priority reassignment. Implementations with a
	// uniqueness constraint must move the affected tasks through a disjoint
	// temporary range first so no intermediate state collides.
	Reorder(ctx context.Context, userID UserID, order []TaskPriority) error
}

// SessionStore persists sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	ListSessionsByUser(ctx context.Context, userID UserID, limit int) ([]*Session, error)
}

// MessageStore persists the append-only message timeline of a session.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg *Message) error
	GetMessagesBySession(ctx context.Context, sessionID SessionID, limit int) ([]*Message, error)
}
