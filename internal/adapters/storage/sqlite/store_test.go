package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillworks/quill-agent/internal/adapters/storage/sqlite"
	"github.com/quillworks/quill-agent/internal/domain"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionAndMessageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	now := time.Now()
	session := &domain.Session{ID: "s1", UserID: "u1", Title: "morning", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateSession(ctx, session))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u1"), got.UserID)
	assert.Equal(t, "morning", got.Title)

	_, err = s.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	base := time.Now()
	for i, content := range []string{"one", "two", "three"} {
		require.NoError(t, s.AppendMessage(ctx, &domain.Message{
			ID:        domain.MessageID(content),
			SessionID: "s1",
			Role:      domain.RoleUser,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	msgs, err := s.GetMessagesBySession(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content, "limit keeps the newest, in chronological order")
	assert.Equal(t, "three", msgs[1].Content)
}

func TestFinalizeDraftIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.CreateDraft(ctx, "s1", "u1")
	require.NoError(t, err)

	data := domain.DraftData{
		"Gratitude": domain.ListContent("coffee", "sun"),
		"Summary":   domain.TextContent("a good day"),
	}
	draft, err := s.UpdateDraftData(ctx, "s1", data)
	require.NoError(t, err)
	assert.Equal(t, data, draft.Data)

	entry := &domain.Entry{
		ID:             "e1",
		UserID:         "u1",
		SessionID:      "s1",
		Title:          "a good day",
		StructuredData: data,
		RawText:        "raw",
		CreatedAt:      time.Now(),
	}
	require.NoError(t, s.FinalizeDraft(ctx, "s1", entry))

	draft, err = s.GetDraft(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, draft.Data)
	assert.True(t, draft.Finalized)

	entries, err := s.ListEntriesByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, data, entries[0].StructuredData)

	t.Run("missing draft leaves no entry behind", func(t *testing.T) {
		err := s.FinalizeDraft(ctx, "ghost", &domain.Entry{ID: "e2", UserID: "u1", SessionID: "ghost"})
		assert.ErrorIs(t, err, domain.ErrNotFound)

		entries, err := s.ListEntriesByUser(ctx, "u1", 0)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestSearchEntries(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	seed := func(session domain.SessionID, id domain.EntryID, title string, data domain.DraftData) {
		_, err := s.CreateDraft(ctx, session, "u1")
		require.NoError(t, err)
		require.NoError(t, s.FinalizeDraft(ctx, session, &domain.Entry{
			ID: id, UserID: "u1", SessionID: session, Title: title,
			StructuredData: data, CreatedAt: time.Now(),
		}))
	}

	seed("s1", "e1", "Garden notes", domain.DraftData{"Ideas": domain.TextContent("plant tomatoes")})
	seed("s2", "e2", "Work log", domain.DraftData{"Ideas": domain.TextContent("refactor the parser")})

	hits, err := s.SearchEntries(ctx, "u1", "TOMATO", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, domain.EntryID("e1"), hits[0].ID)

	hits, err = s.SearchEntries(ctx, "u1", "garden", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1, "title matches count too")

	hits, err = s.SearchEntries(ctx, "u1", "", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2, "empty query lists everything")
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.GetPreferences(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	prefs := domain.DefaultPreferences("u1")
	prefs.LongTermGoals = []string{"run a 10k"}
	require.NoError(t, s.SetPreferences(ctx, prefs))

	got, err := s.GetPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"run a 10k"}, got.LongTermGoals)
	assert.Equal(t, domain.FeedbackSupportive, got.PreferredFeedbackStyle)

	prefs.PurposeStatement = "clarity"
	require.NoError(t, s.SetPreferences(ctx, prefs))
	got, err = s.GetPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "clarity", got.PurposeStatement)
}

func seedTask(t *testing.T, s *sqlite.Store, id domain.TaskID, user domain.UserID, priority int) {
	t.Helper()
	require.NoError(t, s.CreateTask(context.Background(), &domain.Task{
		ID: id, UserID: user, Title: string(id), Priority: priority,
	}))
}

func TestTaskOwnershipFailsClosed(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedTask(t, s, "t1", "u1", 1)

	_, err := s.GetTask(ctx, "u2", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = s.DeleteTask(ctx, "u2", "t1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.GetTask(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.Title)
}

func TestNextPriority(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	next, err := s.NextPriority(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	seedTask(t, s, "t1", "u1", 1)
	seedTask(t, s, "t2", "u1", 2)
	seedTask(t, s, "other", "u2", 7)

	next, err = s.NextPriority(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, next, "other users' priorities do not leak in")
}

func TestReorderSwap(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedTask(t, s, "t1", "u1", 1)
	seedTask(t, s, "t2", "u1", 2)

	err := s.Reorder(ctx, "u1", []domain.TaskPriority{
		{TaskID: "t2", Priority: 1},
		{TaskID: "t1", Priority: 2},
	})
	require.NoError(t, err)

	tasks, err := s.ListTasks(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskID("t2"), tasks[0].ID)
	assert.Equal(t, domain.TaskID("t1"), tasks[1].ID)
}

func TestReorderAboveCurrentMax(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedTask(t, s, "t1", "u1", 1)
	seedTask(t, s, "t2", "u1", 2)

	// Final priorities above the current maximum must not collide with
	// the staging range of a sibling.
	err := s.Reorder(ctx, "u1", []domain.TaskPriority{
		{TaskID: "t1", Priority: 5},
		{TaskID: "t2", Priority: 4},
	})
	require.NoError(t, err)

	tasks, err := s.ListTasks(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskID("t2"), tasks[0].ID)
	assert.Equal(t, 4, tasks[0].Priority)
	assert.Equal(t, domain.TaskID("t1"), tasks[1].ID)
	assert.Equal(t, 5, tasks[1].Priority)
}

func TestReorderRollsBackOnCollision(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedTask(t, s, "t1", "u1", 1)
	seedTask(t, s, "t2", "u1", 2)
	seedTask(t, s, "t3", "u1", 3)

	// t3 is untouched and already holds priority 3.
	err := s.Reorder(ctx, "u1", []domain.TaskPriority{
		{TaskID: "t1", Priority: 3},
	})
	require.Error(t, err)

	tasks, err := s.ListTasks(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for i, task := range tasks {
		assert.Equal(t, i+1, task.Priority, "original ordering survives the failed reorder")
	}
}

func TestReorderUnknownTaskFailsClosed(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedTask(t, s, "t1", "u1", 1)

	err := s.Reorder(ctx, "u1", []domain.TaskPriority{
		{TaskID: "t1", Priority: 2},
		{TaskID: "ghost", Priority: 1},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := s.GetTask(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Priority)
}
