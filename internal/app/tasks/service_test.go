package tasks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillworks/quill-agent/internal/adapters/storage/memory"
	"github.com/quillworks/quill-agent/internal/app/tasks"
	"github.com/quillworks/quill-agent/internal/domain"
)

func newService() *tasks.Service {
	return tasks.NewService(memory.NewTaskStore())
}

func TestCreateAssignsDensePriorities(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	a, err := svc.Create(ctx, "u1", tasks.CreateInput{Title: "first"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, "u1", tasks.CreateInput{Title: "second"})
	require.NoError(t, err)

	assert.Equal(t, 1, a.Priority)
	assert.Equal(t, 2, b.Priority)

	// Another user's priorities start from scratch.
	c, err := svc.Create(ctx, "u2", tasks.CreateInput{Title: "other"})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Priority)
}

func TestOwnershipFailsClosed(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	task, err := svc.Create(ctx, "owner", tasks.CreateInput{Title: "private"})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, "intruder", task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "foreign task must look absent, not forbidden")

	err = svc.Delete(ctx, "intruder", task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The owner can still complete it.
	done, err := svc.Complete(ctx, "owner", task.ID)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
	assert.NotNil(t, done.CompletedAt)
}

func TestCompleteByTitle(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.Create(ctx, "u1", tasks.CreateInput{Title: "Buy groceries"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", tasks.CreateInput{Title: "Write report"})
	require.NoError(t, err)

	t.Run("substring match either direction", func(t *testing.T) {
		done, _, err := svc.CompleteByTitle(ctx, "u1", "groceries")
		require.NoError(t, err)
		assert.Equal(t, "Buy groceries", done.Title)

		done, _, err = svc.CompleteByTitle(ctx, "u1", "please write report today")
		require.NoError(t, err)
		assert.Equal(t, "Write report", done.Title)
	})

	t.Run("no match enumerates open titles", func(t *testing.T) {
		_, err := svc.Create(ctx, "u1", tasks.CreateInput{Title: "Call dentist"})
		require.NoError(t, err)

		_, titles, err := svc.CompleteByTitle(ctx, "u1", "paint the fence")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, []string{"Call dentist"}, titles)
	})
}

func TestReorderSwap(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	a, err := svc.Create(ctx, "u1", tasks.CreateInput{Title: "a"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, "u1", tasks.CreateInput{Title: "b"})
	require.NoError(t, err)

	// Swapping (1,2) to (2,1) must not trip the uniqueness rule.
	err = svc.Reorder(ctx, "u1", []domain.TaskPriority{
		{TaskID: a.ID, Priority: 2},
		{TaskID: b.ID, Priority: 1},
	})
	require.NoError(t, err)

	listed, err := svc.List(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "b", listed[0].Title)
	assert.Equal(t, "a", listed[1].Title)
}

func TestReorderRejectsBadRequests(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	a, err := svc.Create(ctx, "u1", tasks.CreateInput{Title: "a"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", tasks.CreateInput{Title: "b"})
	require.NoError(t, err)

	t.Run("duplicate task ids", func(t *testing.T) {
		err := svc.Reorder(ctx, "u1", []domain.TaskPriority{
			{TaskID: a.ID, Priority: 3},
			{TaskID: a.ID, Priority: 4},
		})
		assert.Error(t, err)
	})

	t.Run("collision with untouched task", func(t *testing.T) {
		err := svc.Reorder(ctx, "u1", []domain.TaskPriority{
			{TaskID: a.ID, Priority: 2}, // b already holds 2
		})
		assert.Error(t, err)
	})

	t.Run("foreign task id", func(t *testing.T) {
		err := svc.Reorder(ctx, "someone-else", []domain.TaskPriority{
			{TaskID: a.ID, Priority: 9},
		})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}
