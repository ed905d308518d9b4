package journal_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillworks/quill-agent/internal/adapters/storage/memory"
	"github.com/quillworks/quill-agent/internal/app/journal"
	"github.com/quillworks/quill-agent/internal/domain"
)

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("clears draft but preserves entry", func(t *testing.T) {
		store := memory.NewJournalStore()
		messages := memory.NewMessageStore()
		fin := journal.NewFinalizer(store, messages)

		_, err := store.CreateDraft(ctx, "s1", "u1")
		require.NoError(t, err)
		_, err = store.UpdateDraftData(ctx, "s1", domain.DraftData{
			"Summary": domain.TextContent("x"),
		})
		require.NoError(t, err)

		entry, err := fin.Finalize(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "x", entry.StructuredData["Summary"].Text)
		assert.Equal(t, domain.UserID("u1"), entry.UserID)

		draft, err := store.GetDraft(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, draft.Data, "draft must be cleared, not deleted")

		entries, err := store.ListEntriesByUser(ctx, "u1", 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, entry.ID, entries[0].ID)
	})

	t.Run("empty draft is a no-op", func(t *testing.T) {
		store := memory.NewJournalStore()
		fin := journal.NewFinalizer(store, memory.NewMessageStore())

		_, err := store.CreateDraft(ctx, "s1", "u1")
		require.NoError(t, err)

		entry, err := fin.Finalize(ctx, "s1")
		assert.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("missing draft is a no-op", func(t *testing.T) {
		fin := journal.NewFinalizer(memory.NewJournalStore(), memory.NewMessageStore())
		entry, err := fin.Finalize(ctx, "never-seen")
		assert.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("raw text is the user side of the timeline", func(t *testing.T) {
		store := memory.NewJournalStore()
		messages := memory.NewMessageStore()
		fin := journal.NewFinalizer(store, messages)

		require.NoError(t, messages.AppendMessage(ctx, &domain.Message{
			ID: "m1", SessionID: "s1", Role: domain.RoleUser, Content: "first",
		}))
		require.NoError(t, messages.AppendMessage(ctx, &domain.Message{
			ID: "m2", SessionID: "s1", Role: domain.RoleAssistant, Content: "reply",
		}))
		require.NoError(t, messages.AppendMessage(ctx, &domain.Message{
			ID: "m3", SessionID: "s1", Role: domain.RoleUser, Content: "second",
		}))

		_, err := store.CreateDraft(ctx, "s1", "u1")
		require.NoError(t, err)
		_, err = store.UpdateDraftData(ctx, "s1", domain.DraftData{
			"Summary": domain.TextContent("day"),
		})
		require.NoError(t, err)

		entry, err := fin.Finalize(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "first\nsecond", entry.RawText)
	})
}

func TestDeriveTitle(t *testing.T) {
	now := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)

	t.Run("string section wins over list section", func(t *testing.T) {
		title := journal.DeriveTitle(domain.DraftData{
			"A Items":  domain.ListContent("list item"),
			"Zummary":  domain.TextContent("the text one"),
		}, now)
		assert.Equal(t, "the text one", title)
	})

	t.Run("list section used when no strings", func(t *testing.T) {
		title := journal.DeriveTitle(domain.DraftData{
			"Ideas": domain.ListContent("first idea", "second"),
		}, now)
		assert.Equal(t, "first idea", title)
	})

	t.Run("long titles truncate with ellipsis", func(t *testing.T) {
		long := strings.Repeat("a", 80)
		title := journal.DeriveTitle(domain.DraftData{
			"Summary": domain.TextContent(long),
		}, now)
		assert.Equal(t, strings.Repeat("a", 50)+"...", title)
	})

	t.Run("empty draft gets date-stamped placeholder", func(t *testing.T) {
		title := journal.DeriveTitle(domain.DraftData{
			"Summary": domain.TextContent("   "),
		}, now)
		assert.Equal(t, "Journal Entry - 2025-03-09", title)
	})
}
