package preferences

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quillworks/quill-agent/internal/domain"
)

func TestApplyUpdates(t *testing.T) {
	t.Run("goal union has no duplicates", func(t *testing.T) {
		current := domain.DefaultPreferences("u1")
		current.LongTermGoals = []string{"a"}

		next, changed := ApplyUpdates(current, map[string]any{
			"long_term_goals": []any{"a", "b"},
		})

		assert.Equal(t, []string{"a", "b"}, next.LongTermGoals)
		assert.Equal(t, []string{"long_term_goals"}, changed)

		// Applying the same subset again is a no-op.
		again, changed := ApplyUpdates(next, map[string]any{
			"long_term_goals": []any{"a"},
		})
		assert.Empty(t, changed)
		assert.Equal(t, []string{"a", "b"}, again.LongTermGoals)
	})

	t.Run("single string appends if absent", func(t *testing.T) {
		current := domain.DefaultPreferences("u1")
		next, changed := ApplyUpdates(current, map[string]any{
			"known_challenges": "perfectionism",
		})
		assert.Equal(t, []string{"known_challenges"}, changed)
		assert.Equal(t, []string{"perfectionism"}, next.KnownChallenges)
	})

	t.Run("purpose statement replaces", func(t *testing.T) {
		current := domain.DefaultPreferences("u1")
		current.PurposeStatement = "old"

		next, changed := ApplyUpdates(current, map[string]any{"purpose_statement": "new"})
		assert.Equal(t, "new", next.PurposeStatement)
		assert.Equal(t, []string{"purpose_statement"}, changed)

		_, changed = ApplyUpdates(next, map[string]any{"purpose_statement": "new"})
		assert.Empty(t, changed, "same value is not a change")

		_, changed = ApplyUpdates(next, map[string]any{"purpose_statement": ""})
		assert.Empty(t, changed, "empty value never clears the statement")
	})

	t.Run("feedback style validates against the enum", func(t *testing.T) {
		current := domain.DefaultPreferences("u1")

		next, changed := ApplyUpdates(current, map[string]any{"preferred_feedback_style": "Brief"})
		assert.Equal(t, domain.FeedbackBrief, next.PreferredFeedbackStyle)
		assert.Equal(t, []string{"preferred_feedback_style"}, changed)

		_, changed = ApplyUpdates(next, map[string]any{"preferred_feedback_style": "sarcastic"})
		assert.Empty(t, changed, "unknown style is ignored")
	})

	t.Run("glossary keys are add-only", func(t *testing.T) {
		current := domain.DefaultPreferences("u1")
		current.PersonalGlossary["deep work"] = "original meaning"

		next, changed := ApplyUpdates(current, map[string]any{
			"personal_glossary": map[string]any{
				"deep work": "attempted overwrite",
				"shipping":  "finishing things",
			},
		})
		assert.Equal(t, []string{"personal_glossary"}, changed)
		assert.Equal(t, "original meaning", next.PersonalGlossary["deep work"])
		assert.Equal(t, "finishing things", next.PersonalGlossary["shipping"])
	})

	t.Run("unknown fields are silently ignored", func(t *testing.T) {
		current := domain.DefaultPreferences("u1")
		_, changed := ApplyUpdates(current, map[string]any{
			"favorite_color": "green",
			"mood":           42,
		})
		assert.Empty(t, changed)
	})

	t.Run("input record is not mutated", func(t *testing.T) {
		current := domain.DefaultPreferences("u1")
		current.LongTermGoals = []string{"a"}
		_, _ = ApplyUpdates(current, map[string]any{"long_term_goals": []any{"b"}})
		assert.Equal(t, []string{"a"}, current.LongTermGoals)
	})
}
