package structuring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillworks/quill-agent/internal/domain"
)

func TestMerge(t *testing.T) {
	t.Run("absent key inserts", func(t *testing.T) {
		out := Merge(domain.DraftData{}, domain.DraftData{
			"Summary": domain.TextContent("short day"),
		})
		assert.Equal(t, "short day", out["Summary"].Text)
	})

	t.Run("text and text concatenate with blank line", func(t *testing.T) {
		existing := domain.DraftData{"General Reflection": domain.TextContent("Had a great walk this morning")}
		out := Merge(existing, domain.DraftData{"General Reflection": domain.TextContent("Also finished my report")})
		assert.Equal(t, "Had a great walk this morning\n\nAlso finished my report", out["General Reflection"].Text)
	})

	t.Run("list and list concatenate keeping duplicates", func(t *testing.T) {
		existing := domain.DraftData{"Ideas": domain.ListContent("a", "b")}
		out := Merge(existing, domain.DraftData{"Ideas": domain.ListContent("b", "c")})
		assert.Equal(t, []string{"a", "b", "b", "c"}, out["Ideas"].Items)
	})

	t.Run("text promotes to list when incoming is a list", func(t *testing.T) {
		existing := domain.DraftData{"Ideas": domain.TextContent("first thought")}
		out := Merge(existing, domain.DraftData{"Ideas": domain.ListContent("second", "third")})
		require.True(t, out["Ideas"].List)
		assert.Equal(t, []string{"first thought", "second", "third"}, out["Ideas"].Items)
	})

	t.Run("text appends to existing list", func(t *testing.T) {
		existing := domain.DraftData{"Ideas": domain.ListContent("one")}
		out := Merge(existing, domain.DraftData{"Ideas": domain.TextContent("two")})
		assert.Equal(t, []string{"one", "two"}, out["Ideas"].Items)
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		existing := domain.DraftData{"Ideas": domain.ListContent("one")}
		incoming := domain.DraftData{"Ideas": domain.ListContent("two")}
		_ = Merge(existing, incoming)
		assert.Equal(t, []string{"one"}, existing["Ideas"].Items)
		assert.Equal(t, []string{"two"}, incoming["Ideas"].Items)
	})

	t.Run("disjoint keys are order-independent", func(t *testing.T) {
		base := domain.DraftData{"Summary": domain.TextContent("s")}
		r1 := domain.DraftData{"Gratitude": domain.TextContent("sun")}
		r2 := domain.DraftData{"Ideas": domain.ListContent("x")}

		ab := Merge(Merge(base, r1), r2)
		ba := Merge(Merge(base, r2), r1)
		assert.Equal(t, ab, ba)
	})

	t.Run("no data loss", func(t *testing.T) {
		existing := domain.DraftData{
			"Summary": domain.TextContent("original text"),
			"Ideas":   domain.ListContent("keep me"),
		}
		out := Merge(existing, domain.DraftData{
			"Summary": domain.TextContent("new text"),
			"Ideas":   domain.ListContent("and me"),
		})
		assert.Contains(t, out["Summary"].Text, "original text")
		assert.Contains(t, out["Ideas"].Items, "keep me")
	})
}
