package structuring

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillworks/quill-agent/internal/domain"
)

// stubGenerator returns a fixed reply (or error) and records the prompts it
// was given.
type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func TestStructure(t *testing.T) {
	ctx := context.Background()
	tpl := testTemplate()

	t.Run("empty input skips the generator", func(t *testing.T) {
		gen := &stubGenerator{}
		res := NewStructurer(gen).Structure(ctx, "   \n\t", tpl)

		assert.Equal(t, StatusNoContent, res.Status)
		assert.Empty(t, res.Sections)
		assert.Empty(t, gen.prompts, "generator must not be called for empty input")
	})

	t.Run("parses fenced JSON and resolves keys", func(t *testing.T) {
		gen := &stubGenerator{reply: "```json\n{\"daily events\": \"walked\", \"Summary\": \"a walk\"}\n```"}
		res := NewStructurer(gen).Structure(ctx, "I walked", tpl)

		require.Equal(t, StatusSuccess, res.Status)
		assert.False(t, res.Fallback)
		assert.Equal(t, "walked", res.Sections["Daily Events"].Text)
		assert.Equal(t, "a walk", res.Sections["Summary"].Text)
	})

	t.Run("list values survive", func(t *testing.T) {
		gen := &stubGenerator{reply: `{"Ideas": ["one", "two"]}`}
		res := NewStructurer(gen).Structure(ctx, "ideas", tpl)

		require.True(t, res.Sections["Ideas"].List)
		assert.Equal(t, []string{"one", "two"}, res.Sections["Ideas"].Items)
	})

	t.Run("generator error falls back to raw text", func(t *testing.T) {
		gen := &stubGenerator{err: errors.New("model unavailable")}
		res := NewStructurer(gen).Structure(ctx, "my whole day", tpl)

		require.Equal(t, StatusSuccess, res.Status)
		assert.True(t, res.Fallback)
		assert.Equal(t, "my whole day", res.Sections[domain.FallbackSection].Text)
	})

	t.Run("malformed output falls back to raw text", func(t *testing.T) {
		gen := &stubGenerator{reply: "I could not produce JSON, sorry!"}
		res := NewStructurer(gen).Structure(ctx, "my whole day", tpl)

		assert.True(t, res.Fallback)
		assert.Equal(t, "my whole day", res.Sections[domain.FallbackSection].Text)
	})

	t.Run("colliding labels combine instead of dropping", func(t *testing.T) {
		gen := &stubGenerator{reply: `{"events": "a", "Daily Events": "b"}`}
		res := NewStructurer(gen).Structure(ctx, "day", tpl)

		got := res.Sections["Daily Events"]
		assert.Contains(t, got.Text, "a")
		assert.Contains(t, got.Text, "b")
	})

	t.Run("prompt enumerates sections and caps alias hints", func(t *testing.T) {
		wide := testTemplate()
		wide.Sections["Daily Events"] = domain.SectionDef{
			Description: "what happened",
			Aliases:     []string{"a1", "a2", "a3", "a4"},
		}
		gen := &stubGenerator{reply: `{}`}
		NewStructurer(gen).Structure(ctx, "hello", wide)

		require.Len(t, gen.prompts, 1)
		prompt := gen.prompts[0]
		assert.Contains(t, prompt, `"Daily Events"`)
		assert.Contains(t, prompt, "a3")
		assert.NotContains(t, prompt, "a4")
		assert.Contains(t, prompt, "Summary")
		assert.Contains(t, prompt, "120")
	})
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]struct {
		in, want string
	}{
		"no fence":         {`{"a":1}`, `{"a":1}`},
		"json fence":       {"```json\n{\"a\":1}\n```", `{"a":1}`},
		"bare fence":       {"```\n{\"a\":1}\n```", `{"a":1}`},
		"surrounding ws":   {"  ```json\n{}\n```  ", `{}`},
		"single line":      {"```{}", `{}`},
		"missing trailing": {"```json\n{\"a\":1}", `{"a":1}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFence(tc.in))
		})
	}
}

func TestParseJSONObject(t *testing.T) {
	t.Run("rejects non-objects", func(t *testing.T) {
		_, err := ParseJSONObject(`["list"]`)
		assert.Error(t, err)
		_, err = ParseJSONObject("plain text")
		assert.Error(t, err)
	})

	t.Run("accepts objects with mixed values", func(t *testing.T) {
		obj, err := ParseJSONObject(`{"a": "x", "b": [1, 2], "c": 3}`)
		require.NoError(t, err)
		assert.Len(t, obj, 3)
	})
}

func TestCoerceContent(t *testing.T) {
	t.Run("numbers and bools in lists become strings", func(t *testing.T) {
		c := domain.CoerceContent([]any{"x", float64(2), true})
		assert.Equal(t, []string{"x", "2", "true"}, c.Items)
	})

	t.Run("nested objects are kept as JSON text", func(t *testing.T) {
		c := domain.CoerceContent(map[string]any{"k": "v"})
		assert.False(t, c.List)
		assert.True(t, strings.Contains(c.Text, `"k"`))
	})
}
