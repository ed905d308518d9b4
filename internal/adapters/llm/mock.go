package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillworks/quill-agent/internal/domain"
)

// MockGenerator answers every prompt without a model, for local runs and
// demos. It replies with a minimal valid turn that files the user's text
// into the draft.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	// Turn prompts end with the user's message; echo it through the
	// structuring tool so the draft loop works end to end offline.
	if idx := strings.LastIndex(prompt, "New user message:\n"); idx >= 0 {
		text := strings.TrimSpace(prompt[idx+len("New user message:\n"):])
		call := fmt.Sprintf(`{"name": "structure_journal", "arguments": {"text": %q}}`, text)
		return fmt.Sprintf(`{"reply": "I hear you. Tell me more when you're ready.", "tool_calls": [%s]}`, call), nil
	}

	// Structuring prompts end with the text to organize; file it whole
	// under the fallback section.
	if strings.HasPrefix(prompt, "You are structuring a journal entry") {
		if idx := strings.LastIndex(prompt, "Text:\n"); idx >= 0 {
			text := strings.TrimSpace(prompt[idx+len("Text:\n"):])
			return fmt.Sprintf(`{%q: %q}`, domain.FallbackSection, text), nil
		}
	}

	// Extraction prompts expect a bare JSON object.
	return "{}", nil
}
