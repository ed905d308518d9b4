package structuring

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillworks/quill-agent/internal/domain"
	"github.com/quillworks/quill-agent/internal/observability"
)

// Status is the caller-visible outcome of a structuring call.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusNoContent Status = "no_content"
)

// Result is what one structuring pass produced. Fallback is set when the
// generator failed or returned something unparseable and the raw text was
// filed under the fallback section instead.
type Result struct {
	Sections domain.DraftData
	Status   Status
	Fallback bool
}

// Structurer turns free-form user text into template-shaped sections via the
// generator. It is total: generator failures and malformed output degrade to
// a deterministic fallback and never reach the caller as errors.
type Structurer struct {
	gen domain.Generator
}

func NewStructurer(gen domain.Generator) *Structurer {
	return &Structurer{gen: gen}
}

// Structure runs one structuring pass. Empty input is a no-op and does not
// touch the generator.
func (s *Structurer) Structure(ctx context.Context, userText string, template domain.Template) Result {
	if strings.TrimSpace(userText) == "" {
		return Result{Sections: domain.DraftData{}, Status: StatusNoContent}
	}

	log := observability.LoggerFromContext(ctx)

	raw, err := s.gen.Generate(ctx, buildStructuringPrompt(userText, template))
	if err != nil {
		log.Warn("structuring generation failed, using fallback", "error", err)
		return fallbackResult(userText)
	}

	parsed, err := ParseJSONObject(raw)
	if err != nil {
		log.Warn("structuring output unparseable, using fallback", "error", err)
		return fallbackResult(userText)
	}

	sections := make(domain.DraftData, len(parsed))
	for key, value := range parsed {
		resolved := Resolve(key, template)
		content := domain.CoerceContent(value)
		if prev, ok := sections[resolved]; ok {
			// Two candidate labels resolved to the same canonical
			// section; combine rather than drop either.
			content = combine(prev, content)
		}
		sections[resolved] = content
	}

	return Result{Sections: sections, Status: StatusSuccess}
}

func fallbackResult(userText string) Result {
	return Result{
		Sections: domain.DraftData{domain.FallbackSection: domain.TextContent(userText)},
		Status:   StatusSuccess,
		Fallback: true,
	}
}

const maxAliasHints = 3

func buildStructuringPrompt(userText string, template domain.Template) string {
	var b strings.Builder
	b.WriteString("You are structuring a journal entry. Organize the text below into the user's journal sections.\n\n")
	b.WriteString("Sections:\n")

	if template.IsEmpty() {
		fmt.Fprintf(&b, "- %q: anything the user wrote\n", domain.FallbackSection)
	}
	for _, name := range template.SectionNames() {
		def := template.Sections[name]
		fmt.Fprintf(&b, "- %q: %s", name, def.Description)
		if len(def.Aliases) > 0 {
			aliases := def.Aliases
			if len(aliases) > maxAliasHints {
				aliases = aliases[:maxAliasHints]
			}
			fmt.Fprintf(&b, " (hint keywords: %s)", strings.Join(aliases, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nRespond with a single JSON object mapping section names to content. ")
	b.WriteString("A section's content is a string, or an array of strings for list-like sections. ")
	b.WriteString("Only include sections the text actually touches. ")
	b.WriteString("Always include a short \"Summary\" field of at most 120 characters.\n\n")
	b.WriteString("Text:\n")
	b.WriteString(userText)
	return b.String()
}
