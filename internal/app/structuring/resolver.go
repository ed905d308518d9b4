package structuring

import (
	"strings"
	"unicode"

	"github.com/quillworks/quill-agent/internal/domain"
)

// Resolve maps a candidate section label, as produced by the model, onto one
// of the template's canonical section names. The precedence is load-bearing:
//
//  1. exact match against a canonical name
//  2. case-insensitive match against a canonical name
//  3. case-insensitive match against any alias
//  4. snake_case candidate converted to Title Case, exact match retry
//  5. pass the candidate through unchanged
//
// Aliases must never shadow a canonical match, and the snake_case conversion
// is a last resort, not a primary strategy. With an empty template every
// candidate lands on domain.FallbackSection.
func Resolve(candidate string, template domain.Template) string {
	if template.IsEmpty() {
		return domain.FallbackSection
	}

	if _, ok := template.Sections[candidate]; ok {
		return candidate
	}

	// Canonical names in sorted order so ties resolve the same way on
	// every call.
	names := template.SectionNames()

	for _, name := range names {
		if strings.EqualFold(name, candidate) {
			return name
		}
	}

	for _, name := range names {
		for _, alias := range template.Sections[name].Aliases {
			if strings.EqualFold(alias, candidate) {
				return name
			}
		}
	}

	if strings.Contains(candidate, "_") {
		titled := snakeToTitle(candidate)
		if _, ok := template.Sections[titled]; ok {
			return titled
		}
	}

	return candidate
}

// snakeToTitle turns "daily_events" into "Daily Events".
func snakeToTitle(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	runes := []rune(strings.ToLower(w))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
