package preferences

import (
	"strings"

	"github.com/quillworks/quill-agent/internal/domain"
)

// Field names accepted by ApplyUpdates. Anything else in an update map is
// silently ignored; the model invents field names from time to time.
const (
	fieldPurpose    = "purpose_statement"
	fieldStyle      = "preferred_feedback_style"
	fieldGoals      = "long_term_goals"
	fieldChallenges = "known_challenges"
	fieldGlossary   = "personal_glossary"
)

// ApplyUpdates merges an extracted preference delta into the current record
// and returns the new record plus the names of fields that actually changed.
// The input record is not mutated. Scalars are replaced, lists are unioned
// (existing order first, no duplicates), and glossary entries are add-only:
// an existing definition is never overwritten by this path.
//
// An empty changed list is a valid, successful outcome.
func ApplyUpdates(current *domain.UserPreferences, updates map[string]any) (*domain.UserPreferences, []string) {
	out := current.Clone()
	changed := make([]string, 0, len(updates))

	if v, ok := stringValue(updates, fieldPurpose); ok {
		if v != "" && v != out.PurposeStatement {
			out.PurposeStatement = v
			changed = append(changed, fieldPurpose)
		}
	}

	if v, ok := stringValue(updates, fieldStyle); ok {
		style := domain.FeedbackStyle(strings.ToLower(v))
		if style.Valid() && style != out.PreferredFeedbackStyle {
			out.PreferredFeedbackStyle = style
			changed = append(changed, fieldStyle)
		}
	}

	if merged, did := unionList(out.LongTermGoals, updates[fieldGoals]); did {
		out.LongTermGoals = merged
		changed = append(changed, fieldGoals)
	}

	if merged, did := unionList(out.KnownChallenges, updates[fieldChallenges]); did {
		out.KnownChallenges = merged
		changed = append(changed, fieldChallenges)
	}

	if raw, ok := updates[fieldGlossary].(map[string]any); ok {
		if out.PersonalGlossary == nil {
			out.PersonalGlossary = map[string]string{}
		}
		added := false
		for term, def := range raw {
			if _, exists := out.PersonalGlossary[term]; exists {
				continue
			}
			if s, ok := def.(string); ok && s != "" {
				out.PersonalGlossary[term] = s
				added = true
			}
		}
		if added {
			changed = append(changed, fieldGlossary)
		}
	}

	return out, changed
}

func stringValue(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// unionList appends genuinely-new items to existing. The update value may be
// a list or a single string.
func unionList(existing []string, update any) ([]string, bool) {
	var incoming []string
	switch t := update.(type) {
	case nil:
		return existing, false
	case string:
		incoming = []string{t}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				incoming = append(incoming, s)
			}
		}
	case []string:
		incoming = t
	default:
		return existing, false
	}

	seen := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		seen[item] = struct{}{}
	}

	out := append([]string(nil), existing...)
	added := false
	for _, item := range incoming {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
		added = true
	}
	return out, added
}
