package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quillworks/quill-agent/internal/app/structuring"
	"github.com/quillworks/quill-agent/internal/domain"
	"github.com/quillworks/quill-agent/internal/observability"
)

// Analyzer extracts preference deltas from natural language and owns their
// persistence. It is the only write path for preferences; callers must not
// re-persist what it returns, or a stale copy could clobber a fresh one.
type Analyzer struct {
	gen   domain.Generator
	store domain.PreferenceStore
}

func NewAnalyzer(gen domain.Generator, store domain.PreferenceStore) *Analyzer {
	return &Analyzer{gen: gen, store: store}
}

// UpdateFromText asks the generator for a preference delta in the given
// text, applies it, and persists the result if anything changed. Extraction
// failures degrade to "no updates"; only persistence failures are errors.
func (a *Analyzer) UpdateFromText(ctx context.Context, userID domain.UserID, text string) ([]string, error) {
	if userID == "" {
		return nil, domain.ErrMissingIdentity
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	log := observability.LoggerFromContext(ctx).With("user_id", userID)

	current, err := a.store.GetPreferences(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("loading preferences: %w", err)
		}
		current = domain.DefaultPreferences(userID)
	}

	raw, err := a.gen.Generate(ctx, buildExtractionPrompt(text, current))
	if err != nil {
		log.Warn("preference extraction failed, no updates", "error", err)
		return nil, nil
	}

	updates, err := structuring.ParseJSONObject(raw)
	if err != nil {
		log.Warn("preference delta unparseable, no updates", "error", err)
		return nil, nil
	}

	next, changed := ApplyUpdates(current, updates)
	if len(changed) == 0 {
		return nil, nil
	}

	if err := a.store.SetPreferences(ctx, next); err != nil {
		return nil, fmt.Errorf("saving preferences: %w", err)
	}

	log.Info("preferences updated", "changed_fields", changed)
	return changed, nil
}

func buildExtractionPrompt(text string, current *domain.UserPreferences) string {
	var b strings.Builder
	b.WriteString("Extract journaling preference updates from the text below, if any.\n\n")
	b.WriteString("Respond with a single JSON object using only these fields:\n")
	b.WriteString("- \"purpose_statement\": string, why the user journals\n")
	b.WriteString("- \"preferred_feedback_style\": one of supportive, detailed, brief, challenging\n")
	b.WriteString("- \"long_term_goals\": array of strings\n")
	b.WriteString("- \"known_challenges\": array of strings\n")
	b.WriteString("- \"personal_glossary\": object mapping a personal term to its meaning\n\n")
	b.WriteString("Omit any field the text says nothing about. Respond with {} if there is nothing to update.\n\n")

	if len(current.LongTermGoals) > 0 {
		fmt.Fprintf(&b, "Known goals: %s\n", strings.Join(current.LongTermGoals, "; "))
	}
	if len(current.KnownChallenges) > 0 {
		fmt.Fprintf(&b, "Known challenges: %s\n", strings.Join(current.KnownChallenges, "; "))
	}

	b.WriteString("\nText:\n")
	b.WriteString(text)
	return b.String()
}
