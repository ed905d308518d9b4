package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillworks/quill-agent/internal/domain"
	"github.com/quillworks/quill-agent/internal/observability"
)

const (
	titleMaxLen = 50
	titleSuffix = "..."
)

// Finalizer freezes a session's draft into an immutable entry. The draft is
// cleared (not deleted) in the same atomic store operation, so the session
// can begin a new entry immediately.
type Finalizer struct {
	drafts   domain.DraftStore
	messages domain.MessageStore
	now      func() time.Time
	newID    func() domain.EntryID
}

func NewFinalizer(drafts domain.DraftStore, messages domain.MessageStore) *Finalizer {
	return &Finalizer{
		drafts:   drafts,
		messages: messages,
		now:      time.Now,
		newID:    func() domain.EntryID { return domain.EntryID(uuid.NewString()) },
	}
}

// Finalize re-reads the persisted draft (never an in-memory snapshot, which
// may be stale relative to a concurrent turn) and turns it into an entry.
// A missing or empty draft is a no-op, not an error: both entry and error
// come back nil.
func (f *Finalizer) Finalize(ctx context.Context, sessionID domain.SessionID) (*domain.Entry, error) {
	if sessionID == "" {
		return nil, domain.ErrMissingIdentity
	}

	log := observability.LoggerFromContext(ctx).With("session_id", sessionID)

	draft, err := f.drafts.GetDraft(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading draft: %w", err)
	}
	if !draft.Data.HasContent() {
		log.Info("finalize skipped, draft has no content")
		return nil, nil
	}

	now := f.now()
	entry := &domain.Entry{
		ID:             f.newID(),
		UserID:         draft.UserID,
		SessionID:      sessionID,
		Title:          DeriveTitle(draft.Data, now),
		StructuredData: draft.Data.Clone(),
		RawText:        f.rawText(ctx, sessionID),
		CreatedAt:      now,
	}

	// Entry creation and draft clearing are one atomic store operation; a
	// persistence failure rolls both back.
	if err := f.drafts.FinalizeDraft(ctx, sessionID, entry); err != nil {
		return nil, fmt.Errorf("finalizing draft: %w", err)
	}

	log.Info("draft finalized", "entry_id", entry.ID, "title", entry.Title)
	return entry, nil
}

// rawText concatenates the session's user messages as a fallback record of
// what the entry was built from. Best effort: a read failure just yields an
// empty raw text.
func (f *Finalizer) rawText(ctx context.Context, sessionID domain.SessionID) string {
	msgs, err := f.messages.GetMessagesBySession(ctx, sessionID, 0)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("raw text unavailable", "error", err)
		return ""
	}

	var parts []string
	for _, m := range msgs {
		if m.Role == domain.RoleUser {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// DeriveTitle picks the entry title from the first non-empty section value,
// preferring string sections over list sections, scanning section names in
// sorted order so the choice is deterministic. Long titles are truncated to
// 50 characters with an ellipsis. An all-empty draft gets a date-stamped
// placeholder.
func DeriveTitle(data domain.DraftData, now time.Time) string {
	names := data.SectionNames()

	for _, name := range names {
		if c := data[name]; !c.List && !c.IsEmpty() {
			return truncateTitle(c.Text)
		}
	}
	for _, name := range names {
		if c := data[name]; c.List && !c.IsEmpty() {
			return truncateTitle(c.Items[0])
		}
	}
	return "Journal Entry - " + now.Format("2006-01-02")
}

func truncateTitle(s string) string {
	s = strings.TrimSpace(s)
	// First line only; a multi-paragraph section should not bleed newlines
	// into the title.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	}

	runes := []rune(s)
	if len(runes) <= titleMaxLen {
		return s
	}
	return string(runes[:titleMaxLen]) + titleSuffix
}
