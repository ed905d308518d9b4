package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/quillworks/quill-agent/internal/domain"
)

// JournalStore is an in-memory implementation of domain.DraftStore and
// domain.EntryStore. One store, two interfaces, like the session/message
// pairing: a draft and the entries it produces share a lock so finalize is
// atomic.
type JournalStore struct {
	mu       sync.RWMutex
	drafts   map[domain.SessionID]*domain.Draft
	entries  map[domain.EntryID]*domain.Entry
	byUserID map[domain.UserID][]domain.EntryID
	now      func() time.Time
}

func NewJournalStore() *JournalStore {
	return &JournalStore{
		drafts:   make(map[domain.SessionID]*domain.Draft),
		entries:  make(map[domain.EntryID]*domain.Entry),
		byUserID: make(map[domain.UserID][]domain.EntryID),
		now:      time.Now,
	}
}

func (s *JournalStore) GetDraft(_ context.Context, sessionID domain.SessionID) (*domain.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return snapshotDraft(draft), nil
}

func (s *JournalStore) CreateDraft(_ context.Context, sessionID domain.SessionID, userID domain.UserID) (*domain.Draft, error) {
	if sessionID == "" || userID == "" {
		return nil, domain.ErrMissingIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.drafts[sessionID]; ok {
		return snapshotDraft(existing), nil
	}

	now := s.now()
	draft := &domain.Draft{
		SessionID: sessionID,
		UserID:    userID,
		Data:      domain.DraftData{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.drafts[sessionID] = draft
	return snapshotDraft(draft), nil
}

func (s *JournalStore) UpdateDraftData(_ context.Context, sessionID domain.SessionID, data domain.DraftData) (*domain.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	draft.Data = data.Clone()
	draft.Finalized = false
	draft.UpdatedAt = s.now()
	return snapshotDraft(draft), nil
}

// FinalizeDraft stores the entry and clears the draft under one lock, so no
// reader ever sees the entry without the cleared draft or vice versa.
func (s *JournalStore) FinalizeDraft(_ context.Context, sessionID domain.SessionID, entry *domain.Entry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrMissingIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[sessionID]
	if !ok {
		return domain.ErrNotFound
	}

	stored := *entry
	stored.StructuredData = entry.StructuredData.Clone()
	s.entries[stored.ID] = &stored
	s.byUserID[stored.UserID] = append(s.byUserID[stored.UserID], stored.ID)

	draft.Data = domain.DraftData{}
	draft.Finalized = true
	draft.UpdatedAt = s.now()
	return nil
}

func (s *JournalStore) ListEntriesByUser(_ context.Context, userID domain.UserID, limit int) ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUserID[userID]
	if limit <= 0 || limit > len(ids) {
		limit = len(ids)
	}

	// Newest first.
	out := make([]*domain.Entry, 0, limit)
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		if e, ok := s.entries[ids[i]]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *JournalStore) SearchEntries(_ context.Context, userID domain.UserID, query string, limit int) ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	ids := s.byUserID[userID]
	if limit <= 0 {
		limit = len(ids)
	}

	var out []*domain.Entry
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		e, ok := s.entries[ids[i]]
		if !ok {
			continue
		}
		if q == "" || entryMatches(e, q) {
			out = append(out, e)
		}
	}
	return out, nil
}

func entryMatches(e *domain.Entry, q string) bool {
	if strings.Contains(strings.ToLower(e.Title), q) {
		return true
	}
	for _, content := range e.StructuredData {
		if content.List {
			for _, item := range content.Items {
				if strings.Contains(strings.ToLower(item), q) {
					return true
				}
			}
			continue
		}
		if strings.Contains(strings.ToLower(content.Text), q) {
			return true
		}
	}
	return false
}

func snapshotDraft(d *domain.Draft) *domain.Draft {
	out := *d
	out.Data = d.Data.Clone()
	return &out
}
