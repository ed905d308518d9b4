package memory

import (
	"context"
	"sync"
	"time"

	"github.com/quillworks/quill-agent/internal/domain"
)

// PreferenceStore is an in-memory domain.PreferenceStore.
type PreferenceStore struct {
	mu    sync.RWMutex
	prefs map[domain.UserID]*domain.UserPreferences
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{
		prefs: make(map[domain.UserID]*domain.UserPreferences),
	}
}

func (s *PreferenceStore) GetPreferences(_ context.Context, userID domain.UserID) (*domain.UserPreferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *PreferenceStore) SetPreferences(_ context.Context, prefs *domain.UserPreferences) error {
	if prefs == nil || prefs.UserID == "" {
		return domain.ErrMissingIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := prefs.Clone()
	stored.UpdatedAt = time.Now()
	s.prefs[prefs.UserID] = stored
	return nil
}
