package memory

import (
	"context"
	"sync"

	"github.com/quillworks/quill-agent/internal/domain"
)

// TemplateStore is an in-memory domain.TemplateStore. Templates are supplied
// externally (seeded at startup or per test); the store itself never errors.
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[domain.UserID]domain.Template
	fallback  domain.Template
}

func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		templates: make(map[domain.UserID]domain.Template),
	}
}

// SetDefault sets the template returned for users without their own.
func (s *TemplateStore) SetDefault(tpl domain.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = tpl
}

// Put stores a user's template.
func (s *TemplateStore) Put(userID domain.UserID, tpl domain.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[userID] = tpl
}

// GetTemplate returns the user's template, the default one, or an empty
// template, in that order. It never fails.
func (s *TemplateStore) GetTemplate(_ context.Context, userID domain.UserID) domain.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tpl, ok := s.templates[userID]; ok {
		return tpl
	}
	return s.fallback
}
