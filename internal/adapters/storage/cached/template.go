// Package cached wraps stores with short-lived in-process caches.
package cached

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/quillworks/quill-agent/internal/domain"
)

// TemplateStore memoizes template lookups. Templates are read on every turn
// and change rarely, so a short TTL removes the hot read without a real
// invalidation protocol.
type TemplateStore struct {
	inner domain.TemplateStore
	cache *cache.Cache
}

func NewTemplateStore(inner domain.TemplateStore, ttl time.Duration) *TemplateStore {
	return &TemplateStore{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (s *TemplateStore) GetTemplate(ctx context.Context, userID domain.UserID) domain.Template {
	if v, ok := s.cache.Get(string(userID)); ok {
		if tpl, ok := v.(domain.Template); ok {
			return tpl
		}
	}

	tpl := s.inner.GetTemplate(ctx, userID)
	s.cache.SetDefault(string(userID), tpl)
	return tpl
}
