package journal

import (
	"context"

	"github.com/quillworks/quill-agent/internal/domain"
)

const defaultListLimit = 20

// Service reads back finalized entries.
type Service struct {
	store domain.EntryStore
}

func NewService(store domain.EntryStore) *Service {
	return &Service{store: store}
}

// GetUserJournal returns the last `limit` entries for a user, newest first.
// If limit <= 0, a reasonable default is used.
func (s *Service) GetUserJournal(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Entry, error) {
	if userID == "" {
		return nil, domain.ErrMissingIdentity
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.store.ListEntriesByUser(ctx, userID, limit)
}

// Search finds entries whose title or section content contains the query,
// case-insensitively.
func (s *Service) Search(ctx context.Context, userID domain.UserID, query string, limit int) ([]*domain.Entry, error) {
	if userID == "" {
		return nil, domain.ErrMissingIdentity
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.store.SearchEntries(ctx, userID, query, limit)
}
