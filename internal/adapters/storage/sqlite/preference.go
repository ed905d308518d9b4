package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quillworks/quill-agent/internal/domain"
)

func (s *Store) GetPreferences(ctx context.Context, userID domain.UserID) (*domain.UserPreferences, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM preferences WHERE user_id = ?`, userID)

	var data, updatedAt string
	err := row.Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading preferences: %w", err)
	}

	var prefs domain.UserPreferences
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		return nil, fmt.Errorf("decoding preferences: %w", err)
	}
	prefs.UserID = userID
	if prefs.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (s *Store) SetPreferences(ctx context.Context, prefs *domain.UserPreferences) error {
	if prefs == nil || prefs.UserID == "" {
		return domain.ErrMissingIdentity
	}

	encoded, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO preferences (user_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		prefs.UserID, string(encoded), fmtTime(time.Now()))
	if err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	return nil
}
