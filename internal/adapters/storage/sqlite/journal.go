package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillworks/quill-agent/internal/domain"
)

func (s *Store) GetDraft(ctx context.Context, sessionID domain.SessionID) (*domain.Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, data, finalized, created_at, updated_at
		 FROM drafts WHERE session_id = ?`, sessionID)
	return scanDraft(row)
}

func (s *Store) CreateDraft(ctx context.Context, sessionID domain.SessionID, userID domain.UserID) (*domain.Draft, error) {
	if sessionID == "" || userID == "" {
		return nil, domain.ErrMissingIdentity
	}

	now := fmtTime(time.Now())
	// Idempotent: a racing first turn keeps the existing row.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO drafts (session_id, user_id, data, finalized, created_at, updated_at)
		 VALUES (?, ?, '{}', 0, ?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		sessionID, userID, now, now)
	if err != nil {
		return nil, fmt.Errorf("creating draft: %w", err)
	}
	return s.GetDraft(ctx, sessionID)
}

func (s *Store) UpdateDraftData(ctx context.Context, sessionID domain.SessionID, data domain.DraftData) (*domain.Draft, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding draft data: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET data = ?, finalized = 0, updated_at = ? WHERE session_id = ?`,
		string(encoded), fmtTime(time.Now()), sessionID)
	if err != nil {
		return nil, fmt.Errorf("updating draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}
	return s.GetDraft(ctx, sessionID)
}

// FinalizeDraft inserts the entry and clears the draft in one transaction.
func (s *Store) FinalizeDraft(ctx context.Context, sessionID domain.SessionID, entry *domain.Entry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrMissingIdentity
	}

	structured, err := json.Marshal(entry.StructuredData)
	if err != nil {
		return fmt.Errorf("encoding entry data: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning finalize: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE drafts SET data = '{}', finalized = 1, updated_at = ? WHERE session_id = ?`,
		fmtTime(time.Now()), sessionID)
	if err != nil {
		return fmt.Errorf("clearing draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (id, user_id, session_id, title, structured_data, raw_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.SessionID, entry.Title,
		string(structured), entry.RawText, fmtTime(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}

	return tx.Commit()
}

func (s *Store) ListEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, session_id, title, structured_data, raw_text, created_at
		 FROM entries WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return collectEntries(rows)
}

// SearchEntries does a case-insensitive substring match over titles and the
// stored section content.
func (s *Store) SearchEntries(ctx context.Context, userID domain.UserID, query string, limit int) ([]*domain.Entry, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return s.ListEntriesByUser(ctx, userID, limit)
	}
	if limit <= 0 {
		limit = -1
	}

	pattern := "%" + strings.ToLower(q) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, session_id, title, structured_data, raw_text, created_at
		 FROM entries
		 WHERE user_id = ?
		   AND (lower(title) LIKE ? OR lower(structured_data) LIKE ?)
		 ORDER BY created_at DESC LIMIT ?`,
		userID, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching entries: %w", err)
	}
	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]*domain.Entry, error) {
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		var entry domain.Entry
		var structured, createdAt string
		err := rows.Scan(&entry.ID, &entry.UserID, &entry.SessionID, &entry.Title,
			&structured, &entry.RawText, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if err := json.Unmarshal([]byte(structured), &entry.StructuredData); err != nil {
			return nil, fmt.Errorf("decoding entry data: %w", err)
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

func scanDraft(row *sql.Row) (*domain.Draft, error) {
	var draft domain.Draft
	var data, createdAt, updatedAt string
	err := row.Scan(&draft.SessionID, &draft.UserID, &data, &draft.Finalized, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading draft: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &draft.Data); err != nil {
		return nil, fmt.Errorf("decoding draft data: %w", err)
	}
	if draft.Data == nil {
		draft.Data = domain.DraftData{}
	}
	if draft.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if draft.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &draft, nil
}
