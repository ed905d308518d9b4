// Package firestore persists sessions, messages, drafts and entries in
// Cloud Firestore for the gcp mode. Messages live in a subcollection of
// their session.
package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/quillworks/quill-agent/internal/domain"
)

type Store struct {
	client *firestore.Client
}

func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) messagesCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("messages")
}

func (s *Store) draftDoc(sessionID domain.SessionID) *firestore.DocumentRef {
	return s.client.Collection("drafts").Doc(string(sessionID))
}

func (s *Store) entriesCol() *firestore.CollectionRef {
	return s.client.Collection("entries")
}

// Section content is a string-or-list union, which Firestore's typed
// mapping cannot hold in one field, so draft and entry data travel as JSON
// blobs.

type sessionDoc struct {
	UserID    string    `firestore:"user_id"`
	Title     string    `firestore:"title"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type messageDoc struct {
	SessionID string    `firestore:"session_id"`
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	CreatedAt time.Time `firestore:"created_at"`
}

type draftDoc struct {
	UserID    string    `firestore:"user_id"`
	Data      string    `firestore:"data"`
	Finalized bool      `firestore:"finalized"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type entryDoc struct {
	UserID         string    `firestore:"user_id"`
	SessionID      string    `firestore:"session_id"`
	Title          string    `firestore:"title"`
	StructuredData string    `firestore:"structured_data"`
	RawText        string    `firestore:"raw_text"`
	CreatedAt      time.Time `firestore:"created_at"`
}

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	doc := sessionDoc{
		UserID:    string(session.UserID),
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}

	if _, err := s.sessionDoc(session.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	doc := map[string]interface{}{
		"user_id":    string(session.UserID),
		"title":      session.Title,
		"updated_at": session.UpdatedAt,
	}

	if _, err := s.sessionDoc(session.ID).Set(ctx, doc, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore UpdateSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	return &domain.Session{
		ID:        id,
		UserID:    domain.UserID(doc.UserID),
		Title:     doc.Title,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	q := s.sessionsCol().Where("user_id", "==", string(userID)).OrderBy("updated_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListSessionsByUser: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}

		out = append(out, &domain.Session{
			ID:        domain.SessionID(snap.Ref.ID),
			UserID:    domain.UserID(doc.UserID),
			Title:     doc.Title,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return out, nil
}

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	doc := messageDoc{
		SessionID: string(msg.SessionID),
		Role:      string(msg.Role),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}

	if _, err := s.messagesCol(msg.SessionID).Doc(string(msg.ID)).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

func (s *Store) GetMessagesBySession(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	// Newest-first with a limit, then reversed, so the window keeps the
	// most recent turns.
	q := s.messagesCol(sessionID).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore GetMessagesBySession: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, &domain.Message{
			ID:        domain.MessageID(snap.Ref.ID),
			SessionID: sessionID,
			Role:      domain.Role(doc.Role),
			Content:   doc.Content,
			CreatedAt: doc.CreatedAt,
		})
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) GetDraft(ctx context.Context, sessionID domain.SessionID) (*domain.Draft, error) {
	snap, err := s.draftDoc(sessionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetDraft: %w", err)
	}
	return decodeDraft(sessionID, snap)
}

func (s *Store) CreateDraft(ctx context.Context, sessionID domain.SessionID, userID domain.UserID) (*domain.Draft, error) {
	if sessionID == "" || userID == "" {
		return nil, domain.ErrMissingIdentity
	}

	now := time.Now()
	doc := draftDoc{
		UserID:    string(userID),
		Data:      "{}",
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.draftDoc(sessionID).Create(ctx, doc)
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return nil, fmt.Errorf("firestore CreateDraft: %w", err)
	}
	return s.GetDraft(ctx, sessionID)
}

func (s *Store) UpdateDraftData(ctx context.Context, sessionID domain.SessionID, data domain.DraftData) (*domain.Draft, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding draft data: %w", err)
	}

	_, err = s.draftDoc(sessionID).Update(ctx, []firestore.Update{
		{Path: "data", Value: string(encoded)},
		{Path: "finalized", Value: false},
		{Path: "updated_at", Value: time.Now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore UpdateDraftData: %w", err)
	}
	return s.GetDraft(ctx, sessionID)
}

// FinalizeDraft writes the entry and clears the draft in one Firestore
// transaction.
func (s *Store) FinalizeDraft(ctx context.Context, sessionID domain.SessionID, entry *domain.Entry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrMissingIdentity
	}

	structured, err := json.Marshal(entry.StructuredData)
	if err != nil {
		return fmt.Errorf("encoding entry data: %w", err)
	}

	draftRef := s.draftDoc(sessionID)
	entryRef := s.entriesCol().Doc(string(entry.ID))

	err = s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(draftRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return domain.ErrNotFound
			}
			return err
		}

		if err := tx.Create(entryRef, entryDoc{
			UserID:         string(entry.UserID),
			SessionID:      string(entry.SessionID),
			Title:          entry.Title,
			StructuredData: string(structured),
			RawText:        entry.RawText,
			CreatedAt:      entry.CreatedAt,
		}); err != nil {
			return err
		}

		return tx.Update(draftRef, []firestore.Update{
			{Path: "data", Value: "{}"},
			{Path: "finalized", Value: true},
			{Path: "updated_at", Value: time.Now()},
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("firestore FinalizeDraft: %w", err)
	}
	return nil
}

func (s *Store) ListEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Entry, error) {
	q := s.entriesCol().Where("user_id", "==", string(userID)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.collectEntries(ctx, q)
}

// SearchEntries filters client-side; Firestore has no substring queries.
func (s *Store) SearchEntries(ctx context.Context, userID domain.UserID, query string, limit int) ([]*domain.Entry, error) {
	all, err := s.ListEntriesByUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if limit <= 0 {
		limit = len(all)
	}

	var out []*domain.Entry
	for _, e := range all {
		if len(out) >= limit {
			break
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

func (s *Store) collectEntries(ctx context.Context, q firestore.Query) ([]*domain.Entry, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Entry
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore entries query: %w", err)
		}

		var doc entryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode entryDoc: %w", err)
		}

		entry := &domain.Entry{
			ID:        domain.EntryID(snap.Ref.ID),
			UserID:    domain.UserID(doc.UserID),
			SessionID: domain.SessionID(doc.SessionID),
			Title:     doc.Title,
			RawText:   doc.RawText,
			CreatedAt: doc.CreatedAt,
		}
		if err := json.Unmarshal([]byte(doc.StructuredData), &entry.StructuredData); err != nil {
			return nil, fmt.Errorf("decode entry data: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func decodeDraft(sessionID domain.SessionID, snap *firestore.DocumentSnapshot) (*domain.Draft, error) {
	var doc draftDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode draftDoc: %w", err)
	}

	draft := &domain.Draft{
		SessionID: sessionID,
		UserID:    domain.UserID(doc.UserID),
		Finalized: doc.Finalized,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(doc.Data), &draft.Data); err != nil {
		return nil, fmt.Errorf("decode draft data: %w", err)
	}
	if draft.Data == nil {
		draft.Data = domain.DraftData{}
	}
	return draft, nil
}
