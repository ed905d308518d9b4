package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillworks/quill-agent/internal/app/dispatch"
	"github.com/quillworks/quill-agent/internal/domain"
	"github.com/quillworks/quill-agent/internal/observability"
)

const historyLimit = 20

const welcomeText = "Hi, I'm Quill. What would you like to get down on paper today?"

// Service runs the conversational loop: one call to SendMessage is one turn.
// Turns on the same session are serialized by an in-process per-session
// lock; the draft's read-modify-write cycle is not safe across concurrent
// turns, and running multiple processes against one session additionally
// requires an external advisory lock per (user_id, session_id).
type Service struct {
	gen          domain.Generator
	sessionStore domain.SessionStore
	messageStore domain.MessageStore
	templates    domain.TemplateStore
	dispatcher   *dispatch.Dispatcher
	now          func() time.Time

	mu    sync.Mutex
	locks map[domain.SessionID]*sync.Mutex
}

func NewService(
	gen domain.Generator,
	sessionStore domain.SessionStore,
	messageStore domain.MessageStore,
	templates domain.TemplateStore,
	dispatcher *dispatch.Dispatcher,
) *Service {
	return &Service{
		gen:          gen,
		sessionStore: sessionStore,
		messageStore: messageStore,
		templates:    templates,
		dispatcher:   dispatcher,
		now:          time.Now,
		locks:        make(map[domain.SessionID]*sync.Mutex),
	}
}

type StartSessionInput struct {
	UserID domain.UserID
	Title  string
}

type StartSessionOutput struct {
	Session *domain.Session
	Welcome *domain.Message
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	if in.UserID == "" {
		return nil, domain.ErrMissingIdentity
	}

	now := s.now()

	log := observability.LoggerFromContext(ctx).With("user_id", in.UserID)
	log.Info("starting new session")

	session := &domain.Session{
		ID:        domain.SessionID(uuid.NewString()),
		UserID:    in.UserID,
		Title:     in.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessionStore.CreateSession(ctx, session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}

	welcome := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		SessionID: session.ID,
		Role:      domain.RoleAssistant,
		Content:   welcomeText,
		CreatedAt: now,
	}

	if err := s.messageStore.AppendMessage(ctx, welcome); err != nil {
		log.Error("failed to append welcome message", "error", err)
		return nil, err
	}

	log.Info("session started", "session_id", session.ID)

	return &StartSessionOutput{Session: session, Welcome: welcome}, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Text      string
}

type SendMessageOutput struct {
	UserMessage      *domain.Message
	AssistantMessage *domain.Message
	Dispatch         *dispatch.Response
}

// SendMessage processes one turn: append the user's message, ask the model
// for a reply plus tool calls, run the tools, and persist the reply.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	if in.SessionID == "" || in.UserID == "" {
		return nil, domain.ErrMissingIdentity
	}

	session, err := s.sessionStore.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != in.UserID {
		// Sessions belonging to someone else look absent.
		return nil, domain.ErrSessionNotFound
	}

	unlock := s.lockSession(in.SessionID)
	defer unlock()

	log := observability.LoggerFromContext(ctx).With(
		"session_id", session.ID,
		"user_id", session.UserID,
	)
	log.Info("processing turn")

	userMsg := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		SessionID: session.ID,
		Role:      domain.RoleUser,
		Content:   in.Text,
		CreatedAt: s.now(),
	}
	if err := s.messageStore.AppendMessage(ctx, userMsg); err != nil {
		log.Error("failed to append user message", "error", err)
		return nil, err
	}

	history, err := s.messageStore.GetMessagesBySession(ctx, session.ID, historyLimit)
	if err != nil {
		log.Error("failed to load history", "error", err)
		return nil, err
	}

	template := s.templates.GetTemplate(ctx, session.UserID)

	// The generator is the turn's dominant latency; its adapter bounds the
	// call. A timeout surfaces here as an error and the draft stays
	// exactly as it was, because no tool has run yet.
	raw, err := s.gen.Generate(ctx, buildTurnPrompt(in.Text, history, template))
	if err != nil {
		log.Error("turn generation failed", "error", err)
		return nil, err
	}

	turn := parseTurn(raw, in.Text)

	resp, err := s.dispatcher.Dispatch(ctx, dispatch.TurnContext{
		SessionID: session.ID,
		UserID:    session.UserID,
	}, turn.ToolCalls)
	if err != nil {
		log.Error("dispatch failed", "error", err)
		return nil, err
	}

	reply := strings.TrimSpace(turn.Reply)
	if reply == "" {
		reply = "Noted."
	}

	assistantMsg := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		SessionID: session.ID,
		Role:      domain.RoleAssistant,
		Content:   reply,
		CreatedAt: s.now(),
	}
	if err := s.messageStore.AppendMessage(ctx, assistantMsg); err != nil {
		log.Error("failed to append assistant message", "error", err)
		return nil, err
	}

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, err
	}

	log.Info("turn completed", "tool_calls", len(turn.ToolCalls))

	return &SendMessageOutput{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Dispatch:         resp,
	}, nil
}

func (s *Service) GetSessionTimeline(
	ctx context.Context,
	sessionID domain.SessionID,
	limit int,
) (*domain.Session, []*domain.Message, error) {

	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	msgs, err := s.messageStore.GetMessagesBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, nil, err
	}

	return session, msgs, nil
}

// lockSession serializes turns per session within this process.
func (s *Service) lockSession(id domain.SessionID) func() {
	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
