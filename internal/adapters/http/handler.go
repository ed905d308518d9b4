package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quillworks/quill-agent/internal/app/conversation"
	"github.com/quillworks/quill-agent/internal/app/journal"
	"github.com/quillworks/quill-agent/internal/app/tasks"
	"github.com/quillworks/quill-agent/internal/domain"
)

type Server struct {
	conv    *conversation.Service
	journal *journal.Service
	tasks   *tasks.Service
	drafts  domain.DraftStore
	prefs   domain.PreferenceStore
}

func NewServer(
	conv *conversation.Service,
	journalSvc *journal.Service,
	taskSvc *tasks.Service,
	drafts domain.DraftStore,
	prefs domain.PreferenceStore,
) http.Handler {
	s := &Server{
		conv:    conv,
		journal: journalSvc,
		tasks:   taskSvc,
		drafts:  drafts,
		prefs:   prefs,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)

	// /sessions → create session (POST)
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}          →  GET: session + messages
	// /sessions/{id}/messages → POST: send one turn
	// /sessions/{id}/draft    →  GET: current draft
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	// /users/{id}/entries       → GET, optional ?q= search
	// /users/{id}/tasks         → GET
	// /users/{id}/tasks/reorder → POST
	// /users/{id}/preferences   → GET
	mux.HandleFunc("/users/", s.handleUserWithID)

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

type createSessionRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title,omitempty"`
}

type createSessionResponse struct {
	Session sessionResponse  `json:"session"`
	Welcome *messageResponse `json:"welcome_message,omitempty"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type sendMessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type toolCallResponse struct {
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

type sendMessageResponse struct {
	UserMessage      messageResponse    `json:"user_message"`
	AssistantMessage messageResponse    `json:"assistant_message"`
	ToolCalls        []toolCallResponse `json:"tool_calls,omitempty"`
	Draft            domain.DraftData   `json:"draft,omitempty"`
}

type getSessionResponse struct {
	Session  sessionResponse   `json:"session"`
	Messages []messageResponse `json:"messages"`
}

type draftResponse struct {
	SessionID string           `json:"session_id"`
	Data      domain.DraftData `json:"data"`
	Finalized bool             `json:"finalized"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type entryResponse struct {
	ID             string           `json:"id"`
	SessionID      string           `json:"session_id"`
	Title          string           `json:"title"`
	StructuredData domain.DraftData `json:"structured_data"`
	CreatedAt      time.Time        `json:"created_at"`
}

type taskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    int        `json:"priority"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type reorderRequest struct {
	Order []struct {
		TaskID   string `json:"task_id"`
		Priority int    `json:"priority"`
	} `json:"order"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(path, "/")
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleGetSession(w, r, domain.SessionID(id))
	case len(parts) == 2 && parts[1] == "messages":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleSendMessage(w, r, domain.SessionID(id))
	case len(parts) == 2 && parts[1] == "draft":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleGetDraft(w, r, domain.SessionID(id))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleUserWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(path, "/")
	if parts[0] == "" || len(parts) < 2 {
		http.NotFound(w, r)
		return
	}
	userID := domain.UserID(parts[0])

	switch {
	case len(parts) == 2 && parts[1] == "entries" && r.Method == http.MethodGet:
		s.handleListEntries(w, r, userID)
	case len(parts) == 2 && parts[1] == "tasks" && r.Method == http.MethodGet:
		s.handleListTasks(w, r, userID)
	case len(parts) == 3 && parts[1] == "tasks" && parts[2] == "reorder" && r.Method == http.MethodPost:
		s.handleReorderTasks(w, r, userID)
	case len(parts) == 2 && parts[1] == "preferences" && r.Method == http.MethodGet:
		s.handleGetPreferences(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	out, err := s.conv.StartSession(r.Context(), conversation.StartSessionInput{
		UserID: domain.UserID(req.UserID),
		Title:  req.Title,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := createSessionResponse{Session: toSessionResponse(out.Session)}
	if out.Welcome != nil {
		m := toMessageResponse(out.Welcome)
		resp.Welcome = &m
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	session, msgs, err := s.conv.GetSessionTimeline(r.Context(), id, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{
		Session:  toSessionResponse(session),
		Messages: toMessagesResponse(msgs),
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	out, err := s.conv.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionID,
		UserID:    domain.UserID(req.UserID),
		Text:      req.Text,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := sendMessageResponse{
		UserMessage:      toMessageResponse(out.UserMessage),
		AssistantMessage: toMessageResponse(out.AssistantMessage),
	}
	if out.Dispatch != nil {
		for _, call := range out.Dispatch.ToolCalls {
			resp.ToolCalls = append(resp.ToolCalls, toolCallResponse{
				Name:    string(call.Name),
				Status:  string(call.Status),
				Message: call.Message,
				Payload: call.Payload,
			})
		}
		resp.Draft = out.Dispatch.UpdatedDraftData
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	draft, err := s.drafts.GetDraft(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, draftResponse{
		SessionID: string(draft.SessionID),
		Data:      draft.Data,
		Finalized: draft.Finalized,
		UpdatedAt: draft.UpdatedAt,
	})
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	limit := intQuery(r, "limit", 0)
	query := r.URL.Query().Get("q")

	var (
		entries []*domain.Entry
		err     error
	)
	if query != "" {
		entries, err = s.journal.Search(r.Context(), userID, query, limit)
	} else {
		entries, err = s.journal.GetUserJournal(r.Context(), userID, limit)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:             string(e.ID),
			SessionID:      string(e.SessionID),
			Title:          e.Title,
			StructuredData: e.StructuredData,
			CreatedAt:      e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	includeCompleted := r.URL.Query().Get("include_completed") == "true"

	list, err := s.tasks.List(r.Context(), userID, includeCompleted)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func (s *Server) handleReorderTasks(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if len(req.Order) == 0 {
		badRequest(w, "order is required")
		return
	}

	order := make([]domain.TaskPriority, 0, len(req.Order))
	for _, item := range req.Order {
		order = append(order, domain.TaskPriority{
			TaskID:   domain.TaskID(item.TaskID),
			Priority: item.Priority,
		})
	}

	if err := s.tasks.Reorder(r.Context(), userID, order); err != nil {
		writeError(w, r, err)
		return
	}

	list, err := s.tasks.List(r.Context(), userID, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]taskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	prefs, err := s.prefs.GetPreferences(r.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		prefs = domain.DefaultPreferences(userID)
	} else if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:        string(s.ID),
		UserID:    string(s.UserID),
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:        string(m.ID),
		SessionID: string(m.SessionID),
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toMessagesResponse(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toTaskResponse(t *domain.Task) taskResponse {
	return taskResponse{
		ID:          string(t.ID),
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		IsCompleted: t.IsCompleted,
		CompletedAt: t.CompletedAt,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
	}
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Absence errors cover
// both missing and foreign records.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, domain.ErrMissingIdentity):
		badRequest(w, "missing identity")
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
