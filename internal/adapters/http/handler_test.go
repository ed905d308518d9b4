package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/quillworks/quill-agent/internal/adapters/http"
	"github.com/quillworks/quill-agent/internal/adapters/llm"
	"github.com/quillworks/quill-agent/internal/adapters/storage/memory"
	"github.com/quillworks/quill-agent/internal/app/conversation"
	"github.com/quillworks/quill-agent/internal/app/dispatch"
	journalapp "github.com/quillworks/quill-agent/internal/app/journal"
	"github.com/quillworks/quill-agent/internal/app/preferences"
	"github.com/quillworks/quill-agent/internal/app/structuring"
	"github.com/quillworks/quill-agent/internal/app/tasks"
	"github.com/quillworks/quill-agent/internal/domain"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	gen := llm.NewMockGenerator()
	sessionStore := memory.NewSessionStore()
	messageStore := memory.NewMessageStore()
	journalStore := memory.NewJournalStore()
	templates := memory.NewTemplateStore()
	prefStore := memory.NewPreferenceStore()
	taskSvc := tasks.NewService(memory.NewTaskStore())

	d := dispatch.NewDispatcher(
		structuring.NewStructurer(gen),
		templates,
		journalStore,
		journalapp.NewFinalizer(journalStore, messageStore),
		journalapp.NewService(journalStore),
		preferences.NewAnalyzer(gen, prefStore),
		taskSvc,
	)
	convSvc := conversation.NewService(gen, sessionStore, messageStore, templates, d)

	return httpadapter.NewServer(convSvc, journalapp.NewService(journalStore), taskSvc, journalStore, prefStore)
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateSessionAndSendMessage(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/sessions", map[string]string{
		"user_id": "test-user",
		"title":   "Test",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
		Welcome *struct {
			Role string `json:"role"`
		} `json:"welcome_message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Session.ID)
	require.NotNil(t, created.Welcome)
	assert.Equal(t, "assistant", created.Welcome.Role)

	w = doJSON(t, srv, http.MethodPost, "/sessions/"+created.Session.ID+"/messages", map[string]string{
		"user_id": "test-user",
		"text":    "Slept well, long walk before work",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sent struct {
		AssistantMessage struct {
			Content string `json:"content"`
		} `json:"assistant_message"`
		Draft map[string]any `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
	assert.NotEmpty(t, sent.AssistantMessage.Content)
	assert.Contains(t, sent.Draft, domain.FallbackSection)

	w = doJSON(t, srv, http.MethodGet, "/sessions/"+created.Session.ID+"/draft", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var draft struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &draft))
	assert.Equal(t, "Slept well, long walk before work", draft.Data[domain.FallbackSection])
}

func TestSendMessageValidation(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/sessions/some-id/messages", map[string]string{
		"user_id": "u1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/sessions/unknown/messages", map[string]string{
		"user_id": "u1",
		"text":    "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDraftNotFound(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/sessions/nope/draft", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEntriesEmpty(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/users/u1/entries", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Entries []any `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Entries)
}

func TestReorderUnknownTask(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/users/u1/tasks/reorder", map[string]any{
		"order": []map[string]any{{"task_id": "ghost", "priority": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreferencesDefaultWhenAbsent(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/users/u1/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var prefs struct {
		PreferredFeedbackStyle string `json:"preferred_feedback_style"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prefs))
	assert.Equal(t, "supportive", prefs.PreferredFeedbackStyle)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
