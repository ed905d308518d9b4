package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/quillworks/quill-agent/internal/adapters/http"
	"github.com/quillworks/quill-agent/internal/adapters/llm"
	"github.com/quillworks/quill-agent/internal/adapters/storage/cached"
	firestorestore "github.com/quillworks/quill-agent/internal/adapters/storage/firestore"
	memstore "github.com/quillworks/quill-agent/internal/adapters/storage/memory"
	sqlitestore "github.com/quillworks/quill-agent/internal/adapters/storage/sqlite"
	"github.com/quillworks/quill-agent/internal/app/conversation"
	"github.com/quillworks/quill-agent/internal/app/dispatch"
	journalapp "github.com/quillworks/quill-agent/internal/app/journal"
	"github.com/quillworks/quill-agent/internal/app/preferences"
	"github.com/quillworks/quill-agent/internal/app/structuring"
	"github.com/quillworks/quill-agent/internal/app/tasks"
	"github.com/quillworks/quill-agent/internal/config"
	"github.com/quillworks/quill-agent/internal/domain"
	"github.com/quillworks/quill-agent/internal/observability"
)

const templateCacheTTL = 5 * time.Minute

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.Load()
	logger := observability.Logger()

	// Generator
	var gen domain.Generator
	if cfg.UseMockLLM {
		logger.Info("using mock generator")
		gen = llm.NewMockGenerator()
	} else {
		logger.Info("using Vertex AI generator",
			"project", cfg.GCPProjectID, "model", cfg.ModelName)
		vertex, err := llm.NewVertexGenerator(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			log.Fatalf("initializing Vertex generator: %v", err)
		}
		gen = llm.NewRetryingGenerator(vertex, cfg.GeneratorTimeout, cfg.GeneratorRetries)
	}

	// Storage
	var (
		sessionStore domain.SessionStore
		messageStore domain.MessageStore
		draftStore   domain.DraftStore
		entryStore   domain.EntryStore
		prefStore    domain.PreferenceStore
		taskStore    domain.TaskStore
	)

	switch cfg.StorageBackend {
	case "sqlite":
		logger.Info("using sqlite storage", "path", cfg.SQLitePath)
		store, err := sqlitestore.New(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("initializing sqlite store: %v", err)
		}
		defer store.Close()

		sessionStore = store
		messageStore = store
		draftStore = store
		entryStore = store
		prefStore = store
		taskStore = store

	case "firestore":
		logger.Info("using Firestore storage", "project", cfg.GCPProjectID)
		store, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("initializing Firestore store: %v", err)
		}
		defer store.Close()

		sessionStore = store
		messageStore = store
		draftStore = store
		entryStore = store
		// Tasks and preferences have no Firestore mapping yet and live in
		// memory, so they reset on restart in this backend.
		prefStore = memstore.NewPreferenceStore()
		taskStore = memstore.NewTaskStore()

	default:
		logger.Info("using in-memory storage")
		journalStore := memstore.NewJournalStore()
		sessionStore = memstore.NewSessionStore()
		messageStore = memstore.NewMessageStore()
		draftStore = journalStore
		entryStore = journalStore
		prefStore = memstore.NewPreferenceStore()
		taskStore = memstore.NewTaskStore()
	}

	// Templates are read on every turn; serve them through a small cache.
	templateSource := memstore.NewTemplateStore()
	templateSource.SetDefault(defaultTemplate())
	templates := cached.NewTemplateStore(templateSource, templateCacheTTL)

	// Services
	taskSvc := tasks.NewService(taskStore)
	journalSvc := journalapp.NewService(entryStore)
	dispatcher := dispatch.NewDispatcher(
		structuring.NewStructurer(gen),
		templates,
		draftStore,
		journalapp.NewFinalizer(draftStore, messageStore),
		journalSvc,
		preferences.NewAnalyzer(gen, prefStore),
		taskSvc,
	)
	convSvc := conversation.NewService(gen, sessionStore, messageStore, templates, dispatcher)

	handler := httpadapter.NewServer(convSvc, journalSvc, taskSvc, draftStore, prefStore)

	addr := ":" + cfg.Port
	logger.Info("quill api listening", "addr", addr, "mode", string(cfg.Mode))
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}

// defaultTemplate is the journal shape users get until they define their
// own.
func defaultTemplate() domain.Template {
	return domain.Template{
		Name: "default",
		Sections: map[string]domain.SectionDef{
			"Daily Events": {
				Description: "What happened today",
				Aliases:     []string{"events", "today", "what happened"},
			},
			"Gratitude": {
				Description: "Things the user is grateful for",
				Aliases:     []string{"grateful", "thankful"},
			},
			"Challenges": {
				Description: "Difficulties, worries or friction",
				Aliases:     []string{"struggles", "problems", "worries"},
			},
			"Ideas": {
				Description: "Thoughts and ideas to come back to",
				Aliases:     []string{"thoughts", "notes"},
			},
			"Summary": {
				Description: "A one-line summary of the day",
			},
		},
	}
}
