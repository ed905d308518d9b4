package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quillworks/quill-agent/internal/app/journal"
	"github.com/quillworks/quill-agent/internal/app/preferences"
	"github.com/quillworks/quill-agent/internal/app/structuring"
	"github.com/quillworks/quill-agent/internal/app/tasks"
	"github.com/quillworks/quill-agent/internal/domain"
	"github.com/quillworks/quill-agent/internal/observability"
)

const analyzeTimeout = 60 * time.Second

type handlerFunc func(ctx context.Context, tctx TurnContext, args map[string]any, resp *Response) Result

// Dispatcher routes a turn's tool calls to their handlers. The handler table
// is fixed at construction; tool calls run sequentially in the order the
// model enumerated them, and each call's result is isolated from the rest.
type Dispatcher struct {
	structurer *structuring.Structurer
	templates  domain.TemplateStore
	drafts     domain.DraftStore
	finalizer  *journal.Finalizer
	entries    *journal.Service
	analyzer   *preferences.Analyzer
	tasks      *tasks.Service

	handlers map[ToolKind]handlerFunc

	// runAsync runs the best-effort post-save analysis. Swapped for a
	// synchronous version in tests.
	runAsync func(fn func())
}

func NewDispatcher(
	structurer *structuring.Structurer,
	templates domain.TemplateStore,
	drafts domain.DraftStore,
	finalizer *journal.Finalizer,
	entries *journal.Service,
	analyzer *preferences.Analyzer,
	taskSvc *tasks.Service,
) *Dispatcher {
	d := &Dispatcher{
		structurer: structurer,
		templates:  templates,
		drafts:     drafts,
		finalizer:  finalizer,
		entries:    entries,
		analyzer:   analyzer,
		tasks:      taskSvc,
		runAsync:   func(fn func()) { go fn() },
	}

	d.handlers = map[ToolKind]handlerFunc{
		ToolStructureJournal:    d.handleStructure,
		ToolSaveJournal:         d.handleSave,
		ToolUpdatePreferences:   d.handleUpdatePreferences,
		ToolCreateTask:          d.handleCreateTask,
		ToolListTasks:           d.handleListTasks,
		ToolCompleteTask:        d.handleCompleteTask,
		ToolCompleteTaskByTitle: d.handleCompleteTaskByTitle,
		ToolUpdateTask:          d.handleUpdateTask,
		ToolDeleteTask:          d.handleDeleteTask,
		ToolSearchEntries:       d.handleSearchEntries,
	}
	return d
}

// Dispatch processes the turn's tool calls and aggregates their results.
func (d *Dispatcher) Dispatch(ctx context.Context, tctx TurnContext, calls []Call) (*Response, error) {
	if tctx.SessionID == "" || tctx.UserID == "" {
		return nil, domain.ErrMissingIdentity
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", tctx.SessionID,
		"user_id", tctx.UserID,
	)

	resp := &Response{ToolCalls: make([]Result, 0, len(calls))}
	failed := 0

	for _, call := range calls {
		handler, known := d.handlers[call.Name]
		var result Result
		if !known {
			result = failure(call.Name, fmt.Sprintf("unknown tool %q", call.Name))
		} else {
			start := time.Now()
			result = handler(ctx, tctx, call.Arguments, resp)
			log.Info("tool call processed",
				"tool", call.Name,
				"status", result.Status,
				"elapsed_ms", time.Since(start).Milliseconds())
		}
		if result.Status == StatusFailed {
			failed++
		}
		resp.ToolCalls = append(resp.ToolCalls, result)
	}

	resp.Metadata = map[string]any{
		"tool_call_count": len(calls),
		"failed_count":    failed,
	}
	return resp, nil
}

// --- handlers --- //

func (d *Dispatcher) handleStructure(ctx context.Context, tctx TurnContext, args map[string]any, resp *Response) Result {
	text := stringArg(args, "text")
	template := d.templates.GetTemplate(ctx, tctx.UserID)

	res := d.structurer.Structure(ctx, text, template)
	if res.Status == structuring.StatusNoContent {
		return Result{Name: ToolStructureJournal, Status: StatusNoContent, Message: "no content to structure"}
	}

	draft, err := d.drafts.GetDraft(ctx, tctx.SessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return failure(ToolStructureJournal, "reading draft failed")
		}
		draft, err = d.drafts.CreateDraft(ctx, tctx.SessionID, tctx.UserID)
		if err != nil {
			return failure(ToolStructureJournal, "creating draft failed")
		}
	}

	merged := structuring.Merge(draft.Data, res.Sections)
	updated, err := d.drafts.UpdateDraftData(ctx, tctx.SessionID, merged)
	if err != nil {
		return failure(ToolStructureJournal, "persisting draft failed")
	}

	resp.UpdatedDraftData = updated.Data
	return Result{
		Name:   ToolStructureJournal,
		Status: StatusSuccess,
		Payload: map[string]any{
			"sections_updated": res.Sections.SectionNames(),
			"used_fallback":    res.Fallback,
		},
	}
}

func (d *Dispatcher) handleSave(ctx context.Context, tctx TurnContext, args map[string]any, resp *Response) Result {
	if !boolArg(args, "confirmation") {
		return Result{Name: ToolSaveJournal, Status: StatusCancelled, Message: "save not confirmed"}
	}

	entry, err := d.finalizer.Finalize(ctx, tctx.SessionID)
	if err != nil {
		return failure(ToolSaveJournal, "saving entry failed")
	}
	if entry == nil {
		return Result{Name: ToolSaveJournal, Status: StatusNoContent, Message: "nothing to save"}
	}

	resp.UpdatedDraftData = domain.DraftData{}

	// Best effort: mine the finalized entry for preference signals. The
	// save already succeeded; whatever happens here stays here.
	d.spawnAnalysis(ctx, tctx.UserID, entry)

	return Result{
		Name:   ToolSaveJournal,
		Status: StatusSuccess,
		Payload: map[string]any{
			"entry_id": string(entry.ID),
			"title":    entry.Title,
		},
	}
}

func (d *Dispatcher) spawnAnalysis(ctx context.Context, userID domain.UserID, entry *domain.Entry) {
	reqID := observability.RequestID(ctx)
	d.runAsync(func() {
		actx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
		defer cancel()
		if reqID != "" {
			actx = observability.WithRequestID(actx, reqID)
		}

		if _, err := d.analyzer.UpdateFromText(actx, userID, entryText(entry)); err != nil {
			observability.LoggerFromContext(actx).Warn("post-save preference analysis failed",
				"user_id", userID, "entry_id", entry.ID, "error", err)
		}
	})
}

func entryText(entry *domain.Entry) string {
	var parts []string
	for _, name := range entry.StructuredData.SectionNames() {
		c := entry.StructuredData[name]
		if c.List {
			parts = append(parts, name+": "+strings.Join(c.Items, "; "))
		} else {
			parts = append(parts, name+": "+c.Text)
		}
	}
	if entry.RawText != "" {
		parts = append(parts, entry.RawText)
	}
	return strings.Join(parts, "\n")
}

func (d *Dispatcher) handleUpdatePreferences(ctx context.Context, tctx TurnContext, args map[string]any, _ *Response) Result {
	text := stringArg(args, "text")
	if text == "" {
		text = stringArg(args, "request")
	}

	// The analyzer persists by itself; nothing downstream may write
	// preferences again for this call, or it would clobber this update.
	changed, err := d.analyzer.UpdateFromText(ctx, tctx.UserID, text)
	if err != nil {
		return failure(ToolUpdatePreferences, "updating preferences failed")
	}
	if len(changed) == 0 {
		return Result{Name: ToolUpdatePreferences, Status: StatusSuccess, Message: "no updates needed"}
	}
	return Result{
		Name:    ToolUpdatePreferences,
		Status:  StatusSuccess,
		Payload: map[string]any{"changed_fields": changed},
	}
}

func (d *Dispatcher) handleCreateTask(ctx context.Context, tctx TurnContext, args map[string]any, _ *Response) Result {
	task, err := d.tasks.Create(ctx, tctx.UserID, tasks.CreateInput{
		Title:           stringArg(args, "title"),
		Description:     stringArg(args, "description"),
		DueDate:         timeArg(args, "due_date"),
		SourceSessionID: tctx.SessionID,
	})
	if err != nil {
		return failure(ToolCreateTask, "creating task failed")
	}
	return Result{
		Name:    ToolCreateTask,
		Status:  StatusSuccess,
		Payload: taskPayload(task),
	}
}

func (d *Dispatcher) handleListTasks(ctx context.Context, tctx TurnContext, args map[string]any, _ *Response) Result {
	listed, err := d.tasks.List(ctx, tctx.UserID, boolArg(args, "include_completed"))
	if err != nil {
		return failure(ToolListTasks, "listing tasks failed")
	}

	items := make([]map[string]any, 0, len(listed))
	for _, task := range listed {
		items = append(items, taskPayload(task))
	}
	return Result{
		Name:    ToolListTasks,
		Status:  StatusSuccess,
		Payload: map[string]any{"tasks": items},
	}
}

func (d *Dispatcher) handleCompleteTask(ctx context.Context, tctx TurnContext, args map[string]any, _ *Response) Result {
	task, err := d.tasks.Complete(ctx, tctx.UserID, domain.TaskID(stringArg(args, "task_id")))
	if err != nil {
		return taskFailure(ToolCompleteTask, err)
	}
	return Result{Name: ToolCompleteTask, Status: StatusSuccess, Payload: taskPayload(task)}
}

func (d *Dispatcher) handleCompleteTaskByTitle(ctx context.Context, tctx TurnContext, args map[string]any, _ *Response) Result {
	task, openTitles, err := d.tasks.CompleteByTitle(ctx, tctx.UserID, stringArg(args, "title"))
	if err != nil {
		result := taskFailure(ToolCompleteTaskByTitle, err)
		if openTitles != nil {
			result.Payload = map[string]any{"open_tasks": openTitles}
		}
		return result
	}
	return Result{Name: ToolCompleteTaskByTitle, Status: StatusSuccess, Payload: taskPayload(task)}
}

func (d *Dispatcher) handleUpdateTask(ctx context.Context, tctx TurnContext, args map[string]any, _ *Response) Result {
	task, err := d.tasks.Update(ctx, tctx.UserID, domain.TaskID(stringArg(args, "task_id")), tasks.UpdateInput{
		Title:       optionalStringArg(args, "title"),
		Description: optionalStringArg(args, "description"),
		DueDate:     timeArg(args, "due_date"),
	})
	if err != nil {
		return taskFailure(ToolUpdateTask, err)
	}
	return Result{Name: ToolUpdateTask, Status: StatusSuccess, Payload: taskPayload(task)}
}

func (d *Dispatcher) handleDeleteTask(ctx context.Context, tctx TurnContext, args map[string]any, _ *Response) Result {
	if err := d.tasks.Delete(ctx, tctx.UserID, domain.TaskID(stringArg(args, "task_id"))); err != nil {
		return taskFailure(ToolDeleteTask, err)
	}
	return Result{Name: ToolDeleteTask, Status: StatusSuccess}
}

func (d *Dispatcher) handleSearchEntries(ctx context.Context, tctx TurnContext, args map[string]any, _ *Response) Result {
	query := stringArg(args, "query")
	found, err := d.entries.Search(ctx, tctx.UserID, query, intArg(args, "limit"))
	if err != nil {
		return failure(ToolSearchEntries, "searching entries failed")
	}

	items := make([]map[string]any, 0, len(found))
	for _, e := range found {
		items = append(items, map[string]any{
			"entry_id":   string(e.ID),
			"title":      e.Title,
			"created_at": e.CreatedAt,
		})
	}
	return Result{
		Name:    ToolSearchEntries,
		Status:  StatusSuccess,
		Payload: map[string]any{"entries": items, "query": query},
	}
}

// taskFailure keeps ownership failures indistinguishable from absence.
func taskFailure(name ToolKind, err error) Result {
	if errors.Is(err, domain.ErrNotFound) {
		return failure(name, "task not found")
	}
	return failure(name, "task operation failed")
}

func taskPayload(task *domain.Task) map[string]any {
	payload := map[string]any{
		"task_id":      string(task.ID),
		"title":        task.Title,
		"priority":     task.Priority,
		"is_completed": task.IsCompleted,
	}
	if task.Description != "" {
		payload["description"] = task.Description
	}
	if task.DueDate != nil {
		payload["due_date"] = task.DueDate.Format("2006-01-02")
	}
	return payload
}
