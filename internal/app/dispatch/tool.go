package dispatch

import (
	"time"

	"github.com/quillworks/quill-agent/internal/domain"
)

// ToolKind is the closed set of tools a model turn may invoke. Free-form
// tool names from the model are matched against this set; anything else is a
// per-call failure, never a dropped turn.
type ToolKind string

const (
	ToolStructureJournal    ToolKind = "structure_journal"
	ToolSaveJournal         ToolKind = "save_journal"
	ToolUpdatePreferences   ToolKind = "update_preferences"
	ToolCreateTask          ToolKind = "create_task"
	ToolListTasks           ToolKind = "list_tasks"
	ToolCompleteTask        ToolKind = "complete_task"
	ToolCompleteTaskByTitle ToolKind = "complete_task_by_title"
	ToolUpdateTask          ToolKind = "update_task"
	ToolDeleteTask          ToolKind = "delete_task"
	ToolSearchEntries       ToolKind = "search_entries"
)

// Status of one tool call within a turn.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusNoContent Status = "no_content"
)

// Call is one requested tool invocation, as declared by the model.
type Call struct {
	Name      ToolKind       `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Result is the outcome of one tool call. Handlers report success and
// failure independently; one call's failure never aborts its siblings.
type Result struct {
	Name    ToolKind       `json:"name"`
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

func failure(name ToolKind, msg string) Result {
	return Result{Name: name, Status: StatusFailed, Message: msg}
}

// Response aggregates a whole turn's tool activity.
type Response struct {
	ToolCalls        []Result         `json:"tool_calls"`
	UpdatedDraftData domain.DraftData `json:"updated_draft_data,omitempty"`
	Metadata         map[string]any   `json:"metadata,omitempty"`
}

// TurnContext identifies whose turn is being processed. Both ids are
// mandatory; dispatching without them fails closed.
type TurnContext struct {
	SessionID domain.SessionID
	UserID    domain.UserID
}

// --- argument decoding, tolerant of whatever shapes the model emits --- //

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	if args == nil {
		return false
	}
	switch v := args[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "yes" || v == "1"
	}
	return false
}

func intArg(args map[string]any, key string) int {
	if args == nil {
		return 0
	}
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// timeArg accepts RFC3339 or bare dates, which is what models actually
// produce for due dates.
func timeArg(args map[string]any, key string) *time.Time {
	s := stringArg(args, key)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func optionalStringArg(args map[string]any, key string) *string {
	if args == nil {
		return nil
	}
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return &s
		}
	}
	return nil
}
