package conversation

import (
	"encoding/json"
	"strings"

	"github.com/quillworks/quill-agent/internal/app/dispatch"
	"github.com/quillworks/quill-agent/internal/app/structuring"
)

// modelTurn is what we ask the model to produce per turn. Like all model
// output it is untrusted best-effort JSON.
type modelTurn struct {
	Reply     string          `json:"reply"`
	ToolCalls []dispatch.Call `json:"tool_calls"`
}

// parseTurn decodes the model's turn. A turn that is not valid JSON
// degrades to a plain reply plus an implicit structuring call over the
// user's text, so a model that forgets the format still journals.
func parseTurn(raw, userText string) modelTurn {
	cleaned := structuring.StripCodeFence(raw)

	var turn modelTurn
	if err := json.Unmarshal([]byte(cleaned), &turn); err == nil {
		turn.Reply = strings.TrimSpace(turn.Reply)
		// Tool calls with a blank reply are still a valid turn; dropping
		// them would journal a "yes, save it" instead of saving.
		if turn.Reply == "" && len(turn.ToolCalls) > 0 {
			turn.Reply = "Noted."
		}
		if turn.Reply != "" {
			return turn
		}
	}

	return modelTurn{
		Reply: strings.TrimSpace(raw),
		ToolCalls: []dispatch.Call{
			{Name: dispatch.ToolStructureJournal, Arguments: map[string]any{"text": userText}},
		},
	}
}
