package structuring

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFence removes a leading/trailing markdown code fence from model
// output. Models wrap JSON in ```json blocks often enough that every parse
// path goes through this first.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}

	// Drop the opening fence line (``` or ```json).
	if idx := strings.IndexByte(t, '\n'); idx >= 0 {
		t = t[idx+1:]
	} else {
		return strings.TrimSpace(strings.TrimPrefix(t, "```"))
	}

	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// ParseJSONObject parses model output as a JSON object after stripping any
// code fence. The values stay untyped; callers coerce them.
func ParseJSONObject(raw string) (map[string]any, error) {
	cleaned := StripCodeFence(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("empty model output")
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, fmt.Errorf("model output is not a JSON object: %w", err)
	}
	return obj, nil
}
