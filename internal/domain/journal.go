package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FallbackSection receives content when no template exists or when the
// model's output could not be parsed into sections.
const FallbackSection = "General Reflection"

// SectionDef describes one section of a journal template.
type SectionDef struct {
	Description string   `json:"description"`
	Aliases     []string `json:"aliases,omitempty"`
}

// Template is a user's named set of journal sections. It is read-only to the
// core and immutable during a turn.
type Template struct {
	Name     string                `json:"name"`
	Sections map[string]SectionDef `json:"sections"`
}

// IsEmpty reports whether the template defines no sections.
func (t Template) IsEmpty() bool {
	return len(t.Sections) == 0
}

// SectionNames returns the canonical section names in deterministic order.
func (t Template) SectionNames() []string {
	names := make([]string, 0, len(t.Sections))
	for name := range t.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SectionContent is the accumulated content of one draft section. A section
// holds either free text or an ordered list of items; the model may produce
// either shape for any section, so both are first-class. The zero value is
// empty text.
type SectionContent struct {
	Text  string
	Items []string
	List  bool
}

// TextContent builds a text-valued section.
func TextContent(s string) SectionContent {
	return SectionContent{Text: s}
}

// ListContent builds a list-valued section.
func ListContent(items ...string) SectionContent {
	return SectionContent{Items: items, List: true}
}

// IsEmpty reports whether the section carries no content.
func (c SectionContent) IsEmpty() bool {
	if c.List {
		return len(c.Items) == 0
	}
	return strings.TrimSpace(c.Text) == ""
}

// Clone returns a deep copy. Item slices are never shared between drafts and
// merge results.
func (c SectionContent) Clone() SectionContent {
	out := c
	if c.Items != nil {
		out.Items = append([]string(nil), c.Items...)
	}
	return out
}

// MarshalJSON encodes the section as a bare string or a string array,
// matching the shape the model produces.
func (c SectionContent) MarshalJSON() ([]byte, error) {
	if c.List {
		items := c.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts whatever shape the model produced: strings and
// arrays map directly, everything else is coerced to text.
func (c *SectionContent) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = CoerceContent(v)
	return nil
}

// CoerceContent converts an untyped JSON value into SectionContent. Model
// output carries no schema contract, so every shape must land somewhere.
func CoerceContent(v any) SectionContent {
	switch t := v.(type) {
	case nil:
		return SectionContent{}
	case string:
		return TextContent(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			items = append(items, coerceScalar(item))
		}
		return ListContent(items...)
	default:
		return TextContent(coerceScalar(v))
	}
}

func coerceScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// DraftData maps resolved section names to their accumulated content.
type DraftData map[string]SectionContent

// Clone returns a deep copy of the data map.
func (d DraftData) Clone() DraftData {
	out := make(DraftData, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}

// HasContent reports whether at least one section carries a non-empty value.
func (d DraftData) HasContent() bool {
	for _, v := range d {
		if !v.IsEmpty() {
			return true
		}
	}
	return false
}

// SectionNames returns the section names in deterministic order.
func (d DraftData) SectionNames() []string {
	names := make([]string, 0, len(d))
	for k := range d {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Draft is the mutable journal entry a session accumulates across turns.
// It is created empty on the first turn, merged into on every structuring
// call, and cleared (not deleted) when finalized into an Entry.
type Draft struct {
	SessionID SessionID
	UserID    UserID
	Data      DraftData
	Finalized bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is an immutable snapshot of a draft, created exactly once per
// finalize call.
type Entry struct {
	ID             EntryID
	UserID         UserID
	SessionID      SessionID
	Title          string
	StructuredData DraftData
	RawText        string
	CreatedAt      time.Time
}
