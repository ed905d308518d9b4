package structuring

import "github.com/quillworks/quill-agent/internal/domain"

// Merge folds incoming section content into the existing draft data and
// returns a new map; neither input is mutated, so a concurrent reader never
// observes a partially merged draft.
//
// Nothing is ever overwritten: a user's second message must not erase
// content from their first. Per section the rules are
//
//	absent            -> insert
//	text   + text     -> concatenate with a blank line between
//	list   + list     -> concatenate, existing first, duplicates kept
//	text   + list     -> promote existing text to a single item, then concat
//	list   + text     -> append the text as one more item
func Merge(existing, incoming domain.DraftData) domain.DraftData {
	out := existing.Clone()
	for _, key := range incoming.SectionNames() {
		nv := incoming[key]
		ov, ok := out[key]
		if !ok {
			out[key] = nv.Clone()
			continue
		}
		out[key] = combine(ov, nv)
	}
	return out
}

func combine(existing, incoming domain.SectionContent) domain.SectionContent {
	switch {
	case existing.List && incoming.List:
		return domain.ListContent(append(append([]string(nil), existing.Items...), incoming.Items...)...)

	case !existing.List && incoming.List:
		items := make([]string, 0, len(incoming.Items)+1)
		if existing.Text != "" {
			items = append(items, existing.Text)
		}
		items = append(items, incoming.Items...)
		return domain.ListContent(items...)

	case existing.List && !incoming.List:
		if incoming.Text == "" {
			return existing.Clone()
		}
		return domain.ListContent(append(append([]string(nil), existing.Items...), incoming.Text)...)

	default:
		return domain.TextContent(joinText(existing.Text, incoming.Text))
	}
}

func joinText(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "\n\n" + b
}
