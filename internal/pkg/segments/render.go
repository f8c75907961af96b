package segments

import (
	"html"
	"strings"
)

// Render concatenates the HTML form of each segment in order. In edit mode a
// mention renders as its bracketed key so it can round-trip through the
// composer; otherwise it renders as its display text. Markup is emitted as
// given even when it does not nest; use Validate to reject such input.
func Render(segs []Segment, editMode bool) string {
	if len(segs) == 0 {
		return ""
	}

	var b strings.Builder
	for _, s := range segs {
		switch s.Type {
		case TypeMarkupBegin:
			b.WriteString("<" + s.HTMLTag + ">")
		case TypeMarkupEnd:
			b.WriteString("</" + s.HTMLTag + ">")
		case TypeText:
			b.WriteString(s.Text)
		case TypeMention:
			if editMode {
				b.WriteString(s.Key())
			} else {
				b.WriteString(s.Text)
			}
		}
	}
	return b.String()
}

// ExtractMentions collects the bracketed key of every mention segment. When
// two mentions share a display name the later one wins.
func ExtractMentions(segs []Segment) MentionTable {
	table := make(MentionTable)
	for _, s := range segs {
		if s.Type != TypeMention || s.Record == nil {
			continue
		}
		table[s.Key()] = s.Record.ID
	}
	return table
}

// PlainText drops markup and returns the readable text of a message
func PlainText(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		switch s.Type {
		case TypeText, TypeMention:
			b.WriteString(html.UnescapeString(s.Text))
		case TypeMarkupEnd:
			if blockTags[s.HTMLTag] {
				b.WriteString(" ")
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// MentionedIDs returns the distinct record ids referenced by the message
func MentionedIDs(segs []Segment) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range segs {
		if s.Type != TypeMention || s.Record == nil || seen[s.Record.ID] {
			continue
		}
		seen[s.Record.ID] = true
		ids = append(ids, s.Record.ID)
	}
	return ids
}

// Body is how a stored message is returned to clients
type Body struct {
	Text            string    `json:"text"`
	MessageSegments []Segment `json:"messageSegments"`
}

func NewBody(segs []Segment) Body {
	if segs == nil {
		segs = []Segment{}
	}
	return Body{Text: PlainText(segs), MessageSegments: segs}
}
