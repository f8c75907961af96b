// Package segments models a rich-text message as an ordered list of typed
// segments and converts it to and from HTML.
package segments

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type identifies the kind of a message segment
type Type string

const (
	TypeMarkupBegin Type = "MarkupBegin"
	TypeMarkupEnd   Type = "MarkupEnd"
	TypeText        Type = "Text"
	TypeMention     Type = "Mention"
)

var (
	ErrUnknownType      = errors.New("unknown segment type")
	ErrMissingField     = errors.New("segment is missing a required field")
	ErrUnbalancedMarkup = errors.New("markup segments are not balanced")
)

// Record references the entity a mention points at
type Record struct {
	ID string `bson:"id" json:"id"`
}

// Segment is one piece of a message body. Which fields are meaningful depends
// on Type: HTMLTag for markup, Text for text runs and mentions, Name and
// Record for mentions.
type Segment struct {
	Type    Type    `bson:"type" json:"type"`
	HTMLTag string  `bson:"htmlTag,omitempty" json:"htmlTag,omitempty"`
	Text    string  `bson:"text,omitempty" json:"text,omitempty"`
	Name    string  `bson:"name,omitempty" json:"name,omitempty"`
	Record  *Record `bson:"record,omitempty" json:"record,omitempty"`
}

// MentionTable maps a bracketed display key such as "[Ada Lovelace]" to the
// referenced record id.
type MentionTable map[string]string

func Begin(tag string) Segment { return Segment{Type: TypeMarkupBegin, HTMLTag: tag} }

func End(tag string) Segment { return Segment{Type: TypeMarkupEnd, HTMLTag: tag} }

func Text(text string) Segment { return Segment{Type: TypeText, Text: text} }

// Mention builds a mention segment displayed as "@name"
func Mention(name, id string) Segment {
	return Segment{Type: TypeMention, Name: name, Text: "@" + name, Record: &Record{ID: id}}
}

// Key returns the bracketed key used for the mention in edit mode
func (s Segment) Key() string {
	return "[" + s.Name + "]"
}

// Check reports whether the segment carries the fields its type requires
func (s Segment) Check() error {
	switch s.Type {
	case TypeMarkupBegin, TypeMarkupEnd:
		if s.HTMLTag == "" {
			return fmt.Errorf("%w: %s needs htmlTag", ErrMissingField, s.Type)
		}
	case TypeText:
	case TypeMention:
		if s.Name == "" || s.Record == nil || s.Record.ID == "" {
			return fmt.Errorf("%w: Mention needs name and record.id", ErrMissingField)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, s.Type)
	}
	return nil
}

// UnmarshalJSON rejects segments whose type-specific fields are missing so
// that malformed payloads never reach the renderer.
func (s *Segment) UnmarshalJSON(data []byte) error {
	type plain Segment
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	seg := Segment(p)
	if err := seg.Check(); err != nil {
		return err
	}
	*s = seg
	return nil
}

// Validate checks every segment and that markup begins and ends nest properly
func Validate(segs []Segment) error {
	var open []string
	for i, s := range segs {
		if err := s.Check(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
		switch s.Type {
		case TypeMarkupBegin:
			open = append(open, s.HTMLTag)
		case TypeMarkupEnd:
			if len(open) == 0 || open[len(open)-1] != s.HTMLTag {
				return fmt.Errorf("segment %d: %w: unexpected </%s>", i, ErrUnbalancedMarkup, s.HTMLTag)
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return fmt.Errorf("%w: <%s> never closed", ErrUnbalancedMarkup, open[len(open)-1])
	}
	return nil
}
