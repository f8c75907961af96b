package segments

import (
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	xhtml "golang.org/x/net/html"
)

// MaxBodyLength bounds the HTML accepted by Parse
const MaxBodyLength = 10000

var ErrEmptyBody = errors.New("message body is empty")

// mentionRef matches a resolved mention reference such as {64f1c0...}
var mentionRef = regexp.MustCompile(`\{([0-9a-fA-F]{24})\}`)

var allowedTags = map[string]bool{
	"p": true, "b": true, "strong": true, "i": true, "em": true, "u": true,
	"s": true, "strike": true, "ul": true, "ol": true, "li": true,
	"code": true, "blockquote": true,
}

var blockTags = map[string]bool{
	"p": true, "li": true, "ul": true, "ol": true, "blockquote": true,
}

// NameLookup returns display names for the given record ids. Ids missing
// from the result are left in the text untouched.
type NameLookup func(ids []string) (map[string]string, error)

// ReferencedIDs returns the distinct ids referenced as {id} in body
func ReferencedIDs(body string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range mentionRef.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	}
	return ids
}

// Parse turns a submitted rich-text body into segments. Only a small set of
// formatting tags survives; attributes and unknown tags are dropped while
// their text is kept. Stray end tags are ignored and unclosed tags are closed
// at the end, so the result always passes Validate.
func Parse(body string, lookup NameLookup) ([]Segment, error) {
	if len(body) > MaxBodyLength {
		return nil, fmt.Errorf("message body exceeds %d characters", MaxBodyLength)
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	names := map[string]string{}
	if ids := ReferencedIDs(body); len(ids) > 0 && lookup != nil {
		found, err := lookup(ids)
		if err != nil {
			return nil, fmt.Errorf("resolve mentions: %w", err)
		}
		names = found
	}

	var (
		segs []Segment
		open []string
	)
	z := xhtml.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("parse body: %w", err)
			}
			for i := len(open) - 1; i >= 0; i-- {
				segs = append(segs, End(open[i]))
			}
			if strings.TrimSpace(PlainText(segs)) == "" {
				return nil, ErrEmptyBody
			}
			return segs, nil

		case xhtml.TextToken:
			segs = appendText(segs, string(z.Text()), names)

		case xhtml.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if allowedTags[tag] {
				segs = append(segs, Begin(tag))
				open = append(open, tag)
			}

		case xhtml.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			idx := lastIndex(open, tag)
			if idx < 0 {
				continue
			}
			for i := len(open) - 1; i >= idx; i-- {
				segs = append(segs, End(open[i]))
			}
			open = open[:idx]
		}
	}
}

// appendText splits a text run around mention references
func appendText(segs []Segment, text string, names map[string]string) []Segment {
	pos := 0
	for _, m := range mentionRef.FindAllStringSubmatchIndex(text, -1) {
		id := text[m[2]:m[3]]
		name, ok := names[id]
		if !ok {
			continue
		}
		if m[0] > pos {
			segs = appendRun(segs, text[pos:m[0]])
		}
		segs = append(segs, Mention(html.EscapeString(name), id))
		pos = m[1]
	}
	if pos < len(text) {
		segs = appendRun(segs, text[pos:])
	}
	return segs
}

// appendRun escapes raw text and merges it into a preceding text segment
func appendRun(segs []Segment, raw string) []Segment {
	escaped := html.EscapeString(raw)
	if n := len(segs); n > 0 && segs[n-1].Type == TypeText {
		segs[n-1].Text += escaped
		return segs
	}
	return append(segs, Text(escaped))
}

func lastIndex(stack []string, tag string) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tag {
			return i
		}
	}
	return -1
}
