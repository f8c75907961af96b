package mentions

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinTermLength is the shortest term that triggers a user search
const MinTermLength = 2

var (
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
	entityPattern = regexp.MustCompile(`&[^;]+;`)
)

// StripMarkup removes tags and then entity references from editor HTML.
// Entities are dropped rather than decoded, so "a&nbsp;@b" becomes "a@b".
func StripMarkup(raw string) string {
	return entityPattern.ReplaceAllString(tagPattern.ReplaceAllString(raw, ""), "")
}

// HasMentionTrigger reports whether the first "@" in the cleaned text starts
// the text or follows a space. Later "@" characters are not considered.
func HasMentionTrigger(cleaned string) bool {
	i := strings.IndexByte(cleaned, '@')
	switch {
	case i < 0:
		return false
	case i == 0:
		return true
	default:
		return cleaned[i-1] == ' '
	}
}

// Term returns the text after the last "@" in the cleaned text
func Term(cleaned string) string {
	i := strings.LastIndexByte(cleaned, '@')
	if i < 0 {
		return cleaned
	}
	return cleaned[i+1:]
}

// SearchTerm returns the term to search for in raw editor HTML, or false when
// no search should be issued.
func SearchTerm(raw string) (string, bool) {
	cleaned := StripMarkup(raw)
	if !HasMentionTrigger(cleaned) {
		return "", false
	}
	term := Term(cleaned)
	if utf8.RuneCountInString(term) < MinTermLength {
		return "", false
	}
	return term, true
}
