package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxSearchTermLength = 80
	SearchResultLimit   = 10
)

var nonUsernameChars = regexp.MustCompile(`[^a-z0-9_]+`)

// ValidateSearchTerm trims the term and checks its length
func ValidateSearchTerm(term string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", errors.New("searchTerm is required")
	}
	if utf8.RuneCountInString(term) > MaxSearchTermLength {
		return "", errors.New("searchTerm is too long")
	}
	return term, nil
}

// ValidateDisplayName checks if the display name is valid
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)

	if utf8.RuneCountInString(name) < 2 || utf8.RuneCountInString(name) > 80 {
		return errors.New("name must be between 2 and 80 characters")
	}

	return nil
}

// BaseUsername derives a username candidate from a display name or email.
// Uniqueness is not guaranteed; callers append a suffix on collision.
func BaseUsername(nameOrEmail string) string {
	base := strings.ToLower(nameOrEmail)
	if at := strings.IndexByte(base, '@'); at >= 0 {
		base = base[:at]
	}
	base = strings.ReplaceAll(base, " ", "_")
	base = nonUsernameChars.ReplaceAllString(base, "")

	if len(base) > 20 {
		base = base[:20]
	}
	if len(base) < 3 {
		base = "user_" + base
	}
	return base
}

// NameFromEmail turns "ada.lovelace@x" into "Ada Lovelace"
func NameFromEmail(email string) string {
	local := email
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	parts := strings.FieldsFunc(local, func(r rune) bool { return r == '.' || r == '_' || r == '-' })
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	name := strings.Join(parts, " ")
	if name == "" {
		return "User"
	}
	return name
}
