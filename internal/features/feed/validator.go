package feed

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/xyz-asif/chatter/pkg/errors"
)

// ValidateFeedQuery applies defaults and checks the query parameters
func ValidateFeedQuery(query *FeedQuery) error {
	if query.PageSize == 0 {
		query.PageSize = DefaultPageSize
	}
	if query.PageSize < 1 || query.PageSize > MaxPageSize {
		return apperrors.Invalid("pageSize must be between 1 and %d", MaxPageSize)
	}

	switch query.SortOrder {
	case "":
		query.SortOrder = SortCreatedDateDesc
	case SortCreatedDateDesc, SortLastModifiedDateDesc:
	default:
		return apperrors.Invalid("sortOrder must be %s or %s", SortCreatedDateDesc, SortLastModifiedDateDesc)
	}

	query.SearchTerm = strings.TrimSpace(query.SearchTerm)
	if query.SearchTerm != "" && utf8.RuneCountInString(query.SearchTerm) < MinSearchLength {
		return apperrors.Invalid("searchTerm must be at least %d characters", MinSearchLength)
	}

	return nil
}

func sortField(order string) string {
	if order == SortLastModifiedDateDesc {
		return "lastModifiedAt"
	}
	return "createdAt"
}
