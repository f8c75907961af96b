package files

import (
	"strings"

	"github.com/xyz-asif/chatter/internal/transfer"
	apperrors "github.com/xyz-asif/chatter/pkg/errors"
)

const maxTitleLength = 255

// ValidateVersionRecord checks the fields the client must send
func ValidateVersionRecord(rec transfer.VersionRecord) error {
	if rec.APIName != transfer.ContentVersionAPIName {
		return apperrors.Invalid("apiName must be %s", transfer.ContentVersionAPIName)
	}

	f := rec.Fields
	if strings.TrimSpace(f.Title) == "" {
		return apperrors.Invalid("Title is required")
	}
	if len(f.Title) > maxTitleLength {
		return apperrors.Invalid("Title must be at most %d characters", maxTitleLength)
	}
	if strings.TrimSpace(f.PathOnClient) == "" {
		return apperrors.Invalid("PathOnClient is required")
	}
	if f.VersionData == "" {
		return apperrors.Invalid("VersionData is required")
	}
	return nil
}
