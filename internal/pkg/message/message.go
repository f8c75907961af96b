// Package message turns submitted rich-text bodies into stored segments for
// feed elements and comments.
package message

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/pkg/segments"
	apperrors "github.com/xyz-asif/chatter/pkg/errors"
)

// Names resolves user ids to display names
type Names interface {
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// Parsed is a validated message body
type Parsed struct {
	Segments []segments.Segment
	Text     string
	Mentions []primitive.ObjectID
}

// Parse converts body into segments. {userId} references to known users
// become mentions. Bodies with no readable text are rejected.
func Parse(ctx context.Context, body string, names Names) (*Parsed, error) {
	var lookupErr error
	segs, err := segments.Parse(body, func(ids []string) (map[string]string, error) {
		m, err := names.NamesByIDs(ctx, ids)
		lookupErr = err
		return m, err
	})
	if err != nil {
		if lookupErr != nil {
			return nil, lookupErr
		}
		if errors.Is(err, segments.ErrEmptyBody) {
			return nil, apperrors.Invalid("body is required")
		}
		return nil, apperrors.Invalid("%s", err.Error())
	}

	text := segments.PlainText(segs)
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Invalid("body is required")
	}

	var mentions []primitive.ObjectID
	for _, id := range segments.MentionedIDs(segs) {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			mentions = append(mentions, oid)
		}
	}

	return &Parsed{Segments: segs, Text: text, Mentions: mentions}, nil
}

// Added returns the ids in current that are not in previous
func Added(previous, current []primitive.ObjectID) []primitive.ObjectID {
	old := make(map[primitive.ObjectID]bool, len(previous))
	for _, id := range previous {
		old[id] = true
	}
	var added []primitive.ObjectID
	for _, id := range current {
		if !old[id] {
			added = append(added, id)
		}
	}
	return added
}
