// Package pagetoken encodes keyset pagination positions as opaque tokens.
package pagetoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalid = errors.New("invalid page token")

// Token marks the last item of a page: its sort key and id
type Token struct {
	Timestamp time.Time          `json:"t"`
	ID        primitive.ObjectID `json:"i"`
}

// Encode creates a base64 encoded token from a sort timestamp and id
func Encode(timestamp time.Time, id primitive.ObjectID) string {
	jsonBytes, _ := json.Marshal(Token{Timestamp: timestamp, ID: id})
	return base64.RawURLEncoding.EncodeToString(jsonBytes)
}

// Decode parses a token. An empty string means the first page and returns nil.
func Decode(token string) (*Token, error) {
	if token == "" {
		return nil, nil
	}

	jsonBytes, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalid
	}

	var t Token
	if err := json.Unmarshal(jsonBytes, &t); err != nil {
		return nil, ErrInvalid
	}
	if t.Timestamp.IsZero() || t.ID.IsZero() {
		return nil, ErrInvalid
	}

	return &t, nil
}

// Next returns the token for the page after items, or nil when items did not
// fill the page.
func Next(count, pageSize int, timestamp time.Time, id primitive.ObjectID) *string {
	if count < pageSize || pageSize <= 0 {
		return nil
	}
	s := Encode(timestamp, id)
	return &s
}
