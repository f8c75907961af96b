package auth

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered user in the system
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GoogleID      string             `bson:"googleId,omitempty" json:"-"`
	Email         string             `bson:"email" json:"email"`
	Username      string             `bson:"username" json:"username"`
	Name          string             `bson:"name" json:"name"`
	NameLower     string             `bson:"nameLower" json:"-"`
	SmallPhotoURL string             `bson:"smallPhotoUrl,omitempty" json:"smallPhotoUrl,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// GoogleAuthRequest represents the payload for Google sign-in
type GoogleAuthRequest struct {
	GoogleIDToken string `json:"googleIdToken" binding:"required"`
}

// DevLoginRequest signs in without Google outside production
type DevLoginRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"omitempty,min=2,max=80"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	User        *User     `json:"user"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// SearchResult is one user match, shaped for the mention picker
type SearchResult struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// SearchQuery is bound from GET /users/search
type SearchQuery struct {
	SearchTerm string `form:"searchTerm"`
}

// Summary is the compact user view embedded in feed items
type Summary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Username      string `json:"username"`
	SmallPhotoURL string `json:"smallPhotoUrl,omitempty"`
}

func (u *User) Summary() Summary {
	return Summary{ID: u.ID.Hex(), Name: u.Name, Username: u.Username, SmallPhotoURL: u.SmallPhotoURL}
}
