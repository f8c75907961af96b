package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/pkg/jwt"
	"github.com/xyz-asif/chatter/internal/pkg/logger"
	"github.com/xyz-asif/chatter/internal/pkg/metrics"
)

// Store is the persistence the auth service needs
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]*User, error)
	SearchByPrefix(ctx context.Context, term string, limit int) ([]User, error)
	LinkGoogleID(ctx context.Context, userID primitive.ObjectID, googleID, photoURL string) error
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type Service struct {
	store    Store
	verifier IdentityVerifier
	jwtCfg   *jwt.Config
}

// NewService wires the auth service. verifier may be nil, which disables
// Google sign-in.
func NewService(store Store, verifier IdentityVerifier, jwtCfg *jwt.Config) *Service {
	return &Service{store: store, verifier: verifier, jwtCfg: jwtCfg}
}

// LoginWithGoogle verifies the ID token, creates or links the user and
// issues an access token.
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResponse, error) {
	if s.verifier == nil {
		return nil, ErrGoogleSignInDisabled
	}

	gUser, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByGoogleID(ctx, gUser.UID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user, err = s.store.GetUserByEmail(ctx, gUser.Email)
		if err != nil {
			return nil, err
		}
		if user != nil {
			if err := s.store.LinkGoogleID(ctx, user.ID, gUser.UID, gUser.Picture); err != nil {
				return nil, err
			}
			user.GoogleID = gUser.UID
		}
	}

	if user == nil {
		name := gUser.Name
		if name == "" {
			name = NameFromEmail(gUser.Email)
		}
		user, err = s.createUser(ctx, &User{
			GoogleID:      gUser.UID,
			Email:         gUser.Email,
			Name:          name,
			SmallPhotoURL: gUser.Picture,
		})
		if err != nil {
			return nil, err
		}
	}

	return s.issue(user)
}

// DevLogin signs in by email, creating the user on first use
func (s *Service) DevLogin(ctx context.Context, email, name string) (*AuthResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		if name == "" {
			name = NameFromEmail(email)
		}
		if err := ValidateDisplayName(name); err != nil {
			return nil, err
		}
		user, err = s.createUser(ctx, &User{Email: email, Name: strings.TrimSpace(name)})
		if err != nil {
			return nil, err
		}
	}
	return s.issue(user)
}

func (s *Service) createUser(ctx context.Context, user *User) (*User, error) {
	base := BaseUsername(user.Name)
	username := base
	for i := 1; ; i++ {
		taken, err := s.store.UsernameExists(ctx, username)
		if err != nil {
			return nil, err
		}
		if !taken {
			break
		}
		if i > 50 {
			return nil, errors.New("could not allocate a username")
		}
		username = fmt.Sprintf("%s%d", base, i)
	}
	user.Username = username

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	logger.Info("Created user %s (%s)", user.ID.Hex(), user.Username)
	return user, nil
}

func (s *Service) issue(user *User) (*AuthResponse, error) {
	token, expiresAt, err := jwt.GenerateToken(user.ID.Hex(), user.Email, user.Name, s.jwtCfg)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResponse{User: user, AccessToken: token, ExpiresAt: expiresAt}, nil
}

// SearchUsers returns up to SearchResultLimit users whose name or username
// starts with term.
func (s *Service) SearchUsers(ctx context.Context, term string) ([]SearchResult, error) {
	term, err := ValidateSearchTerm(term)
	if err != nil {
		return nil, err
	}

	users, err := s.store.SearchByPrefix(ctx, term, SearchResultLimit)
	if err != nil {
		metrics.MentionSearches.WithLabelValues("error").Inc()
		return nil, err
	}

	results := make([]SearchResult, len(users))
	for i, u := range users {
		results[i] = SearchResult{ID: u.ID.Hex(), Name: u.Name}
	}

	if len(results) == 0 {
		metrics.MentionSearches.WithLabelValues("empty").Inc()
	} else {
		metrics.MentionSearches.WithLabelValues("match").Inc()
	}
	return results, nil
}

// NamesByIDs maps hex ids to display names, skipping unknown or malformed ids
func (s *Service) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	users, err := s.usersByHex(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for id, u := range users {
		names[id] = u.Name
	}
	return names, nil
}

// SummariesByIDs maps hex ids to compact user views
func (s *Service) SummariesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[string]Summary, error) {
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Summary, len(users))
	for id, u := range users {
		out[id] = u.Summary()
	}
	return out, nil
}

func (s *Service) usersByHex(ctx context.Context, ids []string) (map[string]*User, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	return s.store.GetUsersByIDs(ctx, oids)
}

// ResolveToken validates an access token and loads its user
func (s *Service) ResolveToken(ctx context.Context, token string) (interface{}, string, error) {
	claims, err := jwt.ValidateToken(token, s.jwtCfg)
	if err != nil {
		return nil, "", err
	}
	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, "", err
	}
	return user, user.ID.Hex(), nil
}
