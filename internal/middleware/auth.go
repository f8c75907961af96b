package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/chatter/internal/pkg/response"
)

// TokenResolver turns a bearer token into the caller and their id
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (interface{}, string, error)
}

// Auth rejects requests without a valid access token. On success the
// resolved user is stored under "user" and its id under "userID".
func Auth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required", "UNAUTHORIZED")
			c.Abort()
			return
		}

		tokenString := bearerToken(authHeader)
		if tokenString == "" {
			response.Unauthorized(c, "Invalid authorization header", "UNAUTHORIZED")
			c.Abort()
			return
		}

		user, userID, err := resolver.ResolveToken(c.Request.Context(), tokenString)
		if err != nil {
			response.Unauthorized(c, "Invalid token", "INVALID_TOKEN")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("userID", userID)
		c.Next()
	}
}

// Accepts "Bearer <token>" (case-insensitive) or the raw token
func bearerToken(header string) string {
	fields := strings.Fields(header)
	switch {
	case len(fields) == 2 && strings.EqualFold(fields[0], "Bearer"):
		return fields[1]
	case len(fields) == 1 && !strings.EqualFold(fields[0], "Bearer"):
		return fields[0]
	default:
		return ""
	}
}

// CallerID returns the authenticated user's id as set by Auth
func CallerID(c *gin.Context) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(c.GetString("userID"))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}
