package auth

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/chatter/internal/pkg/logger"
	"github.com/xyz-asif/chatter/internal/pkg/response"
)

type Handler struct {
	service    *Service
	production bool
}

func NewHandler(service *Service, production bool) *Handler {
	return &Handler{service: service, production: production}
}

// CurrentUser returns the authenticated user set by the auth middleware
func CurrentUser(c *gin.Context) (*User, bool) {
	usr, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := usr.(*User)
	return user, ok
}

// GoogleLogin godoc
// @Summary Sign in with Google
// @Description Verifies a Firebase/Google ID token, creates the user on first sign-in and returns an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body GoogleAuthRequest true "Google ID token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/google [post]
func (h *Handler) GoogleLogin(c *gin.Context) {
	var req GoogleAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindJSONError(c, err)
		return
	}

	res, err := h.service.LoginWithGoogle(c.Request.Context(), req.GoogleIDToken)
	if err != nil {
		if errors.Is(err, ErrGoogleSignInDisabled) {
			response.ServiceUnavailable(c, err.Error(), "GOOGLE_SIGNIN_DISABLED")
			return
		}
		logger.Warn("Google sign-in failed: %v", err)
		response.Unauthorized(c, "Invalid Google token", "INVALID_GOOGLE_TOKEN")
		return
	}

	response.Success(c, res)
}

// DevLogin godoc
// @Summary Development sign-in
// @Description Signs in by email without Google. Disabled in production.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body DevLoginRequest true "Email and optional name"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /auth/dev-login [post]
func (h *Handler) DevLogin(c *gin.Context) {
	if h.production {
		response.NotFound(c, "Not found", "NOT_FOUND")
		return
	}

	var req DevLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindJSONError(c, err)
		return
	}

	res, err := h.service.DevLogin(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		logger.Error("Dev login failed for %s: %v", req.Email, err)
		response.BadRequest(c, err.Error(), "LOGIN_FAILED")
		return
	}

	response.Success(c, res)
}

// GetMe godoc
// @Summary Get current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} User
// @Failure 401 {object} response.ErrorResponse
// @Router /users/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "User not found in context", "UNAUTHORIZED")
		return
	}
	response.Success(c, user)
}

// SearchUsers godoc
// @Summary Search users to mention
// @Description Case-insensitive prefix match on name or username, at most 10 results ordered by name
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param searchTerm query string true "Search term"
// @Success 200 {array} SearchResult
// @Failure 400 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Router /users/search [get]
func (h *Handler) SearchUsers(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters", "INVALID_QUERY")
		return
	}

	results, err := h.service.SearchUsers(c.Request.Context(), q.SearchTerm)
	if err != nil {
		if _, verr := ValidateSearchTerm(q.SearchTerm); verr != nil {
			response.BadRequest(c, verr.Error(), "INVALID_SEARCH_TERM")
			return
		}
		logger.Error("User search failed: %v", err)
		response.DatabaseError(c, "Failed to search users")
		return
	}

	response.Success(c, results)
}
