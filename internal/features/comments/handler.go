package comments

import (
	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/chatter/internal/middleware"
	"github.com/xyz-asif/chatter/internal/pkg/logger"
	"github.com/xyz-asif/chatter/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListComments godoc
// @Summary List comments on a feed element
// @Description Oldest first. Pass nextPageToken back as pageParam for the next page.
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feed element ID"
// @Param pageParam query string false "Page token"
// @Param pageSize query int false "Page size (default 10, max 50)"
// @Success 200 {object} Page
// @Failure 404 {object} response.ErrorResponse
// @Router /feed/elements/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", "INVALID_QUERY")
		return
	}

	page, err := h.service.List(c.Request.Context(), userID, c.Param("id"), query)
	if err != nil {
		response.Fail(c, err, "Failed to fetch comments")
		return
	}

	response.Success(c, page)
}

// AddComment godoc
// @Summary Comment on a feed element
// @Description Body is rich text; {userId} references become mentions. At most one attachment.
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feed element ID"
// @Param request body CreateCommentRequest true "Comment"
// @Success 201 {object} CommentResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /feed/elements/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindJSONError(c, err)
		return
	}

	comment, err := h.service.Create(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		logger.Warn("Comment on %s failed: %v", c.Param("id"), err)
		response.Fail(c, err, "Failed to create comment")
		return
	}

	response.Created(c, comment)
}

// EditComment godoc
// @Summary Edit a comment
// @Description Author only. The attachment cannot change.
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Param request body UpdateCommentRequest true "New body"
// @Success 200 {object} CommentResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /comments/{id} [patch]
func (h *Handler) EditComment(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindJSONError(c, err)
		return
	}

	comment, err := h.service.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Fail(c, err, "Failed to update comment")
		return
	}

	response.Success(c, comment)
}

// DeleteComment godoc
// @Summary Delete a comment
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Comment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /comments/{id} [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Fail(c, err, "Failed to delete comment")
		return
	}

	response.Success(c, nil, "Comment deleted")
}
