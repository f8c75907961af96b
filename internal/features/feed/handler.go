package feed

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

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

// GetNewsFeed godoc
// @Summary Get news feed
// @Description Elements newest first. Muted elements are excluded. searchTerm filters by body text.
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param pageToken query string false "Page token"
// @Param pageSize query int false "Page size (default 10, max 50)"
// @Param sortOrder query string false "CreatedDateDesc or LastModifiedDateDesc"
// @Param searchTerm query string false "Search term (min 2 characters)"
// @Success 200 {object} FeedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /feed/news [get]
func (h *Handler) GetNewsFeed(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	var query FeedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", "INVALID_QUERY")
		return
	}

	feed, err := h.service.NewsFeed(c.Request.Context(), userID, query)
	if err != nil {
		response.Fail(c, err, "Failed to retrieve feed")
		return
	}

	response.Success(c, feed)
}

// GetRecordFeed godoc
// @Summary Get a record feed
// @Description Elements posted to one record, such as a user profile
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param recordId path string true "Record ID"
// @Param pageToken query string false "Page token"
// @Param pageSize query int false "Page size (default 10, max 50)"
// @Param sortOrder query string false "CreatedDateDesc or LastModifiedDateDesc"
// @Param searchTerm query string false "Search term (min 2 characters)"
// @Success 200 {object} FeedResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /feed/records/{recordId} [get]
func (h *Handler) GetRecordFeed(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	var query FeedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters", "INVALID_QUERY")
		return
	}

	feed, err := h.service.RecordFeed(c.Request.Context(), userID, c.Param("recordId"), query)
	if err != nil {
		response.Fail(c, err, "Failed to retrieve feed")
		return
	}

	response.Success(c, feed)
}

// CreatePost godoc
// @Summary Post a feed element
// @Description Body is rich text; {userId} references become mentions. Up to 10 attachments.
// @Tags feed
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePostRequest true "Post"
// @Success 201 {object} ElementResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /feed/elements [post]
func (h *Handler) CreatePost(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindJSONError(c, err)
		return
	}

	element, err := h.service.CreatePost(c.Request.Context(), userID, req)
	if err != nil {
		logger.Warn("Post by %s failed: %v", userID.Hex(), err)
		response.Fail(c, err, "Failed to create post")
		return
	}

	response.Created(c, element)
}

// GetElement godoc
// @Summary Get a feed element
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feed element ID"
// @Success 200 {object} ElementResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /feed/elements/{id} [get]
func (h *Handler) GetElement(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	element, err := h.service.GetElement(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Fail(c, err, "Failed to retrieve feed element")
		return
	}

	response.Success(c, element)
}

// UpdatePost godoc
// @Summary Edit a post
// @Description Author only. Replaces the body and the attachments.
// @Tags feed
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feed element ID"
// @Param request body UpdatePostRequest true "New content"
// @Success 200 {object} ElementResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /feed/elements/{id} [patch]
func (h *Handler) UpdatePost(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindJSONError(c, err)
		return
	}

	element, err := h.service.UpdatePost(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		response.Fail(c, err, "Failed to update post")
		return
	}

	response.Success(c, element)
}

// DeletePost godoc
// @Summary Delete a post
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feed element ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /feed/elements/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	if err := h.service.DeletePost(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Fail(c, err, "Failed to delete post")
		return
	}

	response.Success(c, nil, "Post deleted")
}

// Like godoc
// @Summary Like a feed element
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feed element ID"
// @Success 200 {object} ToggleResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /feed/elements/{id}/like [post]
func (h *Handler) Like(c *gin.Context) {
	h.toggle(c, h.service.Like)
}

// Unlike godoc
// @Summary Remove a like
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feed element ID"
// @Success 200 {object} ToggleResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /feed/elements/{id}/like [delete]
func (h *Handler) Unlike(c *gin.Context) {
	h.toggle(c, h.service.Unlike)
}

// Bookmark godoc
// @Summary Bookmark a feed element
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feed element ID"
// @Success 200 {object} ToggleResponse
// @Router /feed/elements/{id}/bookmark [post]
func (h *Handler) Bookmark(c *gin.Context) {
	h.toggle(c, h.setter(KindBookmark, true))
}

// RemoveBookmark godoc
// @Summary Remove a bookmark
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feed element ID"
// @Success 200 {object} ToggleResponse
// @Router /feed/elements/{id}/bookmark [delete]
func (h *Handler) RemoveBookmark(c *gin.Context) {
	h.toggle(c, h.setter(KindBookmark, false))
}

// Mute godoc
// @Summary Mute a feed element
// @Description Muted elements no longer appear in the news feed
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feed element ID"
// @Success 200 {object} ToggleResponse
// @Router /feed/elements/{id}/mute [post]
func (h *Handler) Mute(c *gin.Context) {
	h.toggle(c, h.setter(KindMute, true))
}

// Unmute godoc
// @Summary Unmute a feed element
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Feed element ID"
// @Success 200 {object} ToggleResponse
// @Router /feed/elements/{id}/mute [delete]
func (h *Handler) Unmute(c *gin.Context) {
	h.toggle(c, h.setter(KindMute, false))
}

type toggleFunc func(ctx context.Context, callerID primitive.ObjectID, elementID string) (*ToggleResponse, error)

func (h *Handler) setter(kind string, active bool) toggleFunc {
	return func(ctx context.Context, callerID primitive.ObjectID, elementID string) (*ToggleResponse, error) {
		return h.service.Toggle(ctx, callerID, elementID, kind, active)
	}
}

func (h *Handler) toggle(c *gin.Context, fn toggleFunc) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	result, err := fn(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		response.Fail(c, err, "Failed to update feed element")
		return
	}

	response.Success(c, result)
}
