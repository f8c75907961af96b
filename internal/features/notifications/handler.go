package notifications

import (
	"context"
	"time"

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

// GetStatus godoc
// @Summary Notification status
// @Description Number of unseen notifications. Cached per user for a short time.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatusResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /notifications/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	status, err := h.service.Status(c.Request.Context(), userID)
	if err != nil {
		logger.Error("Notification status failed for %s: %v", userID.Hex(), err)
		response.InternalServerError(c, "Failed to fetch notification status", "FETCH_FAILED")
		return
	}

	response.Success(c, status)
}

// ListNotifications godoc
// @Summary List notifications
// @Description Latest 20 notifications, newest first
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ListResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	list, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		response.InternalServerError(c, "Failed to fetch notifications", "FETCH_FAILED")
		return
	}

	response.Success(c, list)
}

// MoreNotifications godoc
// @Summary Older notifications
// @Description Up to 20 notifications last modified before the given time
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param before query string true "RFC3339 timestamp"
// @Success 200 {object} ListResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /notifications/more [get]
func (h *Handler) MoreNotifications(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	var query MoreQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "before is required", "INVALID_QUERY")
		return
	}
	before, err := time.Parse(time.RFC3339Nano, query.Before)
	if err != nil {
		response.BadRequest(c, "before must be an RFC3339 timestamp", "INVALID_QUERY")
		return
	}

	list, err := h.service.More(c.Request.Context(), userID, before)
	if err != nil {
		response.Fail(c, err, "Failed to fetch notifications")
		return
	}

	response.Success(c, list)
}

// MarkRead godoc
// @Summary Mark notification as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorResponse
// @Router /notifications/{id}/read [patch]
func (h *Handler) MarkRead(c *gin.Context) {
	h.mark(c, h.service.MarkRead)
}

// MarkSeen godoc
// @Summary Mark notification as seen
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorResponse
// @Router /notifications/{id}/seen [patch]
func (h *Handler) MarkSeen(c *gin.Context) {
	h.mark(c, h.service.MarkSeen)
}

func (h *Handler) mark(c *gin.Context, fn func(context.Context, primitive.ObjectID, string) error) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	if err := fn(c.Request.Context(), userID, c.Param("id")); err != nil {
		response.Fail(c, err, "Failed to update notification")
		return
	}

	response.Success(c, gin.H{"id": c.Param("id")})
}

// MarkAllRead godoc
// @Summary Mark all notifications as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MarkAllReadResponse
// @Router /notifications/read-all [patch]
func (h *Handler) MarkAllRead(c *gin.Context) {
	userID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	n, err := h.service.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		response.InternalServerError(c, "Failed to mark notifications as read", "UPDATE_FAILED")
		return
	}

	response.Success(c, MarkAllReadResponse{MarkedCount: n})
}
