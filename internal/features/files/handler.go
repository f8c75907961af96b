package files

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/chatter/internal/middleware"
	"github.com/xyz-asif/chatter/internal/pkg/logger"
	"github.com/xyz-asif/chatter/internal/pkg/response"
	"github.com/xyz-asif/chatter/internal/transfer"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateVersion godoc
// @Summary Create a content version
// @Description Stores base64 VersionData and creates a content document. A repeated ReasonForChange returns the existing version.
// @Tags files
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body transfer.VersionRecord true "Version record"
// @Success 201 {object} CreateVersionResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /files/versions [post]
func (h *Handler) CreateVersion(c *gin.Context) {
	ownerID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "User not found in context", "UNAUTHORIZED")
		return
	}

	var rec transfer.VersionRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		response.BindJSONError(c, err)
		return
	}

	id, err := h.service.CreateVersion(c.Request.Context(), ownerID, rec)
	if err != nil {
		if errors.Is(err, ErrStorageDisabled) {
			response.ServiceUnavailable(c, err.Error(), "STORAGE_DISABLED")
			return
		}
		logger.Error("Create version failed for %s: %v", ownerID.Hex(), err)
		response.Fail(c, err, "Failed to store file")
		return
	}

	response.Created(c, CreateVersionResponse{ID: id})
}

// GetVersionDocument godoc
// @Summary Resolve a version to its content document
// @Tags files
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content version ID"
// @Success 200 {object} transfer.DocumentRef
// @Failure 404 {object} response.ErrorResponse
// @Router /files/versions/{id}/document [get]
func (h *Handler) GetVersionDocument(c *gin.Context) {
	ownerID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "User not found in context", "UNAUTHORIZED")
		return
	}

	ref, err := h.service.ResolveDocument(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		response.Fail(c, err, "Failed to resolve content document")
		return
	}

	response.Success(c, ref)
}

// DeleteDocument godoc
// @Summary Delete a content document
// @Tags files
// @Produce json
// @Security BearerAuth
// @Param id path string true "Content document ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /files/documents/{id} [delete]
func (h *Handler) DeleteDocument(c *gin.Context) {
	ownerID, ok := middleware.CallerID(c)
	if !ok {
		response.Unauthorized(c, "User not found in context", "UNAUTHORIZED")
		return
	}

	if err := h.service.DeleteDocument(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		logger.Warn("Delete document %s failed: %v", c.Param("id"), err)
		response.Fail(c, err, "Failed to delete content document")
		return
	}

	response.Success(c, nil, "Content document deleted")
}
