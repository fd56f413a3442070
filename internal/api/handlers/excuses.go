package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/excuse-lab/excuse-api/internal/api/middleware"
	"github.com/excuse-lab/excuse-api/internal/logger"
	"github.com/excuse-lab/excuse-api/internal/models"
	"github.com/excuse-lab/excuse-api/internal/services"
	"github.com/gin-gonic/gin"
)

type ExcuseHandler struct {
	excuses ExcuseStore
}

func NewExcuseHandler(excuses ExcuseStore) *ExcuseHandler {
	return &ExcuseHandler{excuses: excuses}
}

// CreateExcuseRequest is the body of POST /api/excuses
type CreateExcuseRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"max=50"`
}

// List handles GET /api/excuses
func (h *ExcuseHandler) List(c *gin.Context) {
	userID, _ := middleware.GetCurrentUserID(c)

	excuses, err := h.excuses.List(userID)
	if err != nil {
		h.internalError(c, "Failed to list excuses", err)
		return
	}
	c.JSON(http.StatusOK, excuses)
}

// Get handles GET /api/excuses/:id
func (h *ExcuseHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	excuse, err := h.excuses.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrExcuseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": msgExcuseNotFound})
			return
		}
		h.internalError(c, "Failed to get excuse", err)
		return
	}

	// Private excuses are only visible to their owner
	if userID, _ := middleware.GetCurrentUserID(c); excuse.UserID != "" && excuse.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"detail": msgExcuseNotFound})
		return
	}
	c.JSON(http.StatusOK, excuse)
}

// Create handles POST /api/excuses
func (h *ExcuseHandler) Create(c *gin.Context) {
	var req CreateExcuseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	userID, _ := middleware.GetCurrentUserID(c)
	excuse := &models.Excuse{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		UserID:      userID,
	}
	if err := h.excuses.Create(excuse); err != nil {
		h.internalError(c, "Failed to create excuse", err)
		return
	}
	c.JSON(http.StatusOK, excuse)
}

// Delete handles DELETE /api/excuses/:id
func (h *ExcuseHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	userID, _ := middleware.GetCurrentUserID(c)
	if err := h.excuses.Delete(id, userID); err != nil {
		if errors.Is(err, services.ErrExcuseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": msgExcuseNotFound})
			return
		}
		h.internalError(c, "Failed to delete excuse", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Categories handles GET /api/categories
func (h *ExcuseHandler) Categories(c *gin.Context) {
	categories, err := h.excuses.Categories()
	if err != nil {
		h.internalError(c, "Failed to list categories", err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *ExcuseHandler) internalError(c *gin.Context, msg string, err error) {
	logger.Error(msg, err, logger.WithContext(c))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": msgInvalidID})
		return 0, false
	}
	return uint(id), true
}

// StorageUnavailable answers 503 for routes that need the database when none is configured
func StorageUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "database is not configured"})
	c.Abort()
}
