package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	pingDB   Pinger
	provider string
}

// NewHealthHandler creates the health handler; pingDB may be nil when running without a database
func NewHealthHandler(pingDB Pinger, provider string) *HealthHandler {
	return &HealthHandler{pingDB: pingDB, provider: provider}
}

// Root handles GET /
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": msgWelcome})
}

// HealthCheck handles GET /health. The service stays healthy when the database is down since
// generation does not need it.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	database := "disabled"
	if h.pingDB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		database = "ok"
		if err := h.pingDB(ctx); err != nil {
			database = "unreachable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": database,
		"llm": gin.H{
			"provider": h.provider,
		},
	})
}
