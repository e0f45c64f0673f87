package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"moodboard-backend/internal/models"
	"moodboard-backend/internal/session"
)

type HealthHandler struct {
	manager *session.Manager
}

func NewHealthHandler(manager *session.Manager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// Get godoc
// @Summary     Health check
// @Description Reports the open sessions. Status is "degraded" while any
// @Description session's last board write failed; the server still answers.
// @Tags        health
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Router      /health [get]
func (h *HealthHandler) Get(c *gin.Context) {
	open, failing := h.manager.Stats()
	status := "ok"
	if failing > 0 {
		status = "degraded"
	}
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:          status,
		OpenSessions:    open,
		FailingSessions: failing,
	})
}
