package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"moodboard-backend/internal/models"
	"moodboard-backend/internal/session"
)

type QuotaHandler struct {
	manager *session.Manager
}

func NewQuotaHandler(manager *session.Manager) *QuotaHandler {
	return &QuotaHandler{manager: manager}
}

// Get godoc
// @Summary     Storage and plan usage
// @Description Estimated storage use against the caller's plan, with the
// @Description near-limit (80%) and over-limit flags.
// @Tags        quota
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.QuotaResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /quota [get]
func (h *QuotaHandler) Get(c *gin.Context) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}

	snap := s.Quota()
	c.JSON(http.StatusOK, models.QuotaResponse{
		PlanTier:     snap.PlanTier,
		UsedBytes:    snap.UsedBytes,
		TotalBytes:   snap.TotalBytes,
		ImageCount:   snap.ImageCount,
		MaxImages:    snap.MaxImages,
		BoardCount:   snap.BoardCount,
		MaxBoards:    snap.MaxBoards,
		UsagePercent: snap.UsagePercent(),
		IsNearLimit:  snap.IsNearLimit(),
		IsOverLimit:  snap.IsOverLimit(),
	})
}
