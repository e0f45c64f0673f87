package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"moodboard-backend/internal/boards"
	"moodboard-backend/internal/ingest"
	"moodboard-backend/internal/middleware"
	"moodboard-backend/internal/models"
	"moodboard-backend/internal/quota"
	"moodboard-backend/internal/session"
)

// sessionFor resolves the caller's session, writing the error response when
// it cannot.
func sessionFor(c *gin.Context, manager *session.Manager) (*session.Session, bool) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return nil, false
	}

	plan := quota.PlanFor(c.GetString(middleware.PlanTierKey))
	s, err := manager.Get(c.Request.Context(), userID, plan)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to load mood boards",
			Message: err.Error(),
		})
		return nil, false
	}
	return s, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case boards.IsQuotaDeclined(err):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "upgrade_required", Message: err.Error()})
	case errors.Is(err, boards.ErrBoardNotFound), errors.Is(err, boards.ErrImageIndex):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found", Message: err.Error()})
	case errors.Is(err, boards.ErrPrimaryExists):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "conflict", Message: err.Error()})
	case errors.Is(err, boards.ErrInvalidName),
		errors.Is(err, boards.ErrInvalidKind),
		errors.Is(err, boards.ErrInvalidTagSource):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
	case errors.Is(err, ingest.ErrBatchFailed):
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: "upload failed", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error", Message: err.Error()})
	}
}
