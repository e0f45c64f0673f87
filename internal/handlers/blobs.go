package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"moodboard-backend/internal/models"
	"moodboard-backend/internal/objectstore"
)

// BlobsHandler serves objects of the in-memory blob store so image URLs
// resolve during local runs.
type BlobsHandler struct {
	store *objectstore.Memory
}

func NewBlobsHandler(store *objectstore.Memory) *BlobsHandler {
	return &BlobsHandler{store: store}
}

func (h *BlobsHandler) Get(c *gin.Context) {
	data, contentType, ok := h.store.Object(strings.TrimPrefix(c.Param("path"), "/"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "object not found"})
		return
	}
	c.Data(http.StatusOK, contentType, data)
}
