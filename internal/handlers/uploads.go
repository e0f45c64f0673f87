package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"moodboard-backend/internal/imaging"
	"moodboard-backend/internal/models"
	"moodboard-backend/internal/session"
)

// Field names accepted for the uploaded files, first match wins.
var uploadFieldNames = []string{"images", "image", "files", "file", "photos", "photo"}

// DefaultMaxUploadBodyBytes caps a whole upload request.
const DefaultMaxUploadBodyBytes = 256 << 20

type UploadsHandler struct {
	manager      *session.Manager
	limits       imaging.Limits
	maxBodyBytes int64
}

func NewUploadsHandler(manager *session.Manager) *UploadsHandler {
	return &UploadsHandler{
		manager:      manager,
		limits:       imaging.DefaultLimits(),
		maxBodyBytes: DefaultMaxUploadBodyBytes,
	}
}

// SetLimits overrides the per-file limits and the request body cap.
func (h *UploadsHandler) SetLimits(limits imaging.Limits, maxBodyBytes int64) {
	h.limits = limits
	h.maxBodyBytes = maxBodyBytes
}

// Upload godoc
// @Summary     Upload images to a board
// @Description Validates, compresses and uploads every file of the batch in
// @Description parallel. Each image is added to the board as soon as its own
// @Description upload finishes; failures are reported per file with the stage
// @Description that failed.
// @Description
// @Description Files past the board's image limit are declined with stage
// @Description "quota". The batch keeps running when the client disconnects.
// @Tags        images
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       board_id path string true "Board ID"
// @Param       images formData file true "Images (multiple files allowed)"
// @Success     200 {object} models.UploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     413 {object} models.ErrorResponse
// @Failure     502 {object} models.ErrorResponse
// @Router      /boards/{board_id}/images [post]
func (h *UploadsHandler) Upload(c *gin.Context) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}

	boardID := c.Param("board_id")
	if _, ok := s.Boards.Board(boardID); !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "board not found"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)

	// Set max memory for multipart form (32MB)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error:   "request body too large",
				Message: fmt.Sprintf("upload requests are limited to %d bytes", tooLarge.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse multipart form",
			Message: err.Error(),
		})
		return
	}
	form := c.Request.MultipartForm

	var headers []*multipart.FileHeader
	for _, fieldName := range uploadFieldNames {
		if f := form.File[fieldName]; len(f) > 0 {
			headers = f
			break
		}
	}
	if len(headers) == 0 {
		availableFields := make([]string, 0, len(form.File))
		for fieldName := range form.File {
			availableFields = append(availableFields, fieldName)
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "no files uploaded",
			Message: fmt.Sprintf("please provide files with one of these field names: %v. Available fields in request: %v", uploadFieldNames, availableFields),
		})
		return
	}

	files := make([]models.UploadFile, 0, len(headers))
	readErrors := make([]models.UploadErrorInfo, 0)
	for _, fh := range headers {
		if err := imaging.CheckSize(fh.Size, h.limits); err != nil {
			readErrors = append(readErrors, models.UploadErrorInfo{
				Filename: fh.Filename,
				Error:    err.Error(),
				Stage:    models.StageValidate,
			})
			continue
		}
		data, err := readFormFile(fh)
		if err != nil {
			readErrors = append(readErrors, models.UploadErrorInfo{
				Filename: fh.Filename,
				Error:    err.Error(),
				Stage:    "file_read",
			})
			continue
		}
		files = append(files, models.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	// Images already uploaded must still be applied if the client goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	res, err := s.UploadImages(ctx, files, boardID)
	if err != nil {
		writeError(c, err)
		return
	}

	errs := append(readErrors, res.Errors...)
	status := "completed"
	if len(errs) > 0 {
		status = "partial"
	}
	c.JSON(http.StatusOK, models.UploadResponse{
		BatchID: res.BatchID,
		BoardID: boardID,
		Files:   res.Uploaded,
		Status:  status,
		Errors:  errs,
	})
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	return data, nil
}

// List godoc
// @Summary     List upload tasks
// @Tags        images
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.UploadsResponse
// @Router      /uploads [get]
func (h *UploadsHandler) List(c *gin.Context) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.UploadsResponse{Tasks: s.Uploads.Tasks()})
}

// Cancel godoc
// @Summary     Cancel unfinished uploads
// @Description Removes every unfinished task. Uploads already in flight are
// @Description not applied to the board.
// @Tags        images
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.CancelResponse
// @Router      /uploads [delete]
func (h *UploadsHandler) Cancel(c *gin.Context) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.CancelResponse{Cancelled: s.CancelUploads(c.Request.Context())})
}
