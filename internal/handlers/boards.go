package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"moodboard-backend/internal/models"
	"moodboard-backend/internal/session"
)

type BoardsHandler struct {
	manager *session.Manager
}

func NewBoardsHandler(manager *session.Manager) *BoardsHandler {
	return &BoardsHandler{manager: manager}
}

// List godoc
// @Summary     List mood boards
// @Description Returns the caller's board collection, the selected board and
// @Description the error of the last durable write, if any.
// @Tags        boards
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.BoardsResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /boards [get]
func (h *BoardsHandler) List(c *gin.Context) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}

	resp := models.BoardsResponse{
		Boards:          s.Boards.Snapshot(),
		SelectedBoardID: s.Boards.Selected(),
	}
	if err := s.Sync.LastError(); err != nil {
		resp.SyncError = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary     Create a mood board
// @Description Creates a board and selects it. Declined with 403 upgrade_required
// @Description when the plan's board limit is reached.
// @Tags        boards
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreateBoardRequest true "Board"
// @Success     201 {object} models.BoardResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /boards [post]
func (h *BoardsHandler) Create(c *gin.Context) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}

	var req models.CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	board, err := s.Boards.CreateBoard(req.Name, req.Kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.BoardResponse{Board: board, SelectedBoardID: s.Boards.Selected()})
}

// Rename godoc
// @Summary     Rename a mood board
// @Tags        boards
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       board_id path string true "Board ID"
// @Param       request body models.RenameBoardRequest true "New name"
// @Success     200 {object} models.BoardResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /boards/{board_id} [patch]
func (h *BoardsHandler) Rename(c *gin.Context) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}

	var req models.RenameBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	boardID := c.Param("board_id")
	if err := s.Boards.RenameBoard(boardID, req.Name); err != nil {
		writeError(c, err)
		return
	}
	board, _ := s.Boards.Board(boardID)
	c.JSON(http.StatusOK, models.BoardResponse{Board: board, SelectedBoardID: s.Boards.Selected()})
}

// Delete godoc
// @Summary     Delete a mood board
// @Description Removes the board. When it was selected, the first remaining
// @Description board becomes the selection.
// @Tags        boards
// @Produce     json
// @Security    Bearer
// @Param       board_id path string true "Board ID"
// @Success     200 {object} models.BoardsResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /boards/{board_id} [delete]
func (h *BoardsHandler) Delete(c *gin.Context) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}

	if err := s.Boards.DeleteBoard(c.Param("board_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.BoardsResponse{
		Boards:          s.Boards.Snapshot(),
		SelectedBoardID: s.Boards.Selected(),
	})
}

// SetTags godoc
// @Summary     Replace a board's vibes
// @Tags        boards
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       board_id path string true "Board ID"
// @Param       request body models.TagsRequest true "Vibes"
// @Success     200 {object} models.TagsResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /boards/{board_id}/tags [put]
func (h *BoardsHandler) SetTags(c *gin.Context) {
	h.tags(c, false)
}

// AddTags godoc
// @Summary     Add vibes to a board
// @Description Prepends vibes the board does not carry yet. Duplicates are
// @Description matched case-insensitively.
// @Tags        boards
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       board_id path string true "Board ID"
// @Param       request body models.TagsRequest true "Vibes"
// @Success     200 {object} models.TagsResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /boards/{board_id}/tags [post]
func (h *BoardsHandler) AddTags(c *gin.Context) {
	h.tags(c, true)
}

func (h *BoardsHandler) tags(c *gin.Context, add bool) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}

	var req models.TagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	if req.Source == "" {
		req.Source = models.TagSourceManual
	}

	boardID := c.Param("board_id")
	var (
		tags []string
		err  error
	)
	if add {
		tags, err = s.Boards.AddTags(boardID, req.Tags, req.Source)
	} else {
		tags, err = s.Boards.SetTags(boardID, req.Tags, req.Source)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	board, _ := s.Boards.Board(boardID)
	c.JSON(http.StatusOK, models.TagsResponse{BoardID: boardID, Tags: tags, Source: board.TagSource})
}

// Select godoc
// @Summary     Select the current board
// @Tags        boards
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.SelectBoardRequest true "Board to select"
// @Success     200 {object} models.BoardResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /selection [put]
func (h *BoardsHandler) Select(c *gin.Context) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}

	var req models.SelectBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	if err := s.Boards.Select(req.BoardID); err != nil {
		writeError(c, err)
		return
	}
	board, _ := s.Boards.Board(req.BoardID)
	c.JSON(http.StatusOK, models.BoardResponse{Board: board, SelectedBoardID: req.BoardID})
}

// UpdateImage godoc
// @Summary     Edit an image's display name or description
// @Tags        images
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       board_id path string true "Board ID"
// @Param       index path int true "Image position"
// @Param       request body models.UpdateImageRequest true "Fields to change"
// @Success     200 {object} models.ImageRef
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /boards/{board_id}/images/{index} [patch]
func (h *BoardsHandler) UpdateImage(c *gin.Context) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}

	index, ok := imageIndex(c)
	if !ok {
		return
	}

	var req models.UpdateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	ref, err := s.Boards.UpdateImage(c.Param("board_id"), index, req.DisplayName, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

// RemoveImage godoc
// @Summary     Remove an image from a board
// @Description The blob stays in object storage.
// @Tags        images
// @Produce     json
// @Security    Bearer
// @Param       board_id path string true "Board ID"
// @Param       index path int true "Image position"
// @Success     200 {object} models.ImageRef
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /boards/{board_id}/images/{index} [delete]
func (h *BoardsHandler) RemoveImage(c *gin.Context) {
	s, ok := sessionFor(c, h.manager)
	if !ok {
		return
	}

	index, ok := imageIndex(c)
	if !ok {
		return
	}

	ref, err := s.Boards.RemoveImage(c.Param("board_id"), index)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

func imageIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid image index", Message: err.Error()})
		return 0, false
	}
	return index, true
}
