package boards

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"moodboard-backend/internal/models"
)

func newID() string {
	return uuid.NewString()
}

// legacyMoodBoard is the single-board document shape that predates multiple boards.
type legacyMoodBoard struct {
	Name   string            `json:"name"`
	Images []models.ImageRef `json:"images"`
	Tags   []string          `json:"vibes"`
}

// DecodeDocument turns a raw document into a normalized board collection.
// Image entries of either legacy shape collapse into models.ImageRef here and
// nowhere else. changed reports whether normalization altered anything that
// should be written back.
func DecodeDocument(raw *models.RawDocument, now time.Time) ([]models.Board, bool, error) {
	if raw == nil {
		return []models.Board{}, false, nil
	}

	var boards []models.Board
	changed := false

	if !isNull(raw.MoodBoards) {
		if err := json.Unmarshal(raw.MoodBoards, &boards); err != nil {
			return nil, false, fmt.Errorf("decode mood boards: %w", err)
		}
	}

	if !isNull(raw.LegacyMoodBoard) {
		// The legacy field is cleared by the next write either way.
		changed = true
		if len(boards) == 0 {
			var legacy legacyMoodBoard
			if err := json.Unmarshal(raw.LegacyMoodBoard, &legacy); err != nil {
				return nil, false, fmt.Errorf("decode legacy mood board: %w", err)
			}
			name := legacy.Name
			if name == "" {
				name = DefaultPrimaryName
			}
			boards = []models.Board{{
				ID:        models.PrimaryBoardID,
				Name:      name,
				Kind:      models.BoardKindPrimary,
				Images:    legacy.Images,
				Tags:      legacy.Tags,
				CreatedAt: now.UTC(),
			}}
		}
	}

	if boards == nil {
		boards = []models.Board{}
	}
	for i := range boards {
		if normalizeBoard(&boards[i]) {
			changed = true
		}
	}
	return boards, changed, nil
}

func normalizeBoard(b *models.Board) bool {
	changed := false
	if b.ID == "" {
		b.ID = newID()
		changed = true
	}
	if !b.Kind.Valid() {
		if b.ID == models.PrimaryBoardID {
			b.Kind = models.BoardKindPrimary
		} else {
			b.Kind = models.BoardKindCustom
		}
		changed = true
	}
	if !b.TagSource.Valid() {
		b.TagSource = ""
		changed = true
	}
	if b.Images == nil {
		b.Images = []models.ImageRef{}
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	for i := range b.Images {
		if b.Images[i].DisplayName == "" {
			b.Images[i].DisplayName = fmt.Sprintf("Image %d", i+1)
			changed = true
		}
	}
	return changed
}

// EncodeBoards is the inverse of DecodeDocument for the moodBoards field.
func EncodeBoards(boards []models.Board) ([]byte, error) {
	if boards == nil {
		boards = []models.Board{}
	}
	return json.Marshal(boards)
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
