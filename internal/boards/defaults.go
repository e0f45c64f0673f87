package boards

import (
	"time"

	"moodboard-backend/internal/models"
)

// DefaultPrimaryName is the name given to an auto-created primary board.
const DefaultPrimaryName = "Our Wedding"

// EnsureDefaults guarantees exactly one primary board. A missing primary board
// is prepended; any primary beyond the first is demoted to custom. The input
// is never modified. changed reports whether the result differs from boards.
func EnsureDefaults(boards []models.Board, now time.Time) ([]models.Board, bool) {
	out := models.CloneBoards(boards)
	changed := false

	seen := false
	for i := range out {
		if out[i].Kind != models.BoardKindPrimary {
			continue
		}
		if seen {
			out[i].Kind = models.BoardKindCustom
			changed = true
			continue
		}
		seen = true
	}

	if !seen {
		primary := models.Board{
			ID:        models.PrimaryBoardID,
			Name:      DefaultPrimaryName,
			Kind:      models.BoardKindPrimary,
			Images:    []models.ImageRef{},
			Tags:      []string{},
			CreatedAt: now.UTC(),
		}
		// An id collision with a non-primary board would break lookups.
		for _, b := range out {
			if b.ID == models.PrimaryBoardID {
				primary.ID = newID()
				break
			}
		}
		out = append([]models.Board{primary}, out...)
		changed = true
	}

	return out, changed
}

// PrimaryBoard returns the first board of kind primary.
func PrimaryBoard(boards []models.Board) (models.Board, bool) {
	for _, b := range boards {
		if b.Kind == models.BoardKindPrimary {
			return b, true
		}
	}
	return models.Board{}, false
}
