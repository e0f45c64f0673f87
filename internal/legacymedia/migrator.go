// Package legacymedia moves images still embedded inline in board documents
// into the blob store.
package legacymedia

import (
	"context"
	"fmt"

	"moodboard-backend/internal/imaging"
	"moodboard-backend/internal/logging"
	"moodboard-backend/internal/models"
)

// Uploader is the shared upload step; objectstore.Uploader satisfies it.
type Uploader interface {
	Upload(ctx context.Context, userID, boardID, filename string, data []byte, contentType string) (string, error)
}

type Result struct {
	Migrated int
	Evicted  int
}

// Changed reports whether the collection differs from the input.
func (r Result) Changed() bool {
	return r.Migrated > 0 || r.Evicted > 0
}

type Migrator struct {
	uploader Uploader
	log      logging.Logger
}

func NewMigrator(uploader Uploader, log logging.Logger) *Migrator {
	return &Migrator{uploader: uploader, log: log}
}

// Migrate returns a copy of collection in which every inline image has been
// uploaded and replaced by its blob URL. An image that cannot be decoded or
// uploaded is evicted from its board; the board itself is kept. The input is
// never modified, and a collection with no inline images comes back unchanged.
func (m *Migrator) Migrate(ctx context.Context, userID string, collection []models.Board) ([]models.Board, Result) {
	out := models.CloneBoards(collection)
	var res Result

	for bi := range out {
		board := &out[bi]
		kept := board.Images[:0]
		for i, img := range board.Images {
			if !img.IsInline() {
				kept = append(kept, img)
				continue
			}

			migrated, err := m.migrateImage(ctx, userID, board.ID, i, img)
			if err != nil {
				res.Evicted++
				m.log.Warn(ctx, "evicting legacy inline image",
					"user_id", userID,
					"board_id", board.ID,
					"index", i,
					"error", err,
				)
				continue
			}
			res.Migrated++
			kept = append(kept, migrated)
		}
		board.Images = kept
	}

	if res.Changed() {
		m.log.Info(ctx, "migrated legacy inline images",
			"user_id", userID,
			"migrated", res.Migrated,
			"evicted", res.Evicted,
		)
	}
	return out, res
}

func (m *Migrator) migrateImage(ctx context.Context, userID, boardID string, index int, img models.ImageRef) (models.ImageRef, error) {
	data, contentType, err := DecodeDataURL(img.URL)
	if err != nil {
		return models.ImageRef{}, fmt.Errorf("decode: %w", err)
	}

	filename := fmt.Sprintf("migrated-%s-%d%s", boardID, index, imaging.Extension(contentType))
	url, err := m.uploader.Upload(ctx, userID, boardID, filename, data, contentType)
	if err != nil {
		return models.ImageRef{}, err
	}

	img.URL = url
	img.SizeBytes = int64(len(data))
	return img, nil
}
