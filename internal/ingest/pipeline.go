// Package ingest validates, compresses and uploads batches of board images,
// applying each image to its board as soon as its own upload finishes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"moodboard-backend/internal/boards"
	"moodboard-backend/internal/imaging"
	"moodboard-backend/internal/logging"
	"moodboard-backend/internal/models"
)

// Progress checkpoints reported for every file.
const (
	ProgressValidating = 0
	ProgressUploading  = 10
	ProgressPrepared   = 30
	ProgressUploaded   = 90
	ProgressDone       = 100
)

const defaultConcurrency = 4

// ErrBatchFailed means no file of the batch could be uploaded, which points at
// the blob store rather than at individual files.
var ErrBatchFailed = errors.New("upload failed for every file in the batch")

// Uploader is the shared upload step; objectstore.Uploader satisfies it.
type Uploader interface {
	Upload(ctx context.Context, userID, boardID, filename string, data []byte, contentType string) (string, error)
}

// Boards is the part of the board state store the pipeline calls back into.
// A slot is reserved before a file is uploaded so that concurrent batches
// against the same board never store blobs the board cannot take.
type Boards interface {
	RemainingImageCapacity(boardID string) (int, error)
	ReserveImageSlot(boardID string) error
	ReleaseImageSlot(boardID string)
	AddReservedImage(boardID string, ref models.ImageRef) error
}

type Config struct {
	Limits      imaging.Limits
	Concurrency int
}

type Pipeline struct {
	uploader    Uploader
	limits      imaging.Limits
	concurrency int
	log         logging.Logger
	now         func() time.Time
}

func NewPipeline(uploader Uploader, cfg Config, log logging.Logger) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Pipeline{
		uploader:    uploader,
		limits:      cfg.Limits,
		concurrency: cfg.Concurrency,
		log:         log,
		now:         time.Now,
	}
}

type batch struct {
	userID   string
	boardID  string
	id       string
	tracker *Tracker
	store   Boards

	mu             sync.Mutex
	result         models.BatchResult
	uploadAttempts int
	uploadFailures int
	lastUploadErr  error
}

func (b *batch) fail(taskID string, file models.UploadFile, stage string, err error) {
	declined := boards.IsQuotaDeclined(err)
	b.tracker.Fail(taskID, err.Error(), declined)

	b.mu.Lock()
	b.result.Errors = append(b.result.Errors, models.UploadErrorInfo{
		Filename: file.Name,
		Error:    err.Error(),
		Stage:    stage,
	})
	b.mu.Unlock()
}

// UploadImages runs every file through validate, compress, upload and apply
// concurrently. A bad file only fails its own task. The returned error is
// non-nil only when the target board does not exist or when every attempted
// upload failed.
func (p *Pipeline) UploadImages(ctx context.Context, tracker *Tracker, files []models.UploadFile, userID, boardID string, store Boards) (models.BatchResult, error) {
	remaining, err := store.RemainingImageCapacity(boardID)
	if err != nil {
		return models.BatchResult{BoardID: boardID}, fmt.Errorf("failed to start upload: %w", err)
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	batchID, taskIDs := tracker.StartBatch(boardID, names)
	defer tracker.FinishBatch(batchID)

	b := &batch{
		userID:  userID,
		boardID: boardID,
		id:      batchID,
		tracker: tracker,
		store:   store,
		result: models.BatchResult{
			BatchID:  batchID,
			BoardID:  boardID,
			Uploaded: []models.ImageRef{},
		},
	}

	log := p.log.With("user_id", userID, "board_id", boardID, "batch_id", batchID)
	log.Info(ctx, "upload batch started", "files", len(files), "remaining_capacity", remaining)

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range files {
		file, taskID := files[i], taskIDs[i]
		g.Go(func() error {
			p.processFile(ctx, b, taskID, file, log)
			return nil
		})
	}
	_ = g.Wait()

	log.Info(ctx, "upload batch finished",
		"uploaded", len(b.result.Uploaded),
		"failed", len(b.result.Errors),
		"cancelled", tracker.Cancelled(batchID),
	)

	if b.uploadAttempts > 0 && b.uploadFailures == b.uploadAttempts {
		return b.result, fmt.Errorf("%w: %v", ErrBatchFailed, b.lastUploadErr)
	}
	return b.result, nil
}

func (p *Pipeline) processFile(ctx context.Context, b *batch, taskID string, file models.UploadFile, log logging.Logger) {
	if !b.tracker.Advance(taskID, models.UploadStatusValidating, ProgressValidating) {
		return
	}

	info, err := imaging.Validate(file.Data, p.limits)
	if err != nil {
		b.fail(taskID, file, models.StageValidate, err)
		return
	}

	if err := b.store.ReserveImageSlot(b.boardID); err != nil {
		stage := models.StageApply
		if boards.IsQuotaDeclined(err) {
			stage = models.StageQuota
		}
		b.fail(taskID, file, stage, err)
		return
	}
	reserved := true
	defer func() {
		if reserved {
			b.store.ReleaseImageSlot(b.boardID)
		}
	}()

	if !b.tracker.Advance(taskID, models.UploadStatusUploading, ProgressUploading) {
		return
	}

	name, data, contentType := file.Name, file.Data, info.ContentType
	if imaging.NeedsCompression(data, p.limits) {
		out, compressed, err := imaging.Compress(data, p.limits)
		switch {
		case err != nil:
			log.Warn(ctx, "compression failed, uploading original", "file", file.Name, "error", err)
		case compressed:
			data, contentType = out, "image/jpeg"
			name = strings.TrimSuffix(name, filepath.Ext(name)) + imaging.Extension(contentType)
		}
	}

	if !b.tracker.Advance(taskID, models.UploadStatusUploading, ProgressPrepared) {
		return
	}

	url, err := p.uploader.Upload(ctx, b.userID, b.boardID, name, data, contentType)
	b.mu.Lock()
	b.uploadAttempts++
	if err != nil {
		b.uploadFailures++
		b.lastUploadErr = err
	}
	b.mu.Unlock()
	if err != nil {
		log.Error(ctx, "image upload failed", "file", file.Name, "error", err)
		b.fail(taskID, file, models.StageUpload, fmt.Errorf("upload failed: %w", err))
		return
	}

	if !b.tracker.Advance(taskID, models.UploadStatusUploading, ProgressUploaded) {
		return
	}

	ref := models.ImageRef{
		URL:         url,
		DisplayName: displayName(file.Name),
		UploadedAt:  p.now().UTC(),
		SizeBytes:   int64(len(data)),
	}
	reserved = false
	if err := b.store.AddReservedImage(b.boardID, ref); err != nil {
		stage := models.StageApply
		if boards.IsQuotaDeclined(err) {
			stage = models.StageQuota
		}
		b.fail(taskID, file, stage, err)
		return
	}

	b.tracker.Advance(taskID, models.UploadStatusCompleted, ProgressDone)

	b.mu.Lock()
	b.result.Uploaded = append(b.result.Uploaded, ref)
	first := b.tracker.claimFirst(b.id)
	b.mu.Unlock()

	if first {
		b.tracker.notifyFirstImage(FirstImage{
			UserID:  b.userID,
			BatchID: b.id,
			BoardID: b.boardID,
			Image:   ref,
		})
	}
}

func displayName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." {
		return base
	}
	return name
}
