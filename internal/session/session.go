package session

import (
	"context"

	"moodboard-backend/internal/boards"
	"moodboard-backend/internal/ingest"
	"moodboard-backend/internal/logging"
	"moodboard-backend/internal/models"
	"moodboard-backend/internal/persistence"
	"moodboard-backend/internal/quota"
	"moodboard-backend/internal/realtime"
)

// Session is one user's live state: the board store, its synchronizer and
// the upload task list.
type Session struct {
	UserID  string
	Boards  *boards.Store
	Sync    *persistence.Synchronizer
	Uploads *ingest.Tracker

	pipeline  *ingest.Pipeline
	publisher realtime.Publisher
	log       logging.Logger
}

// UploadImages runs a batch against boardID and announces its start and end.
func (s *Session) UploadImages(ctx context.Context, files []models.UploadFile, boardID string) (models.BatchResult, error) {
	s.publish(ctx, realtime.EventUploadStarted, realtime.UploadStartedPayload(boardID, len(files)))

	res, err := s.pipeline.UploadImages(ctx, s.Uploads, files, s.UserID, boardID, s.Boards)
	if err != nil && res.BatchID == "" {
		return res, err
	}

	s.publish(ctx, realtime.EventUploadCompleted, realtime.UploadCompletedPayload(res))
	return res, err
}

// CancelUploads stops every unfinished upload task and returns how many were removed.
func (s *Session) CancelUploads(ctx context.Context) int {
	n := s.Uploads.Cancel()
	s.log.Info(ctx, "uploads cancelled", "tasks", n)
	s.publish(ctx, realtime.EventUploadCancelled, realtime.UploadCancelledPayload(n))
	return n
}

func (s *Session) Quota() quota.Snapshot {
	return s.Boards.Usage()
}

func (s *Session) publish(ctx context.Context, event string, payload map[string]any) {
	if err := s.publisher.PublishUserEvent(ctx, s.UserID, event, payload); err != nil {
		s.log.Warn(ctx, "failed to publish realtime event", "event", event, "error", err)
	}
}
