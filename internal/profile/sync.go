// Package profile mirrors the primary board's vibes into the user profile's
// couple_vibes field. The mirror is written only, never read back.
package profile

import (
	"context"
	"fmt"

	"moodboard-backend/internal/logging"
	"moodboard-backend/internal/models"
)

type TagsWriter interface {
	PutProfileTags(ctx context.Context, userID string, tags []string) error
}

type Sync struct {
	writer TagsWriter
	log    logging.Logger
}

func NewSync(writer TagsWriter, log logging.Logger) *Sync {
	return &Sync{writer: writer, log: log}
}

// HandleTagsChanged writes ev.Tags to the profile. Errors are logged and returned.
func (s *Sync) HandleTagsChanged(ctx context.Context, ev models.TagsChanged) error {
	if err := s.writer.PutProfileTags(ctx, ev.UserID, ev.Tags); err != nil {
		err = fmt.Errorf("failed to mirror couple vibes: %w", err)
		s.log.Error(ctx, "profile vibes sync failed", "user_id", ev.UserID, "error", err)
		return err
	}
	return nil
}
