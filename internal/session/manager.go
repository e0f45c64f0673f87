// Package session owns the per-user sessions of the service.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"moodboard-backend/internal/boards"
	"moodboard-backend/internal/ingest"
	"moodboard-backend/internal/logging"
	"moodboard-backend/internal/models"
	"moodboard-backend/internal/persistence"
	"moodboard-backend/internal/profile"
	"moodboard-backend/internal/quota"
	"moodboard-backend/internal/realtime"
)

const (
	vibesTimeout    = time.Minute
	vibesMaxRetries = 3
)

// DocumentStore is the durable store the sessions read and write.
type DocumentStore interface {
	persistence.DocumentStore
	profile.TagsWriter
}

type VibesExtractor interface {
	ExtractVibesWithRetry(ctx context.Context, imageURL string, maxRetries int) ([]string, error)
}

type Dependencies struct {
	Docs      DocumentStore
	Pipeline  *ingest.Pipeline
	Migrator  persistence.Migrator
	Publisher realtime.Publisher
	// Vibes is optional; without it no tags are derived from images.
	Vibes    VibesExtractor
	Debounce time.Duration
	Log      logging.Logger
}

type loadCall struct {
	done chan struct{}
	sess *Session
	err  error
}

type Manager struct {
	deps    Dependencies
	profile *profile.Sync

	mu       sync.Mutex
	sessions map[string]*Session
	loading  map[string]*loadCall

	bg sync.WaitGroup
}

func NewManager(deps Dependencies) *Manager {
	if deps.Publisher == nil {
		deps.Publisher = realtime.NopPublisher{}
	}
	return &Manager{
		deps:     deps,
		profile:  profile.NewSync(deps.Docs, deps.Log),
		sessions: make(map[string]*Session),
		loading:  make(map[string]*loadCall),
	}
}

// Get returns the user's session, loading it on first use. Concurrent first
// calls share one load. A failed load is not cached.
func (m *Manager) Get(ctx context.Context, userID string, plan quota.Plan) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		s.Boards.SetPlan(plan)
		return s, nil
	}
	if call, ok := m.loading[userID]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if call.err != nil {
			return nil, call.err
		}
		call.sess.Boards.SetPlan(plan)
		return call.sess, nil
	}
	call := &loadCall{done: make(chan struct{})}
	m.loading[userID] = call
	m.mu.Unlock()

	s := m.newSession(userID, plan)
	err := s.Sync.Load(context.WithoutCancel(ctx))

	m.mu.Lock()
	delete(m.loading, userID)
	if err == nil {
		m.sessions[userID] = s
	} else {
		s.Sync.Close()
	}
	m.mu.Unlock()

	call.sess, call.err = s, err
	close(call.done)

	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return s, nil
}

func (m *Manager) newSession(userID string, plan quota.Plan) *Session {
	log := m.deps.Log.With("user_id", userID)
	store := boards.NewStore(plan)
	syncer := persistence.New(userID, m.deps.Docs, store, m.deps.Migrator, m.deps.Debounce, log)

	s := &Session{
		UserID:    userID,
		Boards:    store,
		Sync:      syncer,
		Uploads:   ingest.NewTracker(),
		pipeline:  m.deps.Pipeline,
		publisher: m.deps.Publisher,
		log:       log,
	}

	syncer.OnTagsChanged(func(ev models.TagsChanged) {
		ctx := context.Background()
		_ = m.profile.HandleTagsChanged(ctx, ev)
		s.publish(ctx, realtime.EventTagsChanged, realtime.TagsChangedPayload(ev))
	})
	syncer.OnError(func(err error) {
		s.publish(context.Background(), realtime.EventPersistFailed, realtime.PersistFailedPayload(err.Error()))
	})
	s.Uploads.OnProgress(func(task models.UploadTask) {
		s.publish(context.Background(), realtime.EventUploadProgress, realtime.UploadProgressPayload(task))
	})
	s.Uploads.OnFirstImage(func(fi ingest.FirstImage) {
		s.publish(context.Background(), realtime.EventFirstImage, realtime.FirstImagePayload(fi.BatchID, fi.BoardID, fi.Image))
		m.deriveVibes(s, fi)
	})

	return s
}

// deriveVibes tags a board from its first uploaded image when the board has
// no vibes yet. It runs in the background.
func (m *Manager) deriveVibes(s *Session, fi ingest.FirstImage) {
	if m.deps.Vibes == nil {
		return
	}
	if b, ok := s.Boards.Board(fi.BoardID); !ok || len(b.Tags) > 0 {
		return
	}

	m.bg.Add(1)
	go func() {
		defer m.bg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), vibesTimeout)
		defer cancel()

		tags, err := m.deps.Vibes.ExtractVibesWithRetry(ctx, fi.Image.URL, vibesMaxRetries)
		if err != nil {
			s.log.Warn(ctx, "vibe extraction failed", "board_id", fi.BoardID, "error", err)
			return
		}
		// Manual tags added meanwhile win.
		if b, ok := s.Boards.Board(fi.BoardID); !ok || len(b.Tags) > 0 {
			return
		}
		if _, err := s.Boards.AddTags(fi.BoardID, tags, models.TagSourceImage); err != nil {
			s.log.Warn(ctx, "failed to apply derived vibes", "board_id", fi.BoardID, "error", err)
		}
	}()
}

// Stats reports how many sessions are open and how many of them failed their
// most recent write.
func (m *Manager) Stats() (open, failing int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if s.Sync.LastError() != nil {
			failing++
		}
	}
	return len(m.sessions), failing
}

// Wait blocks until background work such as vibe extraction has finished.
func (m *Manager) Wait() {
	m.bg.Wait()
}

// Shutdown waits for background work and flushes every pending write.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Sync.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", s.UserID, err))
		}
		s.Sync.Close()
	}
	return errors.Join(errs...)
}
