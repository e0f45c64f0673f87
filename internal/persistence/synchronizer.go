// Package persistence keeps the durable document store eventually consistent
// with a session's in-memory board collection.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"moodboard-backend/internal/boards"
	"moodboard-backend/internal/legacymedia"
	"moodboard-backend/internal/logging"
	"moodboard-backend/internal/models"
)

const DefaultDebounce = time.Second

var ErrNotLoaded = errors.New("board collection not loaded")

type DocumentStore interface {
	Get(ctx context.Context, userID string) (*models.RawDocument, error)
	PutBoards(ctx context.Context, userID string, collection []models.Board) error
}

type Migrator interface {
	Migrate(ctx context.Context, userID string, collection []models.Board) ([]models.Board, legacymedia.Result)
}

// Synchronizer loads a user's collection into a boards.Store and writes it back
// after every burst of mutations. Only the newest full snapshot is written.
// A failed write is not retried until the next mutation schedules one.
type Synchronizer struct {
	userID   string
	docs     DocumentStore
	store    *boards.Store
	migrator Migrator
	debounce time.Duration
	log      logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	loaded  bool
	lastErr error

	// inflight counts timer-fired writes still running; idle is closed when
	// it drops back to zero.
	inflight int
	idle     chan struct{}

	// writeMu keeps a slow write from overlapping the next one.
	writeMu sync.Mutex

	listenersMu sync.Mutex
	tagsFns     []func(models.TagsChanged)
	errFns      []func(error)
}

// New wires a synchronizer to store. migrator may be nil.
func New(userID string, docs DocumentStore, store *boards.Store, migrator Migrator, debounce time.Duration, log logging.Logger) *Synchronizer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	s := &Synchronizer{
		userID:   userID,
		docs:     docs,
		store:    store,
		migrator: migrator,
		debounce: debounce,
		log:      log.With("user_id", userID),
		now:      time.Now,
	}
	store.OnChange(s.schedule)
	return s
}

// OnTagsChanged registers fn for the primary board's vibes after each
// successful write.
func (s *Synchronizer) OnTagsChanged(fn func(models.TagsChanged)) {
	s.listenersMu.Lock()
	s.tagsFns = append(s.tagsFns, fn)
	s.listenersMu.Unlock()
}

// OnError registers fn for failed writes.
func (s *Synchronizer) OnError(fn func(error)) {
	s.listenersMu.Lock()
	s.errFns = append(s.errFns, fn)
	s.listenersMu.Unlock()
}

// Load fetches, decodes, defaults and migrates the user's collection, then
// hands it to the store. Nothing is written until Load succeeds. When the
// loaded collection had to be changed it is written back once, right away; a
// failure of that write is reported like any other write failure and does
// not fail the load.
func (s *Synchronizer) Load(ctx context.Context) error {
	raw, err := s.docs.Get(ctx, s.userID)
	if errors.Is(err, models.ErrDocumentNotFound) {
		raw, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("failed to load mood boards: %w", err)
	}

	now := s.now()
	collection, changed, err := boards.DecodeDocument(raw, now)
	if err != nil {
		return fmt.Errorf("failed to load mood boards: %w", err)
	}

	collection, defaulted := boards.EnsureDefaults(collection, now)
	changed = changed || defaulted

	if s.migrator != nil {
		var res legacymedia.Result
		collection, res = s.migrator.Migrate(ctx, s.userID, collection)
		changed = changed || res.Changed()
	}

	s.store.Replace(collection)

	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()

	s.log.Info(ctx, "mood boards loaded", "boards", len(collection), "rewrite", changed)

	if changed {
		_ = s.write(ctx)
	}
	return nil
}

func (s *Synchronizer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// LastError is the error of the most recent write, nil after a success.
func (s *Synchronizer) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// schedule (re)arms the debounce timer. Mutations before Load are ignored.
func (s *Synchronizer) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return
	}
	s.pending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.fire)
}

func (s *Synchronizer) fire() {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
	s.mu.Unlock()

	_ = s.write(context.Background())

	s.mu.Lock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
	s.mu.Unlock()
}

// Flush writes a pending change immediately instead of waiting for the timer,
// then waits for any write the timer already started. With nothing pending,
// the error of that timer write is returned.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	pending := s.pending
	s.pending = false
	s.mu.Unlock()

	var err error
	if pending {
		err = s.write(ctx)
	}

	s.mu.Lock()
	busy, idle := s.inflight > 0, s.idle
	s.mu.Unlock()
	if !busy {
		return err
	}

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}
	if pending {
		return err
	}
	return s.LastError()
}

// Close drops any pending write without performing it.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = false
}

func (s *Synchronizer) write(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !s.Loaded() {
		return ErrNotLoaded
	}

	snapshot := s.store.Snapshot()
	if len(snapshot) == 0 {
		// Never replace durable boards with an empty collection.
		s.log.Warn(ctx, "skipping write of empty board collection")
		return nil
	}

	if err := s.docs.PutBoards(ctx, s.userID, snapshot); err != nil {
		err = fmt.Errorf("failed to save mood boards: %w", err)
		s.setLastErr(err)
		s.log.Error(ctx, "mood board write failed", "error", err)
		s.emitError(err)
		return err
	}
	s.setLastErr(nil)
	s.log.Debug(ctx, "mood boards saved", "boards", len(snapshot))

	if primary, ok := boards.PrimaryBoard(snapshot); ok {
		s.emitTags(models.TagsChanged{
			UserID:  s.userID,
			BoardID: primary.ID,
			Tags:    primary.Tags,
		})
	}
	return nil
}

func (s *Synchronizer) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Synchronizer) emitTags(ev models.TagsChanged) {
	s.listenersMu.Lock()
	fns := append([]func(models.TagsChanged){}, s.tagsFns...)
	s.listenersMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Synchronizer) emitError(err error) {
	s.listenersMu.Lock()
	fns := append([]func(error){}, s.errFns...)
	s.listenersMu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}
