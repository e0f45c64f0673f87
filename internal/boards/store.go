// Package boards owns the in-memory board collection of one user session.
//
// Every mutation is applied synchronously under the store's lock and is
// visible to readers immediately. Change listeners run after the lock is
// released, so a listener may read the store without deadlocking.
package boards

import (
	"math"
	"strings"
	"sync"
	"time"

	"moodboard-backend/internal/models"
	"moodboard-backend/internal/quota"
)

type Store struct {
	mu       sync.RWMutex
	boards   []models.Board
	selected string
	plan     quota.Plan
	now      func() time.Time

	// reserved counts image slots held by uploads still in flight, per board.
	reserved map[string]int

	listenersMu sync.Mutex
	listeners   []func()
}

func NewStore(plan quota.Plan) *Store {
	return &Store{
		boards:   []models.Board{},
		selected: models.PrimaryBoardID,
		plan:     plan,
		now:      time.Now,
		reserved: map[string]int{},
	}
}

// SetClock overrides the time source used for CreatedAt and UploadedAt stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// OnChange registers fn to be called after every successful mutation.
func (s *Store) OnChange(fn func()) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

func (s *Store) notify() {
	s.listenersMu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Replace swaps in a freshly loaded collection without notifying listeners.
// The selection is kept when it still exists and otherwise falls back.
func (s *Store) Replace(boards []models.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.boards = models.CloneBoards(boards)
	if s.indexOf(s.selected) < 0 {
		s.selected = s.fallbackSelection()
	}
}

// Snapshot returns a deep copy of the collection.
func (s *Store) Snapshot() []models.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneBoards(s.boards)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.boards)
}

func (s *Store) Board(id string) (models.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Board{}, false
	}
	return s.boards[i].Clone(), true
}

func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return ErrBoardNotFound
	}
	s.selected = id
	return nil
}

func (s *Store) Plan() quota.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan
}

func (s *Store) SetPlan(plan quota.Plan) {
	s.mu.Lock()
	s.plan = plan
	s.mu.Unlock()
}

// Usage recomputes the quota snapshot from the current collection.
func (s *Store) Usage() quota.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return quota.ComputeUsage(s.boards, s.plan)
}

// CreateBoard appends a new board and selects it. The board-count limit is
// checked before anything else so a full collection always reads as a decline.
func (s *Store) CreateBoard(name string, kind models.BoardKind) (models.Board, error) {
	s.mu.Lock()

	if s.plan.MaxBoards > 0 && len(s.boards) >= s.plan.MaxBoards {
		s.mu.Unlock()
		return models.Board{}, ErrBoardLimit
	}

	name = strings.TrimSpace(name)
	if name == "" {
		s.mu.Unlock()
		return models.Board{}, ErrInvalidName
	}
	if kind == "" {
		kind = models.BoardKindCustom
	}
	if !kind.Valid() {
		s.mu.Unlock()
		return models.Board{}, ErrInvalidKind
	}
	if kind == models.BoardKindPrimary {
		if _, ok := PrimaryBoard(s.boards); ok {
			s.mu.Unlock()
			return models.Board{}, ErrPrimaryExists
		}
	}

	board := models.Board{
		ID:        newID(),
		Name:      name,
		Kind:      kind,
		Images:    []models.ImageRef{},
		Tags:      []string{},
		CreatedAt: s.now().UTC(),
	}
	s.boards = append(s.boards, board)
	s.selected = board.ID
	s.mu.Unlock()

	s.notify()
	return board.Clone(), nil
}

// DeleteBoard removes a board. Deleting the selected board moves the
// selection to the first remaining board, or to the primary id when none remain.
func (s *Store) DeleteBoard(id string) error {
	s.mu.Lock()

	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrBoardNotFound
	}
	s.boards = append(s.boards[:i:i], s.boards[i+1:]...)
	delete(s.reserved, id)
	if s.selected == id {
		s.selected = s.fallbackSelection()
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Store) RenameBoard(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrBoardNotFound
	}
	s.boards[i].Name = name
	s.mu.Unlock()

	s.notify()
	return nil
}

// SetTags replaces a board's vibes. Blank entries are dropped and duplicates
// collapse onto their first occurrence.
func (s *Store) SetTags(id string, tags []string, source models.TagSource) ([]string, error) {
	if !source.Valid() {
		return nil, ErrInvalidTagSource
	}
	clean := dedupeTags(nil, tags)

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrBoardNotFound
	}
	s.boards[i].Tags = clean
	s.boards[i].TagSource = source
	out := append([]string{}, clean...)
	s.mu.Unlock()

	s.notify()
	return out, nil
}

// AddTags prepends tags the board does not carry yet, most recent first.
func (s *Store) AddTags(id string, tags []string, source models.TagSource) ([]string, error) {
	if !source.Valid() {
		return nil, ErrInvalidTagSource
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrBoardNotFound
	}
	fresh := dedupeTags(s.boards[i].Tags, tags)
	if len(fresh) == 0 {
		out := append([]string{}, s.boards[i].Tags...)
		s.mu.Unlock()
		return out, nil
	}
	s.boards[i].Tags = append(fresh, s.boards[i].Tags...)
	if source != "" {
		s.boards[i].TagSource = source
	}
	out := append([]string{}, s.boards[i].Tags...)
	s.mu.Unlock()

	s.notify()
	return out, nil
}

// AddImage appends ref to the board's images. It is declined when the board's
// images plus its reserved slots already reach the plan's per-board limit.
func (s *Store) AddImage(boardID string, ref models.ImageRef) error {
	return s.addImage(boardID, ref, false)
}

// ReserveImageSlot holds one image slot on the board until it is filled with
// AddReservedImage or handed back with ReleaseImageSlot.
func (s *Store) ReserveImageSlot(boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(boardID)
	if i < 0 {
		return ErrBoardNotFound
	}
	if s.full(i) {
		return ErrImageLimit
	}
	s.reserved[boardID]++
	return nil
}

func (s *Store) ReleaseImageSlot(boardID string) {
	s.mu.Lock()
	s.release(boardID)
	s.mu.Unlock()
}

// AddReservedImage appends ref into a slot taken with ReserveImageSlot. The
// slot is consumed even when the board has been deleted in the meantime.
func (s *Store) AddReservedImage(boardID string, ref models.ImageRef) error {
	return s.addImage(boardID, ref, true)
}

func (s *Store) addImage(boardID string, ref models.ImageRef, reserved bool) error {
	s.mu.Lock()

	if reserved {
		s.release(boardID)
	}
	i := s.indexOf(boardID)
	if i < 0 {
		s.mu.Unlock()
		return ErrBoardNotFound
	}
	if s.full(i) {
		s.mu.Unlock()
		return ErrImageLimit
	}
	if ref.UploadedAt.IsZero() {
		ref.UploadedAt = s.now().UTC()
	}
	s.boards[i].Images = append(s.boards[i].Images, ref)
	s.mu.Unlock()

	s.notify()
	return nil
}

func (s *Store) full(i int) bool {
	if s.plan.MaxImagesPerBoard <= 0 {
		return false
	}
	return len(s.boards[i].Images)+s.reserved[s.boards[i].ID] >= s.plan.MaxImagesPerBoard
}

func (s *Store) release(boardID string) {
	if s.reserved[boardID] <= 1 {
		delete(s.reserved, boardID)
		return
	}
	s.reserved[boardID]--
}

func (s *Store) RemoveImage(boardID string, index int) (models.ImageRef, error) {
	s.mu.Lock()

	i := s.indexOf(boardID)
	if i < 0 {
		s.mu.Unlock()
		return models.ImageRef{}, ErrBoardNotFound
	}
	images := s.boards[i].Images
	if index < 0 || index >= len(images) {
		s.mu.Unlock()
		return models.ImageRef{}, ErrImageIndex
	}
	removed := images[index]
	s.boards[i].Images = append(images[:index:index], images[index+1:]...)
	s.mu.Unlock()

	s.notify()
	return removed, nil
}

// UpdateImage edits an image's mutable metadata. Nil fields are left as is.
func (s *Store) UpdateImage(boardID string, index int, displayName, description *string) (models.ImageRef, error) {
	s.mu.Lock()

	i := s.indexOf(boardID)
	if i < 0 {
		s.mu.Unlock()
		return models.ImageRef{}, ErrBoardNotFound
	}
	if index < 0 || index >= len(s.boards[i].Images) {
		s.mu.Unlock()
		return models.ImageRef{}, ErrImageIndex
	}
	img := &s.boards[i].Images[index]
	if displayName != nil {
		img.DisplayName = strings.TrimSpace(*displayName)
	}
	if description != nil {
		img.Description = strings.TrimSpace(*description)
	}
	updated := *img
	s.mu.Unlock()

	s.notify()
	return updated, nil
}

// RemainingImageCapacity is how many more images the board accepts under the
// current plan, less the slots reserved by uploads in flight. Unlimited plans
// report math.MaxInt.
func (s *Store) RemainingImageCapacity(boardID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(boardID)
	if i < 0 {
		return 0, ErrBoardNotFound
	}
	if s.plan.MaxImagesPerBoard <= 0 {
		return math.MaxInt, nil
	}
	return max(s.plan.MaxImagesPerBoard-len(s.boards[i].Images)-s.reserved[boardID], 0), nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.boards {
		if s.boards[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) fallbackSelection() string {
	if len(s.boards) > 0 {
		return s.boards[0].ID
	}
	return models.PrimaryBoardID
}

// dedupeTags returns the trimmed, non-empty entries of tags that appear
// neither in existing nor earlier in tags.
func dedupeTags(existing, tags []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(tags))
	for _, t := range existing {
		seen[strings.ToLower(t)] = struct{}{}
	}

	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
