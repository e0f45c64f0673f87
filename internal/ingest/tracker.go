package ingest

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"moodboard-backend/internal/models"
)

// FirstImage is reported once per batch, for the earliest file to finish.
type FirstImage struct {
	UserID  string
	BatchID string
	BoardID string
	Image   models.ImageRef
}

type batchState struct {
	boardID   string
	cancelled bool
	finished  bool
	firstDone bool
}

// Tracker holds the observable upload task list of one session. Tasks move
// forward only: pending, validating, uploading, then completed or error.
type Tracker struct {
	mu      sync.Mutex
	tasks   []*models.UploadTask
	batches map[string]*batchState

	listenersMu   sync.Mutex
	progressFns   []func(models.UploadTask)
	firstImageFns []func(FirstImage)
}

func NewTracker() *Tracker {
	return &Tracker{batches: make(map[string]*batchState)}
}

func (t *Tracker) OnProgress(fn func(models.UploadTask)) {
	t.listenersMu.Lock()
	t.progressFns = append(t.progressFns, fn)
	t.listenersMu.Unlock()
}

func (t *Tracker) OnFirstImage(fn func(FirstImage)) {
	t.listenersMu.Lock()
	t.firstImageFns = append(t.firstImageFns, fn)
	t.listenersMu.Unlock()
}

// StartBatch registers one pending task per file name. Tasks of batches that
// have already finished are dropped from the list first.
func (t *Tracker) StartBatch(boardID string, fileNames []string) (string, []string) {
	batchID := uuid.NewString()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneFinishedLocked()

	t.batches[batchID] = &batchState{boardID: boardID}
	ids := make([]string, len(fileNames))
	for i, name := range fileNames {
		task := &models.UploadTask{
			ID:       uuid.NewString(),
			BatchID:  batchID,
			FileName: name,
			BoardID:  boardID,
			Status:   models.UploadStatusPending,
		}
		t.tasks = append(t.tasks, task)
		ids[i] = task.ID
	}
	return batchID, ids
}

func (t *Tracker) pruneFinishedLocked() {
	for id, b := range t.batches {
		if b.finished {
			delete(t.batches, id)
		}
	}
	t.tasks = slices.DeleteFunc(t.tasks, func(task *models.UploadTask) bool {
		_, active := t.batches[task.BatchID]
		return !active
	})
}

// FinishBatch marks a batch as done; its tasks stay visible until the next
// batch starts.
func (t *Tracker) FinishBatch(batchID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.batches[batchID]; ok {
		b.finished = true
	}
}

// Advance moves a task forward. It returns false when the task is gone or its
// batch was cancelled, in which case the caller must stop working on it.
// Backward transitions and progress decreases are ignored.
func (t *Tracker) Advance(taskID string, status models.UploadStatus, progress int) bool {
	return t.update(taskID, func(task *models.UploadTask) {
		if statusRank(status) < statusRank(task.Status) {
			return
		}
		task.Status = status
		task.Progress = max(task.Progress, min(progress, 100))
	})
}

// Fail moves a task to error with a human-readable reason.
func (t *Tracker) Fail(taskID, reason string, quotaDeclined bool) bool {
	return t.update(taskID, func(task *models.UploadTask) {
		task.Status = models.UploadStatusError
		task.Error = reason
		task.QuotaDeclined = quotaDeclined
	})
}

func (t *Tracker) update(taskID string, apply func(*models.UploadTask)) bool {
	t.mu.Lock()
	task := t.findLocked(taskID)
	if task == nil {
		t.mu.Unlock()
		return false
	}
	if b := t.batches[task.BatchID]; b == nil || b.cancelled {
		t.mu.Unlock()
		return false
	}
	if task.Status.Terminal() {
		t.mu.Unlock()
		return true
	}
	apply(task)
	snapshot := *task
	t.mu.Unlock()

	t.listenersMu.Lock()
	fns := append([]func(models.UploadTask){}, t.progressFns...)
	t.listenersMu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
	return true
}

func (t *Tracker) findLocked(taskID string) *models.UploadTask {
	for _, task := range t.tasks {
		if task.ID == taskID {
			return task
		}
	}
	return nil
}

// Cancelled reports whether the batch was cancelled.
func (t *Tracker) Cancelled(batchID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.batches[batchID]
	return !ok || b.cancelled
}

// Cancel removes every task that has not reached a terminal status and stops
// progress for all running batches. Completed uploads are left alone.
// It returns the number of tasks removed.
func (t *Tracker) Cancel() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, b := range t.batches {
		if !b.finished {
			b.cancelled = true
		}
	}

	before := len(t.tasks)
	t.tasks = slices.DeleteFunc(t.tasks, func(task *models.UploadTask) bool {
		return !task.Status.Terminal()
	})
	return before - len(t.tasks)
}

// claimFirst reports true exactly once per batch.
func (t *Tracker) claimFirst(batchID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.batches[batchID]
	if !ok || b.firstDone || b.cancelled {
		return false
	}
	b.firstDone = true
	return true
}

func (t *Tracker) notifyFirstImage(fi FirstImage) {
	t.listenersMu.Lock()
	fns := append([]func(FirstImage){}, t.firstImageFns...)
	t.listenersMu.Unlock()

	for _, fn := range fns {
		fn(fi)
	}
}

// Tasks returns a copy of the task list in creation order.
func (t *Tracker) Tasks() []models.UploadTask {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.UploadTask, len(t.tasks))
	for i, task := range t.tasks {
		out[i] = *task
	}
	return out
}

func statusRank(s models.UploadStatus) int {
	switch s {
	case models.UploadStatusPending:
		return 0
	case models.UploadStatusValidating:
		return 1
	case models.UploadStatusUploading:
		return 2
	case models.UploadStatusCompleted, models.UploadStatusError:
		return 3
	}
	return -1
}
