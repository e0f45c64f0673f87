package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"moodboard-backend/internal/boards"
	"moodboard-backend/internal/imaging"
	"moodboard-backend/internal/ingest"
	"moodboard-backend/internal/logging"
	"moodboard-backend/internal/models"
	"moodboard-backend/internal/objectstore"
	"moodboard-backend/internal/quota"
)

func noisy(w, h int, seed int64) image.Image {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	return img
}

func jpegFile(t *testing.T, name string) models.UploadFile {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, noisy(32, 24, int64(len(name))), nil))
	return models.UploadFile{Name: name, ContentType: "image/jpeg", Data: buf.Bytes()}
}

func oversizedFile(name string) models.UploadFile {
	return models.UploadFile{Name: name, ContentType: "image/jpeg", Data: bytes.Repeat([]byte{0xff}, 11<<20)}
}

func newStore(perBoard int) *boards.Store {
	s := boards.NewStore(quota.Plan{Tier: "test", MaxBoards: 5, MaxImagesPerBoard: perBoard, TotalStorageBytes: 1 << 30})
	s.Replace([]models.Board{{ID: models.PrimaryBoardID, Kind: models.BoardKindPrimary, Tags: []string{"rustic"}}})
	return s
}

func newPipeline(uploader ingest.Uploader, concurrency int) *ingest.Pipeline {
	return ingest.NewPipeline(uploader, ingest.Config{Limits: imaging.DefaultLimits(), Concurrency: concurrency}, logging.Nop())
}

func tasksWithStatus(tasks []models.UploadTask, status models.UploadStatus) []models.UploadTask {
	var out []models.UploadTask
	for _, task := range tasks {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out
}

func TestUploadImages_AppliesValidFilesAndReportsFailures(t *testing.T) {
	store := newStore(20)
	mem := objectstore.NewMemory("https://cdn.test")
	tracker := ingest.NewTracker()

	files := []models.UploadFile{
		jpegFile(t, "ceremony.jpg"),
		oversizedFile("huge.jpg"),
		jpegFile(t, "flowers.jpg"),
		{Name: "notes.txt", Data: []byte("seating chart draft, not an image")},
		jpegFile(t, "cake.jpg"),
	}

	res, err := newPipeline(objectstore.NewUploader(mem), 3).
		UploadImages(context.Background(), tracker, files, "u1", models.PrimaryBoardID, store)

	require.NoError(t, err)
	assert.Len(t, res.Uploaded, 3)
	require.Len(t, res.Errors, 2)
	for _, e := range res.Errors {
		assert.Equal(t, models.StageValidate, e.Stage)
		assert.NotEmpty(t, e.Error)
	}

	board, _ := store.Board(models.PrimaryBoardID)
	assert.Len(t, board.Images, 3)
	assert.Equal(t, 3, mem.Uploads())

	tasks := tracker.Tasks()
	require.Len(t, tasks, 5)
	assert.Len(t, tasksWithStatus(tasks, models.UploadStatusCompleted), 3)
	failed := tasksWithStatus(tasks, models.UploadStatusError)
	require.Len(t, failed, 2)
	for _, task := range failed {
		assert.NotEmpty(t, task.Error)
		assert.False(t, task.QuotaDeclined)
	}

	names := map[string]bool{}
	for _, img := range board.Images {
		names[img.DisplayName] = true
		assert.Positive(t, img.SizeBytes)
		assert.True(t, strings.HasPrefix(img.URL, "https://cdn.test/users/u1/mood-boards/primary/"))
	}
	assert.Equal(t, map[string]bool{"ceremony": true, "flowers": true, "cake": true}, names)
}

func TestUploadImages_OversizedReasonMentionsSize(t *testing.T) {
	store := newStore(20)
	tracker := ingest.NewTracker()

	_, err := newPipeline(objectstore.NewUploader(objectstore.NewMemory("https://cdn.test")), 2).
		UploadImages(context.Background(), tracker, []models.UploadFile{oversizedFile("huge.jpg")}, "u1", models.PrimaryBoardID, store)

	require.NoError(t, err)
	tasks := tracker.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, models.UploadStatusError, tasks[0].Status)
	assert.Contains(t, tasks[0].Error, "size")
}

func TestUploadImages_ProgressIsMonotonicWithCheckpoints(t *testing.T) {
	store := newStore(20)
	tracker := ingest.NewTracker()

	var mu sync.Mutex
	seen := map[string][]int{}
	tracker.OnProgress(func(task models.UploadTask) {
		mu.Lock()
		seen[task.ID] = append(seen[task.ID], task.Progress)
		mu.Unlock()
	})

	files := []models.UploadFile{jpegFile(t, "a.jpg"), jpegFile(t, "b.jpg")}
	_, err := newPipeline(objectstore.NewUploader(objectstore.NewMemory("https://cdn.test")), 2).
		UploadImages(context.Background(), tracker, files, "u1", models.PrimaryBoardID, store)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	for _, steps := range seen {
		assert.Equal(t, []int{0, 10, 30, 90, 100}, steps)
	}
}

func TestUploadImages_FirstImageReportedOnce(t *testing.T) {
	store := newStore(20)
	tracker := ingest.NewTracker()

	var mu sync.Mutex
	var firsts []ingest.FirstImage
	tracker.OnFirstImage(func(fi ingest.FirstImage) {
		mu.Lock()
		firsts = append(firsts, fi)
		mu.Unlock()
	})

	files := []models.UploadFile{jpegFile(t, "a.jpg"), jpegFile(t, "b.jpg"), jpegFile(t, "c.jpg")}
	res, err := newPipeline(objectstore.NewUploader(objectstore.NewMemory("https://cdn.test")), 3).
		UploadImages(context.Background(), tracker, files, "u1", models.PrimaryBoardID, store)
	require.NoError(t, err)

	require.Len(t, firsts, 1)
	assert.Equal(t, res.BatchID, firsts[0].BatchID)
	assert.Equal(t, "u1", firsts[0].UserID)
	assert.Equal(t, res.Uploaded[0].URL, firsts[0].Image.URL)
}

func TestUploadImages_DeclinesFilesBeyondCapacity(t *testing.T) {
	store := newStore(2)
	mem := objectstore.NewMemory("https://cdn.test")
	tracker := ingest.NewTracker()

	files := []models.UploadFile{jpegFile(t, "a.jpg"), jpegFile(t, "b.jpg"), jpegFile(t, "c.jpg")}
	res, err := newPipeline(objectstore.NewUploader(mem), 3).
		UploadImages(context.Background(), tracker, files, "u1", models.PrimaryBoardID, store)

	require.NoError(t, err)
	assert.Len(t, res.Uploaded, 2)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, models.StageQuota, res.Errors[0].Stage)
	assert.Equal(t, 2, mem.Uploads())

	declined := tasksWithStatus(tracker.Tasks(), models.UploadStatusError)
	require.Len(t, declined, 1)
	assert.True(t, declined[0].QuotaDeclined)
}

func TestUploadImages_PartialUploadFailureIsNotCatastrophic(t *testing.T) {
	store := newStore(20)
	mem := objectstore.NewMemory("https://cdn.test")
	mem.FailWhen(func(path string) error {
		if strings.HasSuffix(path, "-b.jpg") {
			return errors.New("connection reset")
		}
		return nil
	})

	res, err := newPipeline(objectstore.NewUploader(mem), 2).
		UploadImages(context.Background(), ingest.NewTracker(), []models.UploadFile{jpegFile(t, "a.jpg"), jpegFile(t, "b.jpg")}, "u1", models.PrimaryBoardID, store)

	require.NoError(t, err)
	assert.Len(t, res.Uploaded, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, models.StageUpload, res.Errors[0].Stage)
	assert.Contains(t, res.Errors[0].Error, "connection reset")
}

func TestUploadImages_AllUploadsFailingIsCatastrophic(t *testing.T) {
	store := newStore(20)
	mem := objectstore.NewMemory("https://cdn.test")
	mem.FailWhen(func(string) error { return errors.New("blob store unreachable") })
	tracker := ingest.NewTracker()

	res, err := newPipeline(objectstore.NewUploader(mem), 2).
		UploadImages(context.Background(), tracker, []models.UploadFile{jpegFile(t, "a.jpg"), jpegFile(t, "b.jpg")}, "u1", models.PrimaryBoardID, store)

	require.ErrorIs(t, err, ingest.ErrBatchFailed)
	assert.Contains(t, err.Error(), "blob store unreachable")
	assert.Empty(t, res.Uploaded)
	assert.Len(t, res.Errors, 2)
	assert.Len(t, tasksWithStatus(tracker.Tasks(), models.UploadStatusError), 2)
}

func TestUploadImages_OnlyValidationFailuresIsNotCatastrophic(t *testing.T) {
	_, err := newPipeline(objectstore.NewUploader(objectstore.NewMemory("https://cdn.test")), 2).
		UploadImages(context.Background(), ingest.NewTracker(), []models.UploadFile{oversizedFile("x.jpg")}, "u1", models.PrimaryBoardID, newStore(20))

	assert.NoError(t, err)
}

func TestUploadImages_UnknownBoard(t *testing.T) {
	tracker := ingest.NewTracker()

	_, err := newPipeline(objectstore.NewUploader(objectstore.NewMemory("https://cdn.test")), 2).
		UploadImages(context.Background(), tracker, []models.UploadFile{jpegFile(t, "a.jpg")}, "u1", "missing", newStore(20))

	require.ErrorIs(t, err, boards.ErrBoardNotFound)
	assert.Empty(t, tracker.Tasks())
}

func TestUploadImages_CompressesLargeFiles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, noisy(256, 128, 1)))
	file := models.UploadFile{Name: "venue.png", Data: buf.Bytes()}

	mem := objectstore.NewMemory("https://cdn.test")
	limits := imaging.DefaultLimits()
	limits.CompressAbove = 1 << 10
	limits.MaxWidth = 64
	p := ingest.NewPipeline(objectstore.NewUploader(mem), ingest.Config{Limits: limits}, logging.Nop())

	res, err := p.UploadImages(context.Background(), ingest.NewTracker(), []models.UploadFile{file}, "u1", models.PrimaryBoardID, newStore(20))

	require.NoError(t, err)
	require.Len(t, res.Uploaded, 1)
	require.Len(t, mem.Paths(), 1)
	data, ct, _ := mem.Object(mem.Paths()[0])
	assert.Equal(t, "image/jpeg", ct)
	assert.Less(t, len(data), len(file.Data))
	assert.Equal(t, int64(len(data)), res.Uploaded[0].SizeBytes)
	assert.Equal(t, "venue", res.Uploaded[0].DisplayName)
	assert.True(t, strings.HasSuffix(mem.Paths()[0], "-venue.jpg"), mem.Paths()[0])
}

func TestUploadImages_SameNamedFilesAreAllKept(t *testing.T) {
	store := newStore(20)
	mem := objectstore.NewMemory("https://cdn.test")

	var files []models.UploadFile
	for seed := int64(1); seed <= 4; seed++ {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, noisy(32, 24, seed), nil))
		files = append(files, models.UploadFile{Name: "image.jpg", ContentType: "image/jpeg", Data: buf.Bytes()})
	}

	res, err := newPipeline(objectstore.NewUploader(mem), 4).
		UploadImages(context.Background(), ingest.NewTracker(), files, "u1", models.PrimaryBoardID, store)

	require.NoError(t, err)
	require.Len(t, res.Uploaded, 4)
	assert.Len(t, mem.Paths(), 4)

	board, _ := store.Board(models.PrimaryBoardID)
	urls := map[string]bool{}
	for _, img := range board.Images {
		urls[img.URL] = true
		path := strings.TrimPrefix(img.URL, "https://cdn.test/")
		_, _, ok := mem.Object(path)
		assert.True(t, ok, path)
	}
	assert.Len(t, urls, 4)
}

func TestUploadImages_ConcurrentBatchesShareBoardCapacity(t *testing.T) {
	store := newStore(3)
	mem := objectstore.NewMemory("https://cdn.test")
	p := newPipeline(objectstore.NewUploader(mem), 4)

	var wg sync.WaitGroup
	results := make([]models.BatchResult, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			files := []models.UploadFile{jpegFile(t, "a.jpg"), jpegFile(t, "bb.jpg"), jpegFile(t, "ccc.jpg")}
			res, err := p.UploadImages(context.Background(), ingest.NewTracker(), files, "u1", models.PrimaryBoardID, store)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	uploaded, declined := 0, 0
	for _, res := range results {
		uploaded += len(res.Uploaded)
		for _, e := range res.Errors {
			assert.Equal(t, models.StageQuota, e.Stage)
			declined++
		}
	}
	assert.Equal(t, 3, uploaded)
	assert.Equal(t, 3, declined)

	board, _ := store.Board(models.PrimaryBoardID)
	assert.Len(t, board.Images, 3)
	assert.Equal(t, 3, mem.Uploads())
	n, _ := store.RemainingImageCapacity(models.PrimaryBoardID)
	assert.Zero(t, n)
}

// gatedUploader blocks uploads of gated file names until released.
type gatedUploader struct {
	inner   ingest.Uploader
	gated   string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedUploader) Upload(ctx context.Context, userID, boardID, filename string, data []byte, ct string) (string, error) {
	if filename == g.gated {
		close(g.entered)
		<-g.release
	}
	return g.inner.Upload(ctx, userID, boardID, filename, data, ct)
}

func TestUploadImages_CancelStopsPendingButKeepsCompleted(t *testing.T) {
	store := newStore(20)
	tracker := ingest.NewTracker()
	up := &gatedUploader{
		inner:   objectstore.NewUploader(objectstore.NewMemory("https://cdn.test")),
		gated:   "slow.jpg",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	done := make(chan models.BatchResult, 1)
	go func() {
		res, _ := newPipeline(up, 2).UploadImages(context.Background(), tracker,
			[]models.UploadFile{jpegFile(t, "fast.jpg"), jpegFile(t, "slow.jpg")}, "u1", models.PrimaryBoardID, store)
		done <- res
	}()

	<-up.entered
	require.Eventually(t, func() bool {
		return len(tasksWithStatus(tracker.Tasks(), models.UploadStatusCompleted)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, tracker.Cancel())
	close(up.release)

	res := <-done
	assert.Len(t, res.Uploaded, 1)
	board, _ := store.Board(models.PrimaryBoardID)
	require.Len(t, board.Images, 1)
	assert.Equal(t, "fast", board.Images[0].DisplayName)

	tasks := tracker.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, models.UploadStatusCompleted, tasks[0].Status)
	assert.Equal(t, "fast.jpg", tasks[0].FileName)
}
