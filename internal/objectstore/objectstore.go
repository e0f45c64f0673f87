// Package objectstore is the blob-store boundary: backends take bytes under a
// caller-built path and hand back a fetchable URL.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Store uploads bytes under path and returns a durable, fetchable URL.
// Network timeouts are the backend's responsibility.
type Store interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

var ErrEmptyObject = errors.New("refusing to upload an empty object")

// ObjectPath builds users/{userID}/mood-boards/{boardID}/{unixMilli}-{token}-{filename}.
// token must differ between uploads that can share a millisecond, since phones
// name every photo of a burst the same.
func ObjectPath(userID, boardID string, ts time.Time, token, filename string) string {
	return fmt.Sprintf("users/%s/mood-boards/%s/%d-%s-%s",
		userID, boardID, ts.UnixMilli(), token, SanitizeFilename(filename))
}

func newToken() string {
	return uuid.NewString()[:8]
}

// SanitizeFilename reduces a user-supplied name to a single safe path segment.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		name = ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "image"
	}
	return out
}

// Uploader is the single upload step shared by the ingestion pipeline and the
// legacy media migrator.
type Uploader struct {
	store Store
	now   func() time.Time
	token func() string
}

func NewUploader(store Store) *Uploader {
	return &Uploader{store: store, now: time.Now, token: newToken}
}

// WithClock returns a copy of u using now for path timestamps.
func (u *Uploader) WithClock(now func() time.Time) *Uploader {
	return &Uploader{store: u.store, now: now, token: u.token}
}

func (u *Uploader) Upload(ctx context.Context, userID, boardID, filename string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyObject
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectPath := ObjectPath(userID, boardID, u.now(), u.token(), filename)
	url, err := u.store.Upload(ctx, objectPath, data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	return url, nil
}
