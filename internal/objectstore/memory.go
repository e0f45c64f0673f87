package objectstore

import (
	"context"
	"strings"
	"sync"
)

type memoryObject struct {
	Data        []byte
	ContentType string
}

// Memory keeps objects in process memory. It backs local development and
// tests, and can be told to fail specific uploads.
type Memory struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]memoryObject
	uploads int
	failFn  func(path string) error
}

func NewMemory(baseURL string) *Memory {
	return &Memory{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]memoryObject),
	}
}

// FailWhen makes Upload return the error fn yields for a path, if any.
func (m *Memory) FailWhen(fn func(path string) error) {
	m.mu.Lock()
	m.failFn = fn
	m.mu.Unlock()
}

func (m *Memory) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.uploads++
	if m.failFn != nil {
		if err := m.failFn(path); err != nil {
			return "", err
		}
	}
	m.objects[path] = memoryObject{Data: append([]byte(nil), data...), ContentType: contentType}
	return m.baseURL + "/" + path, nil
}

// Object returns a stored object's bytes and content type.
func (m *Memory) Object(path string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[path]
	return obj.Data, obj.ContentType, ok
}

// Paths lists stored object paths in no particular order.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.objects))
	for p := range m.objects {
		out = append(out, p)
	}
	return out
}

// Uploads counts Upload calls, including failed ones.
func (m *Memory) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}
