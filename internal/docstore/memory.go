// Package docstore holds the in-process document store used for local
// development and by tests that need to observe durable writes.
package docstore

import (
	"context"
	"encoding/json"
	"sync"

	"moodboard-backend/internal/boards"
	"moodboard-backend/internal/models"
)

type document struct {
	moodBoards  json.RawMessage
	legacy      json.RawMessage
	profileTags []string
}

type Memory struct {
	mu          sync.Mutex
	docs        map[string]*document
	boardWrites map[string]int
	putErr      error
	getErr      error
}

func NewMemory() *Memory {
	return &Memory{
		docs:        make(map[string]*document),
		boardWrites: make(map[string]int),
	}
}

// Seed stores a raw document for userID as if it had been written earlier.
func (m *Memory) Seed(userID string, raw models.RawDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[userID] = &document{moodBoards: raw.MoodBoards, legacy: raw.LegacyMoodBoard}
}

// SetPutError makes every subsequent PutBoards fail with err; nil restores it.
func (m *Memory) SetPutError(err error) {
	m.mu.Lock()
	m.putErr = err
	m.mu.Unlock()
}

func (m *Memory) SetGetError(err error) {
	m.mu.Lock()
	m.getErr = err
	m.mu.Unlock()
}

func (m *Memory) Get(ctx context.Context, userID string) (*models.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	doc, ok := m.docs[userID]
	if !ok {
		return nil, models.ErrDocumentNotFound
	}
	return &models.RawDocument{
		MoodBoards:      append(json.RawMessage(nil), doc.moodBoards...),
		LegacyMoodBoard: append(json.RawMessage(nil), doc.legacy...),
	}, nil
}

func (m *Memory) PutBoards(ctx context.Context, userID string, collection []models.Board) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := boards.EncodeBoards(collection)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.putErr != nil {
		return m.putErr
	}
	doc := m.doc(userID)
	doc.moodBoards = data
	doc.legacy = nil
	m.boardWrites[userID]++
	return nil
}

func (m *Memory) PutProfileTags(ctx context.Context, userID string, tags []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc(userID).profileTags = append([]string{}, tags...)
	return nil
}

func (m *Memory) doc(userID string) *document {
	doc, ok := m.docs[userID]
	if !ok {
		doc = &document{}
		m.docs[userID] = doc
	}
	return doc
}

// BoardWrites counts successful PutBoards calls for userID.
func (m *Memory) BoardWrites(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boardWrites[userID]
}

// LastBoards decodes the most recently written collection for userID.
func (m *Memory) LastBoards(userID string) ([]models.Board, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[userID]
	if !ok || len(doc.moodBoards) == 0 {
		return nil, false
	}
	var out []models.Board
	if err := json.Unmarshal(doc.moodBoards, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (m *Memory) ProfileTags(userID string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[userID]
	if !ok || doc.profileTags == nil {
		return nil, false
	}
	return append([]string{}, doc.profileTags...), true
}
