package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type BoardKind string

const (
	BoardKindPrimary    BoardKind = "primary"
	BoardKindReception  BoardKind = "reception"
	BoardKindEngagement BoardKind = "engagement"
	BoardKindCustom     BoardKind = "custom"
)

func (k BoardKind) Valid() bool {
	switch k {
	case BoardKindPrimary, BoardKindReception, BoardKindEngagement, BoardKindCustom:
		return true
	}
	return false
}

// TagSource records where a board's vibes came from. It only drives UI messaging.
type TagSource string

const (
	TagSourceManual TagSource = "manual"
	TagSourceImage  TagSource = "image-derived"
	TagSourceImport TagSource = "external-import"
)

func (s TagSource) Valid() bool {
	switch s {
	case "", TagSourceManual, TagSourceImage, TagSourceImport:
		return true
	}
	return false
}

// PrimaryBoardID is the well-known id of the board every user always has.
const PrimaryBoardID = "primary"

type ImageRef struct {
	URL         string    `json:"url"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
	SizeBytes   int64     `json:"sizeBytes,omitempty"`
}

// IsInline reports whether the image still carries a self-contained data: payload
// instead of a blob-store reference.
func (r ImageRef) IsInline() bool {
	return len(r.URL) >= 5 && strings.EqualFold(r.URL[:5], "data:")
}

// UnmarshalJSON accepts the object form as well as the legacy form where an
// image was stored as a bare URL string.
func (r *ImageRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var url string
		if err := json.Unmarshal(trimmed, &url); err != nil {
			return err
		}
		*r = ImageRef{URL: url}
		return nil
	}

	type plain ImageRef
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*r = ImageRef(p)
	return nil
}

type Board struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      BoardKind  `json:"kind"`
	Images    []ImageRef `json:"images"`
	Tags      []string   `json:"vibes"`
	CreatedAt time.Time  `json:"createdAt"`
	TagSource TagSource  `json:"vibesSource,omitempty"`
}

// Clone returns a deep copy so callers can never alias the store's slices.
func (b Board) Clone() Board {
	c := b
	c.Images = append(make([]ImageRef, 0, len(b.Images)), b.Images...)
	c.Tags = append(make([]string, 0, len(b.Tags)), b.Tags...)
	return c
}

func CloneBoards(boards []Board) []Board {
	out := make([]Board, len(boards))
	for i, b := range boards {
		out[i] = b.Clone()
	}
	return out
}

// RawDocument is a user's mood-board document as read from the durable store,
// before any decoding or normalization.
type RawDocument struct {
	MoodBoards      json.RawMessage
	LegacyMoodBoard json.RawMessage
}

// TagsChanged is emitted after every successful persist with the primary
// board's vibes.
type TagsChanged struct {
	UserID  string
	BoardID string
	Tags    []string
}
