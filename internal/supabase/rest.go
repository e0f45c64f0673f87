package supabase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supabase-community/supabase-go"
	"moodboard-backend/internal/models"
)

const profilesTable = "user_profiles"

type profileRow struct {
	UserID          string          `json:"user_id"`
	MoodBoards      json.RawMessage `json:"mood_boards,omitempty"`
	LegacyMoodBoard json.RawMessage `json:"legacy_mood_board,omitempty"`
}

// RESTStore is the document store over Supabase's PostgREST API. The
// postgrest client takes no context; ctx is only checked before each call.
type RESTStore struct {
	client *supabase.Client
}

func NewRESTStore(client *supabase.Client) *RESTStore {
	return &RESTStore{client: client}
}

// DialREST builds a RESTStore for the project at url, authenticating with key.
func DialREST(url, key string) (*RESTStore, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Supabase client: %w", err)
	}
	return NewRESTStore(client), nil
}

func (r *RESTStore) Get(ctx context.Context, userID string) (*models.RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []profileRow
	_, err := r.client.From(profilesTable).
		Select("mood_boards,legacy_mood_board", "", false).
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get mood boards: %w", err)
	}
	if len(rows) == 0 {
		return nil, models.ErrDocumentNotFound
	}

	return &models.RawDocument{
		MoodBoards:      rows[0].MoodBoards,
		LegacyMoodBoard: rows[0].LegacyMoodBoard,
	}, nil
}

func (r *RESTStore) PutBoards(ctx context.Context, userID string, collection []models.Board) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if collection == nil {
		collection = []models.Board{}
	}

	row := map[string]any{
		"user_id":           userID,
		"mood_boards":       collection,
		"legacy_mood_board": nil,
	}
	_, _, err := r.client.From(profilesTable).
		Upsert(row, "user_id", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to save mood boards: %w", err)
	}
	return nil
}

func (r *RESTStore) PutProfileTags(ctx context.Context, userID string, tags []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tags == nil {
		tags = []string{}
	}

	row := map[string]any{
		"user_id":      userID,
		"couple_vibes": tags,
	}
	_, _, err := r.client.From(profilesTable).
		Upsert(row, "user_id", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to save couple vibes: %w", err)
	}
	return nil
}
