package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"moodboard-backend/internal/boards"
	"moodboard-backend/internal/models"
)

// DatabaseClient is the Postgres document store. A user's boards live in the
// mood_boards JSONB column of user_profiles.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func NewDatabaseClientWithDB(db *sql.DB) *DatabaseClient {
	return &DatabaseClient{db: db}
}

// Get returns the raw document, or models.ErrDocumentNotFound.
func (d *DatabaseClient) Get(ctx context.Context, userID string) (*models.RawDocument, error) {
	var moodBoards, legacy []byte
	err := d.db.QueryRowContext(ctx, `
		SELECT mood_boards, legacy_mood_board
		FROM user_profiles
		WHERE user_id = $1
	`, userID).Scan(&moodBoards, &legacy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mood boards: %w", err)
	}

	return &models.RawDocument{
		MoodBoards:      json.RawMessage(moodBoards),
		LegacyMoodBoard: json.RawMessage(legacy),
	}, nil
}

// PutBoards writes the whole collection and clears the legacy single-board field.
func (d *DatabaseClient) PutBoards(ctx context.Context, userID string, collection []models.Board) error {
	data, err := boards.EncodeBoards(collection)
	if err != nil {
		return fmt.Errorf("failed to encode mood boards: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, mood_boards, legacy_mood_board, updated_at)
		VALUES ($1, $2::jsonb, NULL, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET mood_boards = EXCLUDED.mood_boards, legacy_mood_board = NULL, updated_at = NOW()
	`, userID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save mood boards: %w", err)
	}
	return nil
}

// PutProfileTags updates only the couple_vibes field.
func (d *DatabaseClient) PutProfileTags(ctx context.Context, userID string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode vibes: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, couple_vibes, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET couple_vibes = EXCLUDED.couple_vibes, updated_at = NOW()
	`, userID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save couple vibes: %w", err)
	}
	return nil
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}
