package supabase_test

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"moodboard-backend/internal/models"
	"moodboard-backend/internal/supabase"
)

// jsonArg matches a driver argument holding JSON equivalent to want.
type jsonArg struct{ want string }

func (a jsonArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var got, want any
	if json.Unmarshal([]byte(s), &got) != nil || json.Unmarshal([]byte(a.want), &want) != nil {
		return false
	}
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	return string(gotJSON) == string(wantJSON)
}

func newMockClient(t *testing.T) (*supabase.DatabaseClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return supabase.NewDatabaseClientWithDB(db), mock
}

func TestDatabaseClient_Get(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`SELECT mood_boards, legacy_mood_board\s+FROM user_profiles`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"mood_boards", "legacy_mood_board"}).
			AddRow([]byte(`[{"id":"primary"}]`), nil))

	doc, err := client.Get(context.Background(), "u1")

	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"primary"}]`, string(doc.MoodBoards))
	assert.Empty(t, doc.LegacyMoodBoard)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseClient_GetNotFound(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`SELECT mood_boards`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"mood_boards", "legacy_mood_board"}))

	_, err := client.Get(context.Background(), "ghost")

	assert.ErrorIs(t, err, models.ErrDocumentNotFound)
}

func TestDatabaseClient_GetQueryError(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`SELECT mood_boards`).WillReturnError(errors.New("connection reset"))

	_, err := client.Get(context.Background(), "u1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrDocumentNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestDatabaseClient_PutBoards(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectExec(`INSERT INTO user_profiles \(user_id, mood_boards, legacy_mood_board, updated_at\)`).
		WithArgs("u1", jsonArg{`[{"id":"primary","name":"Ours","kind":"primary","images":[],"vibes":["rustic"],"createdAt":"0001-01-01T00:00:00Z"}]`}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := client.PutBoards(context.Background(), "u1", []models.Board{{
		ID: "primary", Name: "Ours", Kind: models.BoardKindPrimary,
		Images: []models.ImageRef{}, Tags: []string{"rustic"},
	}})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseClient_PutBoardsError(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectExec(`INSERT INTO user_profiles`).WillReturnError(errors.New("disk full"))

	err := client.PutBoards(context.Background(), "u1", nil)

	assert.ErrorContains(t, err, "disk full")
}

func TestDatabaseClient_PutProfileTags(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectExec(`INSERT INTO user_profiles \(user_id, couple_vibes, updated_at\)`).
		WithArgs("u1", jsonArg{`["rustic","boho"]`}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, client.PutProfileTags(context.Background(), "u1", []string{"rustic", "boho"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
