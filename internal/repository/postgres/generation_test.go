package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/msomdec/picprompt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGenerationRepository(db)
	now := time.Now().UTC()

	gen := &domain.Generation{ID: "id-1", UserID: 2, Prompt: "a red fox", Style: "default", ImageRef: "data:,x"}
	mock.ExpectQuery(`INSERT INTO generations`).
		WithArgs("id-1", int64(2), "a red fox", "default", "data:,x", "").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	require.NoError(t, repo.Create(context.Background(), gen))
	assert.Equal(t, now, gen.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationRepository_GetByIDForUser_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGenerationRepository(db)

	mock.ExpectQuery(`FROM generations WHERE id = \$1 AND user_id = \$2`).
		WithArgs("id-1", int64(5)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByIDForUser(context.Background(), "id-1", 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGenerationRepository_ListRecentByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGenerationRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`ORDER BY created_at DESC, seq DESC LIMIT \$2`).
		WithArgs(int64(2), 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "prompt", "image_ref", "created_at"}).
			AddRow("b", "second", "data:,b", now).
			AddRow("a", "first", "data:,a", now.Add(-time.Minute)))

	gens, err := repo.ListRecentByUser(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, "second", gens[0].Prompt)
}

func TestGenerationRepository_ListRecentByUser_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGenerationRepository(db)

	mock.ExpectQuery(`FROM generations`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "prompt", "image_ref", "created_at"}))

	gens, err := repo.ListRecentByUser(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.NotNil(t, gens)
	assert.Empty(t, gens)
}

func TestFileStore_GetMissing(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewFileStore(db)

	mock.ExpectQuery(`SELECT data FROM file_blobs`).WithArgs("k").WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
