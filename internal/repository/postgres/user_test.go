package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/msomdec/picprompt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("a@example.com", "A", "hash", "", domain.DefaultCreditBalance).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	user := &domain.User{Email: "a@example.com", DisplayName: "A", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, domain.DefaultCreditBalance, user.CreditBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &domain.User{Email: "dup@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).WithArgs(int64(3)).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_DebitCredit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`UPDATE users SET credit_balance = credit_balance - 1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"credit_balance"}).AddRow(4))

	balance, err := repo.DebitCredit(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DebitCredit_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE users SET credit_balance`).WithArgs(int64(1)).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "display_name", "password_hash", "avatar_url", "credit_balance", "created_at", "updated_at"}).
			AddRow(int64(1), "a@example.com", "A", "h", "", 0, now, now))

	_, err := repo.DebitCredit(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery(`DELETE FROM generations WHERE user_id = \$1 RETURNING storage_key`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow("").AddRow("generations/2/x"))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	keys, err := repo.Delete(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"generations/2/x"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete_RollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`DELETE FROM generations`).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"storage_key"}).AddRow("generations/3/a"))
	mock.ExpectExec(`DELETE FROM users`).WithArgs(int64(3)).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	keys, err := repo.Delete(context.Background(), 3)
	require.Error(t, err)
	assert.Nil(t, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}
