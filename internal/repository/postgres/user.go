package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/msomdec/picprompt/internal/domain"
)

const userColumns = `id, email, display_name, password_hash, avatar_url, credit_balance, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.CreditBalance == 0 {
		user.CreditBalance = domain.DefaultCreditBalance
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, display_name, password_hash, avatar_url, credit_balance)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		user.Email, user.DisplayName, user.PasswordHash, user.AvatarURL, user.CreditBalance,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &user.DisplayName,
		&user.PasswordHash, &user.AvatarURL, &user.CreditBalance, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET display_name = $1, avatar_url = $2, updated_at = now()
		 WHERE id = $3 RETURNING updated_at`,
		user.DisplayName, user.AvatarURL, user.ID,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// DebitCredit relies on the row lock taken by UPDATE, so concurrent debits
// for one user are serialized by Postgres and the balance cannot go negative.
func (r *UserRepository) DebitCredit(ctx context.Context, id int64) (int, error) {
	var balance int
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET credit_balance = credit_balance - 1, updated_at = now()
		 WHERE id = $1 AND credit_balance > 0
		 RETURNING credit_balance`, id,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("debit credit: %w", err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return 0, err
	}
	return 0, domain.ErrInsufficientCredit
}

// txBeginner is satisfied by *sql.DB but not by *sql.Tx.
type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Delete removes the user and its generations and returns the storage keys
// those generations referenced. On a pool it runs in its own transaction; on
// a *sql.Tx it joins the caller's.
func (r *UserRepository) Delete(ctx context.Context, id int64) ([]string, error) {
	db, ok := r.db.(txBeginner)
	if !ok {
		return deleteUser(ctx, r.db, id)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	keys, err := deleteUser(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return keys, nil
}

// deleteUser locks the user row first so a concurrent generation insert
// waits on the foreign key and cannot slip in behind the key collection.
func deleteUser(ctx context.Context, db DBTX, id int64) ([]string, error) {
	var locked int64
	err := db.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`DELETE FROM generations WHERE user_id = $1 RETURNING storage_key`, id)
	if err != nil {
		return nil, fmt.Errorf("delete generations: %w", err)
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan storage key: %w", err)
		}
		if key != "" {
			keys = append(keys, key)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete generations: %w", err)
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	return keys, nil
}
