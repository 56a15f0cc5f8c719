package domain

import (
	"context"
	"time"
)

// DefaultCreditBalance is the number of credits granted at registration.
const DefaultCreditBalance = 5

// User represents a registered account.
type User struct {
	ID            int64
	Email         string
	DisplayName   string
	PasswordHash  string
	AvatarURL     string
	CreditBalance int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
	// DebitCredit atomically decrements the balance by one if it is positive
	// and returns the new balance. It returns ErrInsufficientCredit when the
	// balance is already zero and ErrNotFound when the user does not exist.
	DebitCredit(ctx context.Context, id int64) (int, error)
	// Delete removes the user and every generation record it owns in one
	// transaction. It returns the FileStore keys of the removed records.
	Delete(ctx context.Context, id int64) ([]string, error)
}
