package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrProviderAuth       = errors.New("image provider rejected credentials")
	ErrProvider           = errors.New("image provider failed")
	ErrPersistence        = errors.New("persistence failed after generation")
)

// CreditError reports a generation blocked by the account balance.
// It matches ErrInsufficientCredit with errors.Is.
type CreditError struct {
	Balance int
}

func (e *CreditError) Error() string {
	return fmt.Sprintf("%s: balance %d", ErrInsufficientCredit, e.Balance)
}

func (e *CreditError) Unwrap() error {
	return ErrInsufficientCredit
}
