// Package repo defines the user store contract the devserver handlers
// depend on, with in-memory and postgres implementations underneath.
package repo

import (
	"context"
	"errors"

	"github.com/lockerroom/lockerroom/internal/domain/user"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already in use")
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.Account, error)
	GetByID(ctx context.Context, id string) (user.Account, error)
	Create(ctx context.Context, acct user.Account) (user.Account, error)
	// UpdatePassword swaps the hash and clears the forced-reset flags.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
