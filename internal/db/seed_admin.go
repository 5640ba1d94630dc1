package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lockerroom/lockerroom/internal/config"
	"github.com/lockerroom/lockerroom/internal/domain/user"
	"github.com/lockerroom/lockerroom/internal/repo"
	"github.com/lockerroom/lockerroom/internal/security"
)

// EnsureAdminUser seeds the configured admin account if it does not exist
// yet. Works against any user store, memory or postgres.
func EnsureAdminUser(ctx context.Context, users repo.UserStore, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := users.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return nil
	}

	if !errors.Is(err, repo.ErrUserNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	_, err = users.Create(ctx, user.Account{
		User: user.User{
			ID:    uuid.NewString(),
			Email: cfg.AdminEmail,
			Name:  cfg.AdminName,
			Role:  cfg.AdminRole,
		},
		PasswordHash: hash,
	})

	return err
}
