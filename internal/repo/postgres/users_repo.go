package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lockerroom/lockerroom/internal/domain/user"
	"github.com/lockerroom/lockerroom/internal/repo"
)

type UsersRepo struct {
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

const selectColumns = `id, email, password_hash, name, role, school_id, profile_pic_url,
		requires_password_reset, is_one_time_password, deactivated, created_at, updated_at`

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.Account, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+selectColumns+`
         FROM users
         WHERE lower(email) = lower($1)`,
		email,
	)

	return scanAccount(row)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.Account, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+selectColumns+`
         FROM users
         WHERE id = $1`,
		id,
	)

	return scanAccount(row)
}

func (r *UsersRepo) Create(ctx context.Context, acct user.Account) (user.Account, error) {
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, school_id, profile_pic_url,
		                    requires_password_reset, is_one_time_password, deactivated, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		acct.ID, acct.Email, acct.PasswordHash, acct.Name, acct.Role, nullable(acct.SchoolID), nullable(acct.ProfilePicURL),
		acct.RequiresPasswordReset, acct.IsOneTimePassword, acct.Deactivated, acct.CreatedAt, acct.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError

		// 23505 = unique_violation, our users_email_key
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.Account{}, repo.ErrEmailAlreadyUsed
		}

		return user.Account{}, err
	}

	return acct, nil
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET password_hash = $2,
		     requires_password_reset = FALSE,
		     is_one_time_password = FALSE,
		     updated_at = $3
		 WHERE id = $1`,
		id, passwordHash, time.Now().UTC(),
	)

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return repo.ErrUserNotFound
	}

	return nil
}

func scanAccount(row pgx.Row) (user.Account, error) {
	var (
		acct       user.Account
		schoolID   *string
		profileURL *string
	)

	err := row.Scan(
		&acct.ID,
		&acct.Email,
		&acct.PasswordHash,
		&acct.Name,
		&acct.Role,
		&schoolID,
		&profileURL,
		&acct.RequiresPasswordReset,
		&acct.IsOneTimePassword,
		&acct.Deactivated,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Account{}, repo.ErrUserNotFound
		}

		return user.Account{}, err
	}

	if schoolID != nil {
		acct.SchoolID = *schoolID
	}

	if profileURL != nil {
		acct.ProfilePicURL = *profileURL
	}

	return acct, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
