package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lockerroom/lockerroom/internal/domain/user"
	"github.com/lockerroom/lockerroom/internal/repo"
)

// UsersRepo keeps accounts in a map. Default backend for the devserver and
// for tests; postgres takes over when DB_URL is set.
type UsersRepo struct {
	mu      sync.RWMutex
	byID    map[string]user.Account
	byEmail map[string]string // email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:    make(map[string]user.Account),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[normalize(email)]

	if !ok {
		return user.Account{}, repo.ErrUserNotFound
	}

	return r.byID[id], nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acct, ok := r.byID[id]

	if !ok {
		return user.Account{}, repo.ErrUserNotFound
	}

	return acct, nil
}

func (r *UsersRepo) Create(_ context.Context, acct user.Account) (user.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalize(acct.Email)

	if _, taken := r.byEmail[email]; taken {
		return user.Account{}, repo.ErrEmailAlreadyUsed
	}

	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	r.byID[acct.ID] = acct
	r.byEmail[email] = acct.ID

	return acct, nil
}

func (r *UsersRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.byID[id]

	if !ok {
		return repo.ErrUserNotFound
	}

	acct.PasswordHash = passwordHash
	acct.RequiresPasswordReset = false
	acct.IsOneTimePassword = false
	acct.UpdatedAt = time.Now().UTC()
	r.byID[id] = acct

	return nil
}

// SetDeactivated flips the account status; tests and the seed path use it.
func (r *UsersRepo) SetDeactivated(id string, deactivated bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.byID[id]

	if !ok {
		return repo.ErrUserNotFound
	}

	acct.Deactivated = deactivated
	r.byID[id] = acct

	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
