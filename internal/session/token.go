package session

import "github.com/lockerroom/lockerroom/internal/storage"

// TokenStore is a named slot for the opaque bearer credential. No expiry
// logic of its own: the server owns the token's lifetime, we only hold it.
type TokenStore struct {
	store storage.Store
}

func NewTokenStore(store storage.Store) *TokenStore {
	return &TokenStore{store: store}
}

func (t *TokenStore) Set(token string) {
	t.store.Set(KeyToken, token)
}

func (t *TokenStore) Get() (string, bool) {
	v, ok := t.store.Get(KeyToken)

	if !ok || v == "" {
		return "", false
	}

	return v, true
}

func (t *TokenStore) Clear() {
	t.store.Remove(KeyToken)
}
