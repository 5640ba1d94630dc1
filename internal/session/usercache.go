package session

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/lockerroom/lockerroom/internal/domain/user"
	"github.com/lockerroom/lockerroom/internal/storage"
)

// UserCache persists the last known identity plus a write timestamp.
// A possibly-stale cached identity beats a loading spinner: readers may show
// it optimistically, but once past TTL it must be revalidated before being
// trusted for authorization decisions.
type UserCache struct {
	store storage.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewUserCache(store storage.Store, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = UserCacheTTL
	}

	return &UserCache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Write replaces the cached record wholesale and stamps it with now.
func (c *UserCache) Write(u user.User) {
	data, err := json.Marshal(u)

	if err != nil {
		return
	}

	c.store.Set(KeyUser, string(data))
	c.store.Set(KeyUserTimestamp, strconv.FormatInt(c.now().UnixMilli(), 10))
}

// Read returns the cached record and its age. Corrupt JSON or a missing
// timestamp is a cache miss, never an error to surface.
func (c *UserCache) Read() (user.User, time.Duration, bool) {
	raw, ok := c.store.Get(KeyUser)

	if !ok {
		return user.User{}, 0, false
	}

	var u user.User

	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
		return user.User{}, 0, false
	}

	tsRaw, ok := c.store.Get(KeyUserTimestamp)

	if !ok {
		return user.User{}, 0, false
	}

	ts, err := strconv.ParseInt(tsRaw, 10, 64)

	if err != nil {
		return user.User{}, 0, false
	}

	age := c.now().Sub(time.UnixMilli(ts))

	return u, age, true
}

// IsFresh reports whether an age is still inside the TTL window.
func (c *UserCache) IsFresh(age time.Duration) bool {
	return age < c.ttl
}

func (c *UserCache) Clear() {
	c.store.Remove(KeyUser)
	c.store.Remove(KeyUserTimestamp)
}
