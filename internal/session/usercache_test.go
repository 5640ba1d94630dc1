package session

import (
	"testing"
	"time"

	"github.com/lockerroom/lockerroom/internal/domain/user"
	"github.com/lockerroom/lockerroom/internal/storage"
)

func TestUserCacheFreshnessBoundary(t *testing.T) {
	store := storage.NewMemory()
	c := NewUserCache(store, 0) // default TTL = 300_000ms

	writeTime := time.UnixMilli(1_700_000_000_000)

	c.now = func() time.Time { return writeTime }
	c.Write(user.User{ID: "u1", Role: user.RoleStudent})

	tests := []struct {
		name      string
		elapsedMs int64
		wantFresh bool
	}{
		{"just written", 0, true},
		{"one ms under TTL", 299_999, true},
		{"exactly TTL", 300_000, false},
		{"one ms over TTL", 300_001, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c.now = func() time.Time { return writeTime.Add(time.Duration(tc.elapsedMs) * time.Millisecond) }

			u, age, ok := c.Read()

			if !ok {
				t.Fatalf("expected cache hit")
			}

			if u.ID != "u1" {
				t.Fatalf("got user %q, want u1", u.ID)
			}

			if got := c.IsFresh(age); got != tc.wantFresh {
				t.Fatalf("IsFresh(%v) = %v, want %v", age, got, tc.wantFresh)
			}
		})
	}
}

func TestUserCacheCorruptJSONIsAMiss(t *testing.T) {
	store := storage.NewMemory()
	c := NewUserCache(store, 0)

	store.Set(KeyUser, "{not json")
	store.Set(KeyUserTimestamp, "1700000000000")

	if _, _, ok := c.Read(); ok {
		t.Fatalf("corrupt JSON should read as a miss, not an error")
	}
}

func TestUserCacheMissingTimestampIsAMiss(t *testing.T) {
	store := storage.NewMemory()
	c := NewUserCache(store, 0)

	c.Write(user.User{ID: "u1", Role: user.RoleStudent})
	store.Remove(KeyUserTimestamp)

	if _, _, ok := c.Read(); ok {
		t.Fatalf("missing timestamp should read as a miss")
	}
}

func TestUserCacheClear(t *testing.T) {
	store := storage.NewMemory()
	c := NewUserCache(store, 0)

	c.Write(user.User{ID: "u1", Role: user.RoleStudent})
	c.Clear()

	if _, _, ok := c.Read(); ok {
		t.Fatalf("expected miss after Clear")
	}

	if _, ok := store.Get(KeyUser); ok {
		t.Fatalf("user key should be removed")
	}

	if _, ok := store.Get(KeyUserTimestamp); ok {
		t.Fatalf("timestamp key should be removed")
	}
}

func TestUserCacheWriteReplacesWholesale(t *testing.T) {
	store := storage.NewMemory()
	c := NewUserCache(store, 0)

	c.Write(user.User{ID: "u1", Role: user.RoleStudent, SchoolID: "s1"})
	c.Write(user.User{ID: "u2", Role: user.RoleScout})

	u, _, ok := c.Read()

	if !ok {
		t.Fatalf("expected cache hit")
	}

	if u.ID != "u2" || u.SchoolID != "" {
		t.Fatalf("expected full replace, got %+v", u)
	}
}
