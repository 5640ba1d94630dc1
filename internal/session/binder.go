package session

import (
	"context"
	"sync"

	"github.com/lockerroom/lockerroom/internal/domain/user"
	"github.com/lockerroom/lockerroom/internal/notify"
)

// Snapshot is what a view renders from: the identity (possibly stale while
// revalidation is in flight), whether a first answer is still loading, and
// the cheap token-presence check.
type Snapshot struct {
	User            *user.User
	IsLoading       bool
	IsAuthenticated bool
}

// Binder adapts the facade for a view: synchronous cached read for first
// paint, background revalidation only when the cache is absent or stale,
// and re-derivation on every change notification. Overlapping fetches are
// serialized by a monotonic generation counter, so a stale in-flight result
// is discarded rather than allowed to clobber a newer one.
type Binder struct {
	facade *Facade
	bus    *notify.Bus

	mu          sync.Mutex
	user        *user.User
	isLoading   bool
	gen         uint64
	unsubscribe func()
	onChange    func(Snapshot)

	ctx context.Context
}

// NewBinder wires a binder to the facade and bus. onChange may be nil;
// views can also poll Snapshot.
func NewBinder(f *Facade, bus *notify.Bus, onChange func(Snapshot)) *Binder {
	return &Binder{
		facade:   f,
		bus:      bus,
		onChange: onChange,
	}
}

// Start performs the mount-time cache-or-fetch decision and subscribes for
// the binder's lifetime. Callers must Close when the view goes away.
func (b *Binder) Start(ctx context.Context) {
	b.ctx = ctx

	cached, age, ok := b.facade.ReadCached()

	b.mu.Lock()
	if ok {
		u := cached
		b.user = &u
	}
	b.isLoading = !ok
	b.mu.Unlock()

	b.unsubscribe = b.bus.Subscribe(func() {
		b.refresh()
	})

	// fresh cache skips the network round-trip entirely
	if !ok || !b.facade.IsFresh(age) {
		b.refresh()
	} else {
		b.emit()
	}
}

// Close unsubscribes and invalidates any in-flight fetch.
func (b *Binder) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}

	b.mu.Lock()
	b.gen++
	b.mu.Unlock()
}

func (b *Binder) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	var u *user.User

	if b.user != nil {
		copied := *b.user
		u = &copied
	}

	return Snapshot{
		User:            u,
		IsLoading:       b.isLoading,
		IsAuthenticated: b.facade.IsAuthenticated(),
	}
}

// UpdateUser patches the identity optimistically without waiting for the
// next fetch cycle. Nil clears it.
func (b *Binder) UpdateUser(u *user.User) {
	b.mu.Lock()
	// a manual patch supersedes whatever is in flight
	b.gen++
	b.user = u
	b.isLoading = false
	b.mu.Unlock()

	b.facade.UpdateUser(u)
}

// refresh re-derives identity from storage/server. The generation check
// means only the newest fetch's answer is applied.
func (b *Binder) refresh() {
	b.mu.Lock()
	b.gen++
	g := b.gen
	b.mu.Unlock()

	go func() {
		u, ok := b.facade.CurrentUser(b.ctx)

		b.mu.Lock()
		if b.gen != g {
			b.mu.Unlock()
			return
		}

		if ok {
			b.user = &u
		} else {
			b.user = nil
		}
		b.isLoading = false
		b.mu.Unlock()

		b.emit()
	}()
}

func (b *Binder) emit() {
	if b.onChange != nil {
		b.onChange(b.Snapshot())
	}
}
