package notify

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/lockerroom/lockerroom/internal/storage"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("condition not met in time")
}

func TestWatcherPublishesOnRemoteChange(t *testing.T) {
	store := storage.NewMemory()
	store.Set("token", "tok1")

	bus := NewBus(testLogger())

	var fired atomic.Int32

	bus.Subscribe(func() { fired.Add(1) })

	w := NewWatcher(store, []string{"token", "auth_user"}, 10*time.Millisecond, bus)
	w.Start()
	defer w.Stop()

	// "another tab" removes the token
	store.Remove("token")

	waitFor(t, func() bool { return fired.Load() >= 1 })
}

func TestWatcherIgnoresUnwatchedKeys(t *testing.T) {
	store := storage.NewMemory()
	bus := NewBus(testLogger())

	var fired atomic.Int32

	bus.Subscribe(func() { fired.Add(1) })

	w := NewWatcher(store, []string{"token"}, 10*time.Millisecond, bus)
	w.Start()
	defer w.Stop()

	store.Set("theme", "dark")

	time.Sleep(100 * time.Millisecond)

	if fired.Load() != 0 {
		t.Fatalf("unwatched key change should not publish")
	}
}

func TestWatcherResyncSwallowsOwnWrite(t *testing.T) {
	store := storage.NewMemory()
	bus := NewBus(testLogger())

	var fired atomic.Int32

	bus.Subscribe(func() { fired.Add(1) })

	// interval wide enough that the write+resync pair lands between polls
	w := NewWatcher(store, []string{"token"}, 200*time.Millisecond, bus)
	w.Start()
	defer w.Stop()

	// our own login writes the token, then resyncs before the next poll
	store.Set("token", "tok1")
	w.Resync()

	time.Sleep(500 * time.Millisecond)

	if fired.Load() != 0 {
		t.Fatalf("own write after Resync should not echo back, fired %d times", fired.Load())
	}
}

func TestWatcherStopTwice(t *testing.T) {
	w := NewWatcher(storage.NewMemory(), []string{"token"}, 10*time.Millisecond, NewBus(testLogger()))
	w.Start()

	w.Stop()
	w.Stop() // repeated teardown must be a no-op, like the rest of the module
}

func TestWatcherStartupStateIsNotAChange(t *testing.T) {
	store := storage.NewMemory()
	store.Set("token", "tok1") // pre-existing session

	bus := NewBus(testLogger())

	var fired atomic.Int32

	bus.Subscribe(func() { fired.Add(1) })

	w := NewWatcher(store, []string{"token"}, 10*time.Millisecond, bus)
	w.Start()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)

	if fired.Load() != 0 {
		t.Fatalf("existing state at startup must not publish")
	}
}
