package notify

import (
	"sync"
	"time"

	"github.com/lockerroom/lockerroom/internal/storage"
)

// Watcher is the cross-process delivery path: it polls the shared durable
// store and publishes on the local bus when one of the watched keys changes
// value or presence. This is the analogue of another tab's storage event.
// A process that writes the store itself should call Resync right after,
// so its own write is not echoed back as a remote change.
type Watcher struct {
	store    storage.Store
	keys     []string
	interval time.Duration
	bus      *Bus

	mu       sync.Mutex
	last     map[string]snapshot
	done     chan struct{}
	stopOnce sync.Once
}

type snapshot struct {
	value   string
	present bool
}

func NewWatcher(store storage.Store, keys []string, interval time.Duration, bus *Bus) *Watcher {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	return &Watcher{
		store:    store,
		keys:     keys,
		interval: interval,
		bus:      bus,
		last:     make(map[string]snapshot),
		done:     make(chan struct{}),
	}
}

func (w *Watcher) Start() {
	// prime the baseline so startup state does not count as a change
	w.Resync()

	go w.loop()
}

// Stop halts polling. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// Resync re-baselines the snapshots without publishing.
func (w *Watcher) Resync() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, key := range w.keys {
		v, ok := w.store.Get(key)
		w.last[key] = snapshot{value: v, present: ok}
	}
}

func (w *Watcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if w.observe() {
				w.bus.Publish()
			}
		}
	}
}

// observe refreshes the per-key snapshots and reports whether anything
// changed since the last look.
func (w *Watcher) observe() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := false

	for _, key := range w.keys {
		v, ok := w.store.Get(key)
		cur := snapshot{value: v, present: ok}

		if prev, seen := w.last[key]; !seen || prev != cur {
			changed = changed || seen
			w.last[key] = cur
		}
	}

	return changed
}
