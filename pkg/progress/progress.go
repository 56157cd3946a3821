// Package progress implements the page-load progress indicator store.
//
// A Bar counts overlapping navigations. It is busy while at least one
// navigation is in flight and notifies subscribers when it switches between
// idle and busy, so a transport can show or hide the loading bar once per
// transition instead of once per navigation.
package progress

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Snapshot describes the indicator at a point in time.
type Snapshot struct {
	Active    bool
	InFlight  int64
	StartedAt time.Time // zero when idle
}

// Listener receives idle/busy transitions.
type Listener func(Snapshot)

// Bar is a counting progress indicator. The zero value is not usable; call New.
type Bar struct {
	inFlight *atomic.Int64
	started  *atomic.Time
	total    *atomic.Uint64

	// transition orders counter changes that flip idle/busy together with
	// their notification, so listeners see transitions in order.
	transition sync.Mutex

	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
}

// New creates an idle progress bar.
func New() *Bar {
	return &Bar{
		inFlight:  atomic.NewInt64(0),
		started:   atomic.NewTime(time.Time{}),
		total:     atomic.NewUint64(0),
		listeners: make(map[int]Listener),
	}
}

// Start marks the beginning of one navigation.
func (b *Bar) Start() {
	b.total.Inc()

	b.transition.Lock()
	defer b.transition.Unlock()
	if b.inFlight.Inc() == 1 {
		b.started.Store(time.Now())
		b.notify()
	}
}

// Finish marks the end of one navigation. Unbalanced calls are ignored.
func (b *Bar) Finish() {
	b.transition.Lock()
	defer b.transition.Unlock()
	if b.inFlight.Load() <= 0 {
		return
	}
	if b.inFlight.Dec() == 0 {
		b.started.Store(time.Time{})
		b.notify()
	}
}

// Active reports whether any navigation is in flight.
func (b *Bar) Active() bool {
	return b.inFlight.Load() > 0
}

// Total returns how many navigations were started.
func (b *Bar) Total() uint64 {
	return b.total.Load()
}

// Snapshot returns the current state.
func (b *Bar) Snapshot() Snapshot {
	n := b.inFlight.Load()
	return Snapshot{
		Active:    n > 0,
		InFlight:  n,
		StartedAt: b.started.Load(),
	}
}

// Subscribe registers a listener for idle/busy transitions and returns a
// function that removes it. Listeners run while the transition is held and
// must not call Start or Finish.
func (b *Bar) Subscribe(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// notify runs with b.transition held.
func (b *Bar) notify() {
	snap := b.Snapshot()

	b.mu.Lock()
	listeners := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
