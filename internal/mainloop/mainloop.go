// Package mainloop implements the single coordination goroutine the rest of
// windowstate assumes exists: spec.md §5 requires that "all mutation of
// observer state, window-sets, application map, subscription table, and
// event emission" happen on one thread, while OS reads/writes run on a
// background pool. Loop is that thread, modeled as a dedicated goroutine
// draining a channel of closures — the "channel-per-slot with a dedicated
// sequencer task" alternative spec.md §9 calls out, generalized to the
// whole coordination domain rather than one slot at a time.
package mainloop

import (
	"context"
	"fmt"
)

// Loop runs submitted functions one at a time, in submission order, on a
// single goroutine.
type Loop struct {
	work chan func()
	done chan struct{}

	// tokenCh holds one token while Run is executing, so a second
	// concurrent Run blocks until the first returns.
	tokenCh chan struct{}
}

// New creates a Loop. Call Run in its own goroutine before submitting work.
func New() *Loop {
	return &Loop{
		work:    make(chan func(), 256),
		done:    make(chan struct{}),
		tokenCh: make(chan struct{}, 1),
	}
}

// Run drains submitted work until ctx is canceled. Intended to be called
// once, in its own goroutine.
func (l *Loop) Run(ctx context.Context) {
	l.tokenCh <- struct{}{}
	defer func() { <-l.tokenCh }()

	for {
		select {
		case <-ctx.Done():
			close(l.done)
			return
		case fn := <-l.work:
			fn()
		}
	}
}

// Post schedules fn to run on the loop goroutine and returns immediately.
func (l *Loop) Post(fn func()) {
	select {
	case l.work <- fn:
	case <-l.done:
	}
}

// RunSync schedules fn and blocks until it has completed, returning fn's
// value. Used by background-pool code that must read main-thread-only
// collections, per spec.md §5's "dispatch the lookup synchronously back to
// the main thread" rule.
func RunSync[T any](ctx context.Context, l *Loop, fn func() T) (T, error) {
	resultCh := make(chan T, 1)
	l.Post(func() { resultCh <- fn() })

	var zero T
	select {
	case v := <-resultCh:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-l.done:
		return zero, fmt.Errorf("mainloop: stopped")
	}
}

// AssertOnLoop is a debug helper: handlers that must run on the loop
// goroutine call this to document the requirement. It is a no-op in this
// implementation (Go has no cheap thread-identity check without extra
// bookkeeping this package does not need); the loop's single-goroutine
// design is what actually enforces the invariant.
func AssertOnLoop() {}
