// Package propcache implements the observable property cache primitive:
// a generic slot holding the last-known value of one OS attribute, with
// asynchronous initialization, background refresh, background
// write-with-readback, change-event emission, and permanent invalidation.
// See spec.md §4.1 and §5 for the full contract this package implements.
package propcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/axstate/windowstate/internal/logx"
	"github.com/axstate/windowstate/internal/werrors"
)

// Delegate performs the actual OS read/write for one attribute. Read and
// Write are expected to do their own I/O dispatch (e.g. onto a worker
// pool); from the Slot's point of view they are ordinary blocking calls
// serialized by the per-slot request mutex.
type Delegate[T any] interface {
	// Read fetches the current value from the OS.
	Read(ctx context.Context) (T, error)
	// Write requests the OS adopt v and returns the value the OS actually
	// holds afterward, which may differ from v.
	Write(ctx context.Context, v T) (T, error)
	// Initialize consumes a shared batch-fetched attribute dictionary (or
	// issues its own read, for delegates not part of a batch) and returns
	// the slot's initial value. A *werrors.PropertyError with Kind
	// MissingValue signals the attribute was absent.
	Initialize(ctx context.Context) (T, error)
}

// Notifier receives this slot's change and invalidation events. Held as a
// plain reference: Go's garbage collector handles the owner<->slot cycle,
// so the weak-reference bookkeeping spec.md §3 calls for in
// reference-counted implementations isn't needed here (see DESIGN.md).
type Notifier[T any] interface {
	// Changed is called with the pre/post values whenever they differ
	// under the slot's ValueKind, with external set per spec.md §3's
	// invariant on the flag.
	Changed(old, new T, external bool)
	// Invalidated is called exactly once, when the delegate reports the
	// underlying element is permanently gone.
	Invalidated()
}

// Name is an attribute name, used only for logging.
type Name string

// Slot is the generic observable property cache.
type Slot[T any] struct {
	name     Name
	kind     ValueKind[T]
	delegate Delegate[T]
	notifier Notifier[T]
	writable bool
	optional bool

	cacheMu sync.Mutex
	value   T

	reqMu sync.Mutex

	initMu   sync.Mutex
	initDone chan struct{}
	initErr  error

	invalidMu sync.Mutex
	invalid   bool
}

// Option configures a Slot at construction.
type Option[T any] func(*Slot[T])

// Writable marks the slot as accepting Set calls.
func Writable[T any]() Option[T] {
	return func(s *Slot[T]) { s.writable = true }
}

// Optional marks the slot as tolerating a missing attribute at
// initialization time instead of failing with invalid-object(missing-value).
func Optional[T any]() Option[T] {
	return func(s *Slot[T]) { s.optional = true }
}

// New constructs a Slot. Initialization does not begin until Initialize is
// called.
func New[T any](name Name, kind ValueKind[T], delegate Delegate[T], notifier Notifier[T], opts ...Option[T]) *Slot[T] {
	s := &Slot[T]{
		name:     name,
		kind:     kind,
		delegate: delegate,
		notifier: notifier,
		initDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Value returns the current cached value. Safe from any goroutine once
// Initialize has resolved; before that, the return value is the zero value
// of T and callers must not rely on it (spec.md §4.1: "before that, reads
// are undefined").
func (s *Slot[T]) Value() T {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.value
}

// IsValid reports whether the slot has not been permanently invalidated.
func (s *Slot[T]) IsValid() bool {
	s.invalidMu.Lock()
	defer s.invalidMu.Unlock()
	return !s.invalid
}

// Initialize resolves the slot's first value. Safe to call more than once;
// only the first call does work, later callers wait on the same result.
func (s *Slot[T]) Initialize(ctx context.Context) error {
	s.initMu.Lock()
	select {
	case <-s.initDone:
		s.initMu.Unlock()
		return s.initErr
	default:
	}
	s.initMu.Unlock()

	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	// Another goroutine may have finished init while we waited for reqMu.
	select {
	case <-s.initDone:
		return s.initErr
	default:
	}

	val, err := s.delegate.Initialize(ctx)
	if err != nil {
		if kind, ok := werrors.KindOf(err); ok && kind == werrors.MissingValue {
			if s.optional {
				s.setCache(val)
				close(s.initDone)
				return nil
			}
			err = werrors.NewInvalidObject(err)
		}
		if kind, ok := werrors.KindOf(err); ok && kind == werrors.InvalidObject {
			s.markInvalid()
		}
		s.initErr = err
		close(s.initDone)
		return err
	}

	s.setCache(val)
	close(s.initDone)
	return nil
}

func (s *Slot[T]) awaitInit(ctx context.Context) error {
	select {
	case <-s.initDone:
		return s.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh issues a background read and returns the fresh value, emitting a
// change event (external=true) if it differs from the previously cached
// value. Refreshes issued before initialization completes are honored
// after initialization, not before.
func (s *Slot[T]) Refresh(ctx context.Context) (T, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		var zero T
		return zero, err
	}

	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	if !s.IsValid() {
		return s.Value(), werrors.ErrInvalidObject
	}

	val, err := s.delegate.Read(ctx)
	if err != nil {
		s.logFailure("refresh", err)
		if kind, ok := werrors.KindOf(err); ok && kind == werrors.InvalidObject {
			s.markInvalid()
		}
		return s.Value(), err
	}

	old := s.swapCache(val)
	if !s.kind.Equal(old, val) {
		s.notifier.Changed(old, val, true)
	}
	return val, nil
}

// Set writes a new value and yields the value the OS actually holds
// afterward. Emits a change event if the post-write value differs from the
// pre-write cached value, marked external iff the post-write value also
// differs from the requested value.
func (s *Slot[T]) Set(ctx context.Context, v T) (T, error) {
	var zero T
	if !s.writable {
		return zero, fmt.Errorf("propcache: slot %q is not writable", s.name)
	}
	if err := s.ensureInitialized(ctx); err != nil {
		return zero, err
	}

	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	if !s.IsValid() {
		return s.Value(), werrors.ErrInvalidObject
	}

	actual, err := s.delegate.Write(ctx, v)
	if err != nil {
		s.logFailure("set", err)
		if kind, ok := werrors.KindOf(err); ok && kind == werrors.InvalidObject {
			s.markInvalid()
		}
		return s.Value(), err
	}

	old := s.swapCache(actual)
	if !s.kind.Equal(old, actual) {
		external := !s.kind.Equal(actual, v)
		s.notifier.Changed(old, actual, external)
	}
	return actual, nil
}

func (s *Slot[T]) ensureInitialized(ctx context.Context) error {
	select {
	case <-s.initDone:
		return s.initErr
	default:
		return s.awaitInit(ctx)
	}
}

func (s *Slot[T]) setCache(v T) {
	s.cacheMu.Lock()
	s.value = v
	s.cacheMu.Unlock()
}

func (s *Slot[T]) swapCache(v T) (old T) {
	s.cacheMu.Lock()
	old = s.value
	s.value = v
	s.cacheMu.Unlock()
	return old
}

func (s *Slot[T]) markInvalid() {
	s.invalidMu.Lock()
	already := s.invalid
	s.invalid = true
	s.invalidMu.Unlock()
	if !already {
		s.notifier.Invalidated()
	}
}

func (s *Slot[T]) logFailure(op string, err error) {
	logx.For("propcache").Debug().
		Str("slot", string(s.name)).
		Str("op", op).
		Err(err).
		Msg("property operation failed")
}
