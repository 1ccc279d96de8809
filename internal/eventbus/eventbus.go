// Package eventbus is the type-keyed synchronous subscription table spec.md
// §4.5 describes: "a subscription table from event-type-name to handler
// list... delivery is synchronous and in subscription order." Grounded on
// the teacher pack's myT-x (`app_events.go`), which dispatches runtime
// events by a string name to an ordered set of consumers; this package
// generalizes that shape with Go generics, keying by the event's runtime
// type instead of a hand-maintained string so a typo can't silently create
// a second, unreachable topic.
package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Unsubscribe removes a previously registered handler. Safe to call more
// than once.
type Unsubscribe func()

// Bus is a type-keyed, synchronous, in-order event dispatcher. The zero
// value is not usable; use New.
type Bus struct {
	mu          sync.Mutex
	handlers    map[reflect.Type][]handlerEntry
	dispatching bool
	nextID      uint64
}

type handlerEntry struct {
	id uint64
	fn reflect.Value
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[reflect.Type][]handlerEntry)}
}

// On subscribes handler to every event of type T, returning an Unsubscribe.
// Handlers run in subscription order; one that subscribes while a dispatch
// of the same type is in flight will not receive that in-flight event
// (spec.md §4.5).
func On[T any](b *Bus, handler func(T)) Unsubscribe {
	t := reflect.TypeOf((*T)(nil)).Elem()
	id := atomic.AddUint64(&b.nextID, 1)

	b.mu.Lock()
	b.handlers[t] = append(b.handlers[t], handlerEntry{id: id, fn: reflect.ValueOf(handler)})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.handlers[t]
			for i, e := range list {
				if e.id == id {
					b.handlers[t] = append(list[:i:i], list[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit dispatches event to every handler subscribed to its type,
// synchronously, in subscription order. Emit must run on the main
// coordination goroutine (spec.md §5); this is enforced here as a debug
// assertion, not a thread-identity check: an Emit called from inside a
// handler currently being dispatched panics, since that can only happen if
// two emissions are interleaved on the same goroutine stack in violation of
// the single-threaded-emission invariant.
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf(event)

	b.mu.Lock()
	if b.dispatching {
		b.mu.Unlock()
		panic(fmt.Sprintf("eventbus: re-entrant Emit(%s) from within a handler", t))
	}
	b.dispatching = true
	list := append([]handlerEntry(nil), b.handlers[t]...)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.dispatching = false
		b.mu.Unlock()
	}()

	v := reflect.ValueOf(event)
	for _, e := range list {
		e.fn.Call([]reflect.Value{v})
	}
}
