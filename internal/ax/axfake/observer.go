package axfake

import (
	"context"
	"sync"

	"github.com/axstate/windowstate/internal/ax"
)

type subscription struct {
	name ax.NotificationName
	el   ax.Element
}

// Observer is an in-memory ax.Observer. Deliver on the owning Facade pushes
// a notification to every Observer subscribed to its (name, element) pair,
// or to its name on the pid's application element.
type Observer struct {
	pid      int32
	facade   *Facade
	callback func(ax.Notification)

	mu   sync.Mutex
	subs map[subscription]bool
	open bool
}

var _ ax.Observer = (*Observer)(nil)
var _ ax.ObserverFactory = (*Facade)(nil)

// NewObserver implements ax.ObserverFactory.
func (f *Facade) NewObserver(ctx context.Context, pid int32, callback func(ax.Notification)) (ax.Observer, error) {
	obs := &Observer{
		pid:      pid,
		facade:   f,
		callback: callback,
		subs:     make(map[subscription]bool),
		open:     true,
	}

	f.observerMu.Lock()
	f.observers[pid] = append(f.observers[pid], obs)
	f.observerMu.Unlock()

	return obs, nil
}

func (o *Observer) AddNotification(ctx context.Context, name ax.NotificationName, el ax.Element) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subs[subscription{name: name, el: el}] = true
	return nil
}

func (o *Observer) RemoveNotification(ctx context.Context, name ax.NotificationName, el ax.Element) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.subs, subscription{name: name, el: el})
	return nil
}

func (o *Observer) Close() error {
	o.mu.Lock()
	o.open = false
	o.mu.Unlock()

	f := o.facade
	f.observerMu.Lock()
	defer f.observerMu.Unlock()
	list := f.observers[o.pid]
	for i, other := range list {
		if other == o {
			f.observers[o.pid] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return nil
}

func (o *Observer) matches(n ax.Notification) bool {
	appEl, _ := o.facade.ElementForPID(context.Background(), o.pid)

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.open {
		return false
	}
	if o.subs[subscription{name: n.Name, el: n.Element}] {
		return true
	}
	// A subscription on the application element also receives the
	// notification for elements the application owns, e.g. window-created
	// carrying the new window.
	return !appEl.IsZero() && o.subs[subscription{name: n.Name, el: appEl}]
}

// Deliver simulates the OS pushing notification n for the application
// identified by pid to every Observer subscribed to n's (name, element)
// pair or to n's name on the application element, synchronously on the calling goroutine (tests decide which
// goroutine that is, matching how production code hops back to the main
// coordination goroutine itself).
func (f *Facade) Deliver(pid int32, n ax.Notification) {
	f.observerMu.Lock()
	list := append([]*Observer(nil), f.observers[pid]...)
	f.observerMu.Unlock()

	for _, obs := range list {
		if obs.matches(n) {
			obs.callback(n)
		}
	}
}
