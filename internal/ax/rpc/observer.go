package rpc

import (
	"context"
	"sync/atomic"

	"github.com/axstate/windowstate/internal/ax"
)

// NewObserver registers callback to receive every event the server pushes
// for pid, and returns an ax.Observer for subscribing/unsubscribing
// individual (notification, element) pairs on the server side. Facade
// itself is the ax.ObserverFactory; there is one underlying socket
// connection shared by every Observer it creates.
func (f *Facade) NewObserver(ctx context.Context, pid int32, callback func(ax.Notification)) (ax.Observer, error) {
	id := atomic.AddUint64(&f.nextHandlerID, 1)

	f.eventMu.Lock()
	if f.eventHandlers[pid] == nil {
		f.eventHandlers[pid] = make(map[uint64]func(ax.Notification))
	}
	f.eventHandlers[pid][id] = callback
	f.eventMu.Unlock()

	return &Observer{facade: f, pid: pid, handlerID: id}, nil
}

// Observer is the rpc-backed ax.Observer: AddNotification/RemoveNotification
// ask the server to start/stop pushing a given notification for a given
// element; Close stops local delivery of any event already in flight for
// this registration.
type Observer struct {
	facade    *Facade
	pid       int32
	handlerID uint64
}

func (o *Observer) AddNotification(ctx context.Context, name ax.NotificationName, el ax.Element) error {
	params := struct {
		ElementID    string `json:"elementId"`
		Notification string `json:"notification"`
	}{ElementID: el.String(), Notification: string(name)}
	return o.facade.request(ctx, methodAddNotification, params, nil)
}

func (o *Observer) RemoveNotification(ctx context.Context, name ax.NotificationName, el ax.Element) error {
	params := struct {
		ElementID    string `json:"elementId"`
		Notification string `json:"notification"`
	}{ElementID: el.String(), Notification: string(name)}
	return o.facade.request(ctx, methodRemoveNotification, params, nil)
}

func (o *Observer) Close() error {
	f := o.facade
	f.eventMu.Lock()
	delete(f.eventHandlers[o.pid], o.handlerID)
	if len(f.eventHandlers[o.pid]) == 0 {
		delete(f.eventHandlers, o.pid)
	}
	f.eventMu.Unlock()
	return nil
}
