// Package axfake is a deterministic in-memory implementation of
// internal/ax's Facade and ObserverFactory, used in place of a live OS
// accessibility channel in tests. It lets a test script element attributes,
// simulate OS-side snapping on write, invalidate elements, and deliver
// notifications on demand.
package axfake

import (
	"context"
	"fmt"
	"sync"

	"github.com/axstate/windowstate/internal/ax"
)

// WriteSnap simulates the OS silently coercing a requested value, e.g.
// snapping a requested window position to a different one.
type WriteSnap func(requested any) (actual any, err error)

type object struct {
	pid        int32
	attrs      map[ax.Attr]any
	arrayAttrs map[ax.Attr][]ax.Element
	valid      bool
	snaps      map[ax.Attr]WriteSnap
}

// Facade is an in-memory ax.Facade. Zero value is not usable; use New().
type Facade struct {
	mu        sync.Mutex
	nextID    int
	objects   map[ax.Element]*object
	apps      []ax.Element // insertion-ordered application elements
	pidToElem map[int32]ax.Element

	observerMu sync.Mutex
	observers  map[int32][]*Observer
}

// New constructs an empty Facade.
func New() *Facade {
	return &Facade{
		objects:   make(map[ax.Element]*object),
		pidToElem: make(map[int32]ax.Element),
		observers: make(map[int32][]*Observer),
	}
}

// NewApplication creates an application element for pid and registers it in
// EnumerateApplications order.
func (f *Facade) NewApplication(pid int32) ax.Element {
	f.mu.Lock()
	defer f.mu.Unlock()

	el := f.newElementLocked(pid)
	f.objects[el].attrs[ax.AttrRole] = ax.RoleApplication
	f.apps = append(f.apps, el)
	f.pidToElem[pid] = el
	return el
}

// NewWindow creates a window element owned by pid, not yet attached to any
// application's window list (callers set AttrFrame/etc. then add it to the
// app's array attribute themselves via SetArrayAttr).
func (f *Facade) NewWindow(pid int32) ax.Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newElementLocked(pid)
}

func (f *Facade) newElementLocked(pid int32) ax.Element {
	f.nextID++
	el := ax.NewElement(fmt.Sprintf("e%d", f.nextID))
	f.objects[el] = &object{
		pid:        pid,
		attrs:      make(map[ax.Attr]any),
		arrayAttrs: make(map[ax.Attr][]ax.Element),
		valid:      true,
		snaps:      make(map[ax.Attr]WriteSnap),
	}
	return el
}

// SetAttr sets a scalar attribute's current value.
func (f *Facade) SetAttr(el ax.Element, name ax.Attr, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.objects[el]; ok {
		obj.attrs[name] = value
	}
}

// SetArrayAttr sets an array-valued attribute, e.g. AXWindows.
func (f *Facade) SetArrayAttr(el ax.Element, name ax.Attr, value []ax.Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.objects[el]; ok {
		obj.arrayAttrs[name] = value
	}
}

// SetWriteSnap installs a snap function invoked whenever name is written on
// el, simulating the OS overriding the requested value.
func (f *Facade) SetWriteSnap(el ax.Element, name ax.Attr, snap WriteSnap) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.objects[el]; ok {
		obj.snaps[name] = snap
	}
}

// Invalidate marks el permanently gone; subsequent operations on it return
// ax.ErrInvalidElement.
func (f *Facade) Invalidate(el ax.Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.objects[el]; ok {
		obj.valid = false
	}
}

func (f *Facade) lookup(el ax.Element) (*object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[el]
	if !ok || !obj.valid {
		return nil, ax.ErrInvalidElement
	}
	return obj, nil
}

func (f *Facade) EnumerateApplications(ctx context.Context) ([]ax.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ax.Element, len(f.apps))
	copy(out, f.apps)
	return out, nil
}

func (f *Facade) ElementForPID(ctx context.Context, pid int32) (ax.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.pidToElem[pid]
	if !ok {
		return ax.Element{}, ax.ErrInvalidElement
	}
	return el, nil
}

func (f *Facade) PID(ctx context.Context, el ax.Element) (int32, error) {
	obj, err := f.lookup(el)
	if err != nil {
		return 0, err
	}
	return obj.pid, nil
}

func (f *Facade) Attribute(ctx context.Context, el ax.Element, name ax.Attr) (any, error) {
	obj, err := f.lookup(el)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return obj.attrs[name], nil
}

func (f *Facade) ArrayAttribute(ctx context.Context, el ax.Element, name ax.Attr) ([]ax.Element, error) {
	obj, err := f.lookup(el)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ax.Element, len(obj.arrayAttrs[name]))
	copy(out, obj.arrayAttrs[name])
	return out, nil
}

func (f *Facade) GetMultipleAttributes(ctx context.Context, el ax.Element, names []ax.Attr) (map[ax.Attr]any, error) {
	obj, err := f.lookup(el)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[ax.Attr]any, len(names))
	for _, n := range names {
		out[n] = obj.attrs[n]
	}
	return out, nil
}

func (f *Facade) SetAttribute(ctx context.Context, el ax.Element, name ax.Attr, value any) error {
	obj, err := f.lookup(el)
	if err != nil {
		return err
	}

	f.mu.Lock()
	snap := obj.snaps[name]
	f.mu.Unlock()

	actual := value
	if snap != nil {
		var serr error
		actual, serr = snap(value)
		if serr != nil {
			return serr
		}
	}

	f.mu.Lock()
	obj.attrs[name] = actual
	f.mu.Unlock()
	return nil
}
