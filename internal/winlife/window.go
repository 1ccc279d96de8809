// Package winlife owns one window's property slots, subscribes to the
// window's per-element notifications, and routes them to slot refreshes.
// See spec.md §4.3. Grounded on the teacher's internal/window/move.go for
// the shape of a per-window operation, and on internal/cell/swap.go for the
// idempotent lookup-or-create pattern reused here for window-element
// identity during application-driven discovery (internal/applife).
package winlife

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/delegate"
	"github.com/axstate/windowstate/internal/geom"
	"github.com/axstate/windowstate/internal/propcache"
	"github.com/axstate/windowstate/internal/werrors"
)

// Events receives notifications about this window's lifecycle and property
// changes. internal/applife and the root windowstate package implement it
// to translate into the public event types.
type Events interface {
	FrameChanged(w *Window, old, new geom.Rect, external bool)
	TitleChanged(w *Window, old, new string, external bool)
	MinimizedChanged(w *Window, old, new bool, external bool)
	FullscreenChanged(w *Window, old, new bool, external bool)
	Destroyed(w *Window)
}

// notificationAttrs lists the attributes a window batch-reads at
// initialization (spec.md §4.3: "all slots are initialized in a single
// batch").
var notificationAttrs = []ax.Attr{
	ax.AttrPosition, ax.AttrSize, ax.AttrTitle, ax.AttrMinimized,
	ax.AttrFullscreen, ax.AttrSubrole,
}

// subscribedNotifications is the set of per-window notifications winlife
// subscribes during Initialize, unwound if the subrole filter rejects the
// window.
var subscribedNotifications = []ax.NotificationName{
	ax.NotifyMoved, ax.NotifyResized, ax.NotifyTitleChanged,
	ax.NotifyMiniaturized, ax.NotifyDeminiaturized, ax.NotifyElementDestroyed,
}

// Window owns the property slots and notification routing for one OS
// window. Identity is the element handle (spec.md §3).
type Window struct {
	Element ax.Element
	PID     int32

	facade   ax.Facade
	observer ax.Observer
	events   Events

	Position   *propcache.Slot[geom.Point]
	Size       *propcache.Slot[geom.Size]
	Title      *propcache.Slot[string]
	Minimized  *propcache.Slot[bool]
	Fullscreen *propcache.Slot[bool]

	invalidOnce sync.Once
	destroyed   atomic.Bool
}

// New constructs a Window bound to el, not yet initialized.
func New(facade ax.Facade, observer ax.Observer, el ax.Element, pid int32, globalMaxY func() float64, events Events) *Window {
	w := &Window{
		Element:  el,
		PID:      pid,
		facade:   facade,
		observer: observer,
		events:   events,
	}

	batch := delegate.NewBatch(facade, el, notificationAttrs)

	positionInner := &delegate.Scalar[geom.Point]{
		Facade: facade, Element: el, Attr: ax.AttrPosition, Batch: batch,
		Decode: delegate.DecodePoint, Encode: delegate.EncodePoint,
	}
	positionDelegate := &delegate.PositionFilter{
		Inner:      positionInner,
		Height:     func() float64 { return w.Size.Value().Height },
		GlobalMaxY: globalMaxY,
	}
	w.Position = propcache.New[geom.Point]("position", propcache.Comparable[geom.Point]{}, positionDelegate, &positionNotifier{w: w}, propcache.Writable[geom.Point]())

	sizeDelegate := &delegate.Scalar[geom.Size]{
		Facade: facade, Element: el, Attr: ax.AttrSize, Batch: batch,
		Decode: delegate.DecodeSize, Encode: delegate.EncodeSize,
	}
	w.Size = propcache.New[geom.Size]("size", propcache.Comparable[geom.Size]{}, sizeDelegate, &sizeNotifier{w: w}, propcache.Writable[geom.Size]())

	titleDelegate := &delegate.Scalar[string]{
		Facade: facade, Element: el, Attr: ax.AttrTitle, Batch: batch,
		Decode: delegate.DecodeString,
	}
	w.Title = propcache.New[string]("title", propcache.Comparable[string]{}, titleDelegate, &titleNotifier{w: w})

	minimizedDelegate := &delegate.Scalar[bool]{
		Facade: facade, Element: el, Attr: ax.AttrMinimized, Batch: batch,
		Decode: delegate.DecodeBool,
	}
	w.Minimized = propcache.New[bool]("minimized", propcache.Comparable[bool]{}, minimizedDelegate, &minimizedNotifier{w: w})

	fullscreenDelegate := &delegate.Scalar[bool]{
		Facade: facade, Element: el, Attr: ax.AttrFullscreen, Batch: batch,
		Decode: delegate.DecodeBool,
	}
	w.Fullscreen = propcache.New[bool]("fullscreen", propcache.Comparable[bool]{}, fullscreenDelegate, &fullscreenNotifier{w: w})

	return w
}

// Initialize subscribes this window's notifications, batch-reads its
// attributes, and applies the subrole filter. A window rejected by the
// filter returns a *werrors.PropertyError with Kind Ignored and has its
// subscriptions unwound; the caller (internal/applife) drops it silently.
func (w *Window) Initialize(ctx context.Context) error {
	if err := w.subscribeAll(ctx); err != nil {
		return fmt.Errorf("winlife: subscribe %s: %w", w.Element, ax.Classify(err))
	}

	subrole, err := w.readSubrole(ctx)
	if err != nil {
		w.unsubscribeAll(ctx)
		return fmt.Errorf("winlife: read subrole %s: %w", w.Element, err)
	}
	if subrole == ax.SubroleUnknown {
		w.unsubscribeAll(ctx)
		return werrors.New(werrors.Ignored, nil)
	}

	// Size must initialize before Position: the position readback filter's
	// Height closure reads w.Size.Value().
	if err := w.Size.Initialize(ctx); err != nil {
		w.unsubscribeAll(ctx)
		return fmt.Errorf("winlife: size %s: %w", w.Element, err)
	}
	if err := w.Position.Initialize(ctx); err != nil {
		w.unsubscribeAll(ctx)
		return fmt.Errorf("winlife: position %s: %w", w.Element, err)
	}
	if err := w.Title.Initialize(ctx); err != nil {
		w.unsubscribeAll(ctx)
		return fmt.Errorf("winlife: title %s: %w", w.Element, err)
	}
	if err := w.Minimized.Initialize(ctx); err != nil {
		w.unsubscribeAll(ctx)
		return fmt.Errorf("winlife: minimized %s: %w", w.Element, err)
	}
	if err := w.Fullscreen.Initialize(ctx); err != nil {
		w.unsubscribeAll(ctx)
		return fmt.Errorf("winlife: fullscreen %s: %w", w.Element, err)
	}
	return nil
}

func (w *Window) readSubrole(ctx context.Context) (string, error) {
	raw, err := w.facade.Attribute(ctx, w.Element, ax.AttrSubrole)
	if err != nil {
		return "", ax.Classify(err)
	}
	s, _ := raw.(string)
	return s, nil
}

func (w *Window) subscribeAll(ctx context.Context) error {
	for _, n := range subscribedNotifications {
		if err := w.observer.AddNotification(ctx, n, w.Element); err != nil {
			return err
		}
	}
	return nil
}

func (w *Window) unsubscribeAll(ctx context.Context) {
	for _, n := range subscribedNotifications {
		_ = w.observer.RemoveNotification(ctx, n, w.Element)
	}
}

// Frame returns the window's current position+size as a single rect.
func (w *Window) Frame() geom.Rect {
	p := w.Position.Value()
	s := w.Size.Value()
	return geom.Rect{X: p.X, Y: p.Y, Width: s.Width, Height: s.Height}
}

// IsValid reports whether the window's element is still live.
func (w *Window) IsValid() bool {
	return !w.destroyed.Load() && w.Position.IsValid()
}

// HandleNotification routes one low-level notification to the slot refresh
// it implies, per spec.md §4.3's subscription map. internal/applife calls it
// directly from its observer callback, on whatever goroutine delivered the
// notification; the slot refreshes run on goroutines of their own.
func (w *Window) HandleNotification(ctx context.Context, name ax.NotificationName) {
	switch name {
	case ax.NotifyMoved:
		go func() { _, _ = w.Position.Refresh(ctx) }()
	case ax.NotifyResized:
		go func() {
			_, _ = w.Size.Refresh(ctx)
			_, _ = w.Fullscreen.Refresh(ctx)
		}()
	case ax.NotifyTitleChanged:
		go func() { _, _ = w.Title.Refresh(ctx) }()
	case ax.NotifyMiniaturized, ax.NotifyDeminiaturized:
		go func() { _, _ = w.Minimized.Refresh(ctx) }()
	case ax.NotifyElementDestroyed:
		w.markInvalid()
	}
}

func (w *Window) markInvalid() {
	w.invalidOnce.Do(func() {
		w.destroyed.Store(true)
		w.events.Destroyed(w)
	})
}

// Per-field notifier adapters translate propcache.Notifier callbacks into
// Events calls, combining position/size into a single frame-changed event
// the way spec.md's external interface allows ("frame, or equivalently
// position+size").

type positionNotifier struct{ w *Window }

func (n *positionNotifier) Changed(old, new geom.Point, external bool) {
	size := n.w.Size.Value()
	n.w.events.FrameChanged(n.w,
		geom.Rect{X: old.X, Y: old.Y, Width: size.Width, Height: size.Height},
		geom.Rect{X: new.X, Y: new.Y, Width: size.Width, Height: size.Height},
		external)
}
func (n *positionNotifier) Invalidated() { n.w.markInvalid() }

type sizeNotifier struct{ w *Window }

func (n *sizeNotifier) Changed(old, new geom.Size, external bool) {
	pos := n.w.Position.Value()
	n.w.events.FrameChanged(n.w,
		geom.Rect{X: pos.X, Y: pos.Y, Width: old.Width, Height: old.Height},
		geom.Rect{X: pos.X, Y: pos.Y, Width: new.Width, Height: new.Height},
		external)
}
func (n *sizeNotifier) Invalidated() { n.w.markInvalid() }

type titleNotifier struct{ w *Window }

func (n *titleNotifier) Changed(old, new string, external bool) {
	n.w.events.TitleChanged(n.w, old, new, external)
}
func (n *titleNotifier) Invalidated() { n.w.markInvalid() }

type minimizedNotifier struct{ w *Window }

func (n *minimizedNotifier) Changed(old, new bool, external bool) {
	n.w.events.MinimizedChanged(n.w, old, new, external)
}
func (n *minimizedNotifier) Invalidated() { n.w.markInvalid() }

type fullscreenNotifier struct{ w *Window }

func (n *fullscreenNotifier) Changed(old, new bool, external bool) {
	n.w.events.FullscreenChanged(n.w, old, new, external)
}
func (n *fullscreenNotifier) Invalidated() { n.w.markInvalid() }
