// Package applife owns one application's window set, subscribes to
// application-level notifications, reconciles main/focused window identity
// against window-set membership (including deferred handling for elements
// that arrive before their window-created counterpart), and drives window
// discovery. See spec.md §4.4. Grounded on the teacher's
// internal/reconcile/reconcile.go syncFocus (reconciling a cached pointer
// against an asynchronously obtained snapshot) and internal/focus/focus.go
// (resolving focus against local vs. server state).
package applife

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/delegate"
	"github.com/axstate/windowstate/internal/geom"
	"github.com/axstate/windowstate/internal/logx"
	"github.com/axstate/windowstate/internal/propcache"
	"github.com/axstate/windowstate/internal/werrors"
	"github.com/axstate/windowstate/internal/winlife"
)

// State is the application lifecycle state (spec.md §4.4).
type State int

const (
	StateInitializing State = iota
	StateLive
	StateTerminated
)

// Events receives every notable thing that happens to this application or
// one of its windows. internal/eventbus-backed root package implements it.
type Events interface {
	WindowCreated(a *Application, w *winlife.Window)
	WindowDestroyed(a *Application, w *winlife.Window)
	WindowFrameChanged(a *Application, w *winlife.Window, old, new geom.Rect, external bool)
	WindowTitleChanged(a *Application, w *winlife.Window, old, new string, external bool)
	WindowMinimizedChanged(a *Application, w *winlife.Window, old, new bool, external bool)
	WindowFullscreenChanged(a *Application, w *winlife.Window, old, new bool, external bool)
	MainWindowChanged(a *Application, old, new *winlife.Window, external bool)
	FocusedWindowChanged(a *Application, old, new *winlife.Window, external bool)
	HiddenChanged(a *Application, old, new bool, external bool)
}

var appLifecycleAttrs = []ax.Attr{ax.AttrMainWindow, ax.AttrFocusedWindow, ax.AttrHidden}

var appLifecycleNotifications = []ax.NotificationName{
	ax.NotifyWindowCreated, ax.NotifyMainWindowChanged, ax.NotifyFocusedWindowChanged,
	ax.NotifyApplicationShown, ax.NotifyApplicationHidden,
}

type deferredFunc func(w *winlife.Window)

// Application owns the window-set and lifecycle state of one running
// process. Identity is the pid (spec.md §3).
type Application struct {
	Element ax.Element
	PID     int32

	// DisplayName is a supplemented, best-effort attribute beyond spec.md's
	// distillation (see SPEC_FULL.md §4.4): the application's human-readable
	// name, falling back to the bundle id when unavailable.
	DisplayName string
	BundleID    string

	facade     ax.Facade
	obsFactory ax.ObserverFactory
	observer   ax.Observer
	globalMaxY func() float64
	events     Events

	MainWindow    *propcache.Slot[*winlife.Window]
	FocusedWindow *propcache.Slot[*winlife.Window]
	Hidden        *propcache.Slot[bool]

	mu       sync.RWMutex
	windows  map[ax.Element]*winlife.Window
	deferred map[ax.Element][]deferredFunc

	stateMu sync.Mutex
	state   State
}

// New constructs an Application bound to el/pid, not yet initialized.
func New(facade ax.Facade, obsFactory ax.ObserverFactory, el ax.Element, pid int32, globalMaxY func() float64, events Events) *Application {
	a := &Application{
		Element:    el,
		PID:        pid,
		facade:     facade,
		obsFactory: obsFactory,
		globalMaxY: globalMaxY,
		events:     events,
		windows:    make(map[ax.Element]*winlife.Window),
		deferred:   make(map[ax.Element][]deferredFunc),
		state:      StateInitializing,
	}

	batch := delegate.NewBatch(facade, el, appLifecycleAttrs)

	a.MainWindow = propcache.New[*winlife.Window]("main-window",
		propcache.PointerIdentity[*winlife.Window]{},
		&mainWindowDelegate{facade: facade, appEl: el, batch: batch, resolve: a.resolveWindow},
		&mainWindowNotifier{a: a},
		propcache.Writable[*winlife.Window](),
	)

	a.FocusedWindow = propcache.New[*winlife.Window]("focused-window",
		propcache.PointerIdentity[*winlife.Window]{},
		&delegate.ObjectResolver[*winlife.Window]{
			Facade: facade, Element: el, Attr: ax.AttrFocusedWindow, Batch: batch,
			Resolve: a.resolveWindow,
		},
		&focusedWindowNotifier{a: a},
	)

	a.Hidden = propcache.New[bool]("hidden",
		propcache.Comparable[bool]{},
		&delegate.Scalar[bool]{Facade: facade, Element: el, Attr: ax.AttrHidden, Batch: batch, Decode: delegate.DecodeBool},
		&hiddenNotifier{a: a},
	)

	return a
}

// resolveWindow looks an already-known window element up by identity. A
// main/focused-window attribute pointing at a window not yet discovered
// resolves to nil; Initialize re-resolves both slots after window discovery
// completes, and runtime notifications go through the deferred-handler path
// instead of this direct resolver.
func (a *Application) resolveWindow(ctx context.Context, el ax.Element) (*winlife.Window, error) {
	w, _ := a.lookupWindow(el)
	return w, nil
}

func (a *Application) lookupWindow(el ax.Element) (*winlife.Window, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	w, ok := a.windows[el]
	return w, ok
}

// Initialize subscribes application-level notifications, reads {main-window,
// focused-window, hidden} in one batch, discovers and initializes existing
// windows in parallel (dropping individual failures per spec.md §7), then
// resolves main-window/focused-window against the now-known window set.
func (a *Application) Initialize(ctx context.Context) error {
	if err := a.subscribeAll(ctx); err != nil {
		return fmt.Errorf("applife: subscribe pid=%d: %w", a.PID, ax.Classify(err))
	}

	a.readDisplayName(ctx)

	if err := a.discoverWindows(ctx); err != nil {
		return fmt.Errorf("applife: discover windows pid=%d: %w", a.PID, err)
	}

	if err := a.Hidden.Initialize(ctx); err != nil {
		return fmt.Errorf("applife: hidden pid=%d: %w", a.PID, err)
	}
	if err := a.MainWindow.Initialize(ctx); err != nil {
		return fmt.Errorf("applife: main-window pid=%d: %w", a.PID, err)
	}
	if err := a.FocusedWindow.Initialize(ctx); err != nil {
		return fmt.Errorf("applife: focused-window pid=%d: %w", a.PID, err)
	}

	a.stateMu.Lock()
	a.state = StateLive
	a.stateMu.Unlock()
	return nil
}

// InitializeWithRetries attempts Initialize up to retries+1 times with no
// backoff between attempts, per spec.md §4.4's partial-failure policy: "the
// OS frequently throws transient errors against apps that just launched."
func InitializeWithRetries(ctx context.Context, a *Application, retries int) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if err = a.Initialize(ctx); err == nil {
			return nil
		}
		logx.For("applife").Debug().
			Int32("pid", a.PID).
			Int("attempt", attempt).
			Err(err).
			Msg("application initialization failed, retrying")
	}
	return err
}

func (a *Application) readDisplayName(ctx context.Context) {
	raw, err := a.facade.Attribute(ctx, a.Element, ax.AttrTitle)
	if err == nil {
		if s, ok := raw.(string); ok && s != "" {
			a.DisplayName = s
			return
		}
	}
	a.DisplayName = a.BundleID
}

func (a *Application) discoverWindows(ctx context.Context) error {
	elements, err := a.facade.ArrayAttribute(ctx, a.Element, ax.AttrWindows)
	if err != nil {
		return ax.Classify(err)
	}

	var wg sync.WaitGroup
	for _, el := range elements {
		wg.Add(1)
		go func(el ax.Element) {
			defer wg.Done()
			a.createWindow(ctx, el, false)
		}(el)
	}
	wg.Wait()
	return nil
}

// createWindow builds and initializes a window delegate for el, idempotent
// on element identity. A nil return means el was rejected, already known,
// or failed to initialize; the caller has already logged the reason.
func (a *Application) createWindow(ctx context.Context, el ax.Element, announce bool) *winlife.Window {
	if w, ok := a.lookupWindow(el); ok {
		return w
	}

	observer := a.observer
	w := winlife.New(a.facade, observer, el, a.PID, a.globalMaxY, &windowEventsAdapter{a: a})
	if err := w.Initialize(ctx); err != nil {
		if kind, ok := werrors.KindOf(err); ok && kind == werrors.Ignored {
			logx.For("applife").Debug().Int32("pid", a.PID).Str("element", el.String()).Msg("window rejected by subrole filter")
		} else {
			logx.For("applife").Debug().Int32("pid", a.PID).Str("element", el.String()).Err(err).Msg("window initialization failed")
		}
		return nil
	}

	a.mu.Lock()
	a.windows[el] = w
	deferredForEl := a.deferred[el]
	delete(a.deferred, el)
	a.mu.Unlock()

	for _, fn := range deferredForEl {
		fn(w)
	}

	if announce {
		a.events.WindowCreated(a, w)
	}
	return w
}

// RefreshWindows re-enumerates this application's window list, announcing
// any element not already known. Used by the space observer after a space
// change (spec.md §4.6 step 6): windows that exist only on the space just
// switched to are absent from every prior enumeration and so need the same
// window-created treatment as a runtime-discovered window.
func (a *Application) RefreshWindows(ctx context.Context) error {
	elements, err := a.facade.ArrayAttribute(ctx, a.Element, ax.AttrWindows)
	if err != nil {
		return ax.Classify(err)
	}

	var wg sync.WaitGroup
	for _, el := range elements {
		if _, ok := a.lookupWindow(el); ok {
			continue
		}
		wg.Add(1)
		go func(el ax.Element) {
			defer wg.Done()
			a.createWindow(ctx, el, true)
		}(el)
	}
	wg.Wait()
	return nil
}

func (a *Application) addDeferred(el ax.Element, fn deferredFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deferred[el] = append(a.deferred[el], fn)
}

func (a *Application) subscribeAll(ctx context.Context) error {
	observer, err := a.obsFactory.NewObserver(ctx, a.PID, a.handleNotification)
	if err != nil {
		return err
	}
	a.observer = observer
	for _, n := range appLifecycleNotifications {
		if err := observer.AddNotification(ctx, n, a.Element); err != nil {
			return err
		}
	}
	return nil
}

// handleNotification is the ax.Observer callback for this application's
// pid-scoped notifications, covering both application-level events (on
// a.Element) and window-created (whose Element is the new window).
func (a *Application) handleNotification(n ax.Notification) {
	ctx := context.Background()
	switch n.Name {
	case ax.NotifyWindowCreated:
		a.createWindow(ctx, n.Element, true)
	case ax.NotifyMainWindowChanged:
		a.handleObjectSlotChange(ctx, n.Element, a.MainWindow)
	case ax.NotifyFocusedWindowChanged:
		a.handleObjectSlotChange(ctx, n.Element, a.FocusedWindow)
	case ax.NotifyApplicationShown, ax.NotifyApplicationHidden:
		go func() { _, _ = a.Hidden.Refresh(ctx) }()
	default:
		if w, ok := a.lookupWindow(n.Element); ok {
			w.HandleNotification(ctx, n.Name)
		} else {
			// Unknown window element: replay once it's known (or known to
			// be gone), per spec.md §4.4's catch-all rule.
			a.addDeferred(n.Element, func(w *winlife.Window) {
				if w != nil {
					w.HandleNotification(ctx, n.Name)
				}
			})
		}
	}
}

// handleObjectSlotChange implements spec.md §4.4's main/focused-window
// runtime-handling rule.
func (a *Application) handleObjectSlotChange(ctx context.Context, el ax.Element, slot *propcache.Slot[*winlife.Window]) {
	if el.IsZero() || el == a.Element {
		go func() { _, _ = slot.Refresh(ctx) }()
		return
	}
	if _, ok := a.lookupWindow(el); ok {
		go func() { _, _ = slot.Refresh(ctx) }()
		return
	}

	var fired int32
	a.addDeferred(el, func(w *winlife.Window) {
		if atomic.CompareAndSwapInt32(&fired, 0, 1) {
			go func() { _, _ = slot.Refresh(ctx) }()
		}
	})

	// Probe asynchronously: the OS sometimes hands us a second object
	// claiming to be the application, or an already-invalid element
	// (spec.md §9 "observed-element normalization").
	go func() {
		raw, err := a.facade.Attribute(ctx, el, ax.AttrRole)
		if err != nil {
			if atomic.CompareAndSwapInt32(&fired, 0, 1) {
				_, _ = slot.Refresh(ctx)
			}
			return
		}
		if role, _ := raw.(string); role == ax.RoleApplication {
			if atomic.CompareAndSwapInt32(&fired, 0, 1) {
				_, _ = slot.Refresh(ctx)
			}
		}
	}()
}

// SetMainWindow implements the main-window write path: the client passes a
// window handle; the element is extracted and main=true is written to that
// element (not the application), which the OS mirrors back onto
// AXMainWindow synchronously.
func (a *Application) SetMainWindow(ctx context.Context, w *winlife.Window) (*winlife.Window, error) {
	return a.MainWindow.Set(ctx, w)
}

// RunningWindows returns a snapshot of this application's known windows.
func (a *Application) RunningWindows() []*winlife.Window {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*winlife.Window, 0, len(a.windows))
	for _, w := range a.windows {
		out = append(out, w)
	}
	return out
}

// RemoveWindow drops w from the window-set, e.g. on element-destroyed.
func (a *Application) RemoveWindow(el ax.Element) (*winlife.Window, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, ok := a.windows[el]
	if ok {
		delete(a.windows, el)
	}
	return w, ok
}

// State returns the application's current lifecycle state.
func (a *Application) State() State {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.state
}

// MarkTerminated transitions the application to StateTerminated.
func (a *Application) MarkTerminated() {
	a.stateMu.Lock()
	a.state = StateTerminated
	a.stateMu.Unlock()
	if a.observer != nil {
		_ = a.observer.Close()
	}
}

// Notifier adapters bridging propcache.Notifier to Events.

type mainWindowNotifier struct{ a *Application }

func (n *mainWindowNotifier) Changed(old, new *winlife.Window, external bool) {
	n.a.events.MainWindowChanged(n.a, old, new, external)
}
func (n *mainWindowNotifier) Invalidated() {}

type focusedWindowNotifier struct{ a *Application }

func (n *focusedWindowNotifier) Changed(old, new *winlife.Window, external bool) {
	n.a.events.FocusedWindowChanged(n.a, old, new, external)
}
func (n *focusedWindowNotifier) Invalidated() {}

type hiddenNotifier struct{ a *Application }

func (n *hiddenNotifier) Changed(old, new bool, external bool) {
	n.a.events.HiddenChanged(n.a, old, new, external)
}
func (n *hiddenNotifier) Invalidated() {}

// windowEventsAdapter bridges winlife.Events (per-window) to Application's
// own Events plus window-set bookkeeping on destroy.
type windowEventsAdapter struct{ a *Application }

func (wa *windowEventsAdapter) FrameChanged(w *winlife.Window, old, new geom.Rect, external bool) {
	wa.a.events.WindowFrameChanged(wa.a, w, old, new, external)
}
func (wa *windowEventsAdapter) TitleChanged(w *winlife.Window, old, new string, external bool) {
	wa.a.events.WindowTitleChanged(wa.a, w, old, new, external)
}
func (wa *windowEventsAdapter) MinimizedChanged(w *winlife.Window, old, new bool, external bool) {
	wa.a.events.WindowMinimizedChanged(wa.a, w, old, new, external)
}
func (wa *windowEventsAdapter) FullscreenChanged(w *winlife.Window, old, new bool, external bool) {
	wa.a.events.WindowFullscreenChanged(wa.a, w, old, new, external)
}
func (wa *windowEventsAdapter) Destroyed(w *winlife.Window) {
	if _, ok := wa.a.RemoveWindow(w.Element); ok {
		wa.a.events.WindowDestroyed(wa.a, w)
	}
	wa.a.mu.Lock()
	deferredForEl := wa.a.deferred[w.Element]
	delete(wa.a.deferred, w.Element)
	wa.a.mu.Unlock()
	for _, fn := range deferredForEl {
		fn(nil)
	}
}
