// See doc.go for the package overview. This file assembles State: the
// central owner arena indexed by stable ids (pid for applications, element
// handle for windows) that spec.md §9's design notes call out as the
// alternative to weak-reference bookkeeping, plus the glue implementing
// applife.Events/screens.Events/spaces.Events by posting onto the main
// coordination goroutine and emitting onto the event bus (spec.md §4.5,
// §5: "assert" that emission is single-threaded, implemented here as a
// single goroutine draining a channel rather than a runtime thread-id
// check).
package windowstate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/axstate/windowstate/internal/applife"
	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/ax/rpc"
	"github.com/axstate/windowstate/internal/config"
	"github.com/axstate/windowstate/internal/eventbus"
	"github.com/axstate/windowstate/internal/geom"
	"github.com/axstate/windowstate/internal/logx"
	"github.com/axstate/windowstate/internal/mainloop"
	"github.com/axstate/windowstate/internal/persist"
	"github.com/axstate/windowstate/internal/propcache"
	"github.com/axstate/windowstate/internal/screens"
	"github.com/axstate/windowstate/internal/spaces"
	"github.com/axstate/windowstate/internal/winlife"
)

var (
	_ applife.Events = (*State)(nil)
	_ screens.Events = (*State)(nil)
	_ spaces.Events  = (*State)(nil)
)

// State is the root of the observable window-state model (spec.md §4.5).
type State struct {
	facade      ax.Facade
	obsFactory  ax.ObserverFactory
	appObserver AppObserver
	cfg         *config.Config

	loop   *mainloop.Loop
	bus    *eventbus.Bus
	cancel context.CancelFunc

	screenTracker *screens.Tracker
	spaceTracker  *spaces.Tracker

	mu      sync.RWMutex
	apps    map[int32]*Application
	windows map[ax.Element]*Window

	FrontmostApplication *propcache.Slot[*Application]
}

// Initialize enumerates running applications and screens, starts the space
// observer, and resolves once every application's initial property slots
// have settled (spec.md §6).
func Initialize(ctx context.Context, opts ...Option) (*State, error) {
	return initialize(ctx, nil, opts...)
}

// InitializeWithRecovery is Initialize, seeded with a recovery blob
// previously obtained from State.RecoveryBlob so that space-probe internal
// ids survive a restart (spec.md §4.6).
func InitializeWithRecovery(ctx context.Context, blob []byte, opts ...Option) (*State, error) {
	b, err := persist.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("windowstate: decode recovery blob: %w", err)
	}
	return initialize(ctx, b, opts...)
}

func initialize(ctx context.Context, recovery *persist.Blob, opts ...Option) (*State, error) {
	bc := &buildConfig{cfg: config.Default()}
	for _, opt := range opts {
		opt(bc)
	}

	if bc.appObserver == nil {
		return nil, fmt.Errorf("windowstate: WithAppObserver is required")
	}
	if bc.screenEnum == nil {
		return nil, fmt.Errorf("windowstate: WithScreenEnumerator is required")
	}
	if bc.osSpaceTracker == nil {
		return nil, fmt.Errorf("windowstate: WithSpaceTracker is required")
	}

	if lvl, err := zerolog.ParseLevel(bc.cfg.Log.Level); err == nil {
		logx.Configure(lvl, os.Stderr, bc.cfg.Log.JSON)
	}

	facade, obsFactory := bc.facade, bc.obsFactory
	if facade == nil || obsFactory == nil {
		dialed, err := rpc.Dial(ctx, bc.cfg.Transport.SocketPath, bc.cfg.Transport.RequestTimeout, bc.cfg.Transport.WorkerPoolSize)
		if err != nil {
			return nil, fmt.Errorf("windowstate: dial accessibility facade: %w", err)
		}
		if facade == nil {
			facade = dialed
		}
		if obsFactory == nil {
			obsFactory = dialed
		}
	}

	s := &State{
		facade:      facade,
		obsFactory:  obsFactory,
		appObserver: bc.appObserver,
		cfg:         bc.cfg,
		loop:        mainloop.New(),
		bus:         eventbus.New(),
		apps:        make(map[int32]*Application),
		windows:     make(map[ax.Element]*Window),
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop.Run(loopCtx)

	s.screenTracker = screens.New(bc.screenEnum, s)
	if err := s.screenTracker.Initialize(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("windowstate: initialize screens: %w", err)
	}

	s.spaceTracker = spaces.New(bc.osSpaceTracker, s.screenTracker, s, s.refreshAllApplications)
	if recovery != nil {
		if err := s.spaceTracker.InitializeWithRecovery(ctx, recovery); err != nil {
			cancel()
			return nil, fmt.Errorf("windowstate: initialize spaces from recovery: %w", err)
		}
	} else if err := s.spaceTracker.Initialize(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("windowstate: initialize spaces: %w", err)
	}

	s.FrontmostApplication = propcache.New[*Application]("frontmost-application",
		propcache.PointerIdentity[*Application]{},
		&frontmostDelegate{state: s},
		&frontmostNotifier{state: s},
		propcache.Writable[*Application]())

	bc.appObserver.OnLaunch(func(pid int32) { go s.handleLaunch(context.Background(), pid) })
	bc.appObserver.OnTerminate(func(pid int32) { go s.handleTerminate(pid) })
	bc.appObserver.OnActivate(func(pid int32) {
		go func() { _, _ = s.FrontmostApplication.Refresh(context.Background()) }()
	})

	elements, err := facade.EnumerateApplications(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("windowstate: enumerate applications: %w", err)
	}

	var wg sync.WaitGroup
	for _, el := range elements {
		wg.Add(1)
		go func(el ax.Element) {
			defer wg.Done()
			pid, err := facade.PID(ctx, el)
			if err != nil {
				logx.For("windowstate").Debug().Err(err).Msg("failed to resolve pid for enumerated application")
				return
			}
			s.launchApplication(ctx, el, pid, false)
		}(el)
	}
	wg.Wait()

	// Per spec.md §9's open question, no ordering is guaranteed between
	// application-launched and this initial resolution.
	if err := s.FrontmostApplication.Initialize(ctx); err != nil {
		logx.For("windowstate").Debug().Err(err).Msg("frontmost-application initialization failed")
	}

	return s, nil
}

// Close stops the main coordination goroutine. State is unusable afterward.
func (s *State) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// On subscribes handler to the event type named by its parameter, e.g.
// state.On(func(e windowstate.WindowCreated) { ... }). Panics if handler's
// signature does not match one of the event types in events.go — a
// programming error, not a runtime condition a caller should recover from.
func (s *State) On(handler any) Unsubscribe {
	switch h := handler.(type) {
	case func(FrontmostApplicationChanged):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(ApplicationLaunched):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(ApplicationTerminated):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(ApplicationHiddenChanged):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(ApplicationMainWindowChanged):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(ApplicationFocusedWindowChanged):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(WindowCreated):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(WindowDestroyed):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(WindowFrameChanged):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(WindowTitleChanged):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(WindowMinimizedChanged):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(WindowFullscreenChanged):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(ScreenLayoutChanged):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(SpaceWillChange):
		return Unsubscribe(eventbus.On(s.bus, h))
	case func(SpaceDidChange):
		return Unsubscribe(eventbus.On(s.bus, h))
	default:
		panic(fmt.Sprintf("windowstate: On called with unsupported handler type %T", handler))
	}
}

// emit posts event onto the main coordination goroutine before handing it
// to the bus, since eventbus.Emit's non-reentrant guard (internal/eventbus)
// assumes a single emitting goroutine at a time.
func emit[T any](s *State, event T) {
	s.loop.Post(func() { eventbus.Emit(s.bus, event) })
}

// RunningApplications returns a snapshot of every currently running
// application.
func (s *State) RunningApplications() []*Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Application, 0, len(s.apps))
	for _, a := range s.apps {
		out = append(out, a)
	}
	return out
}

// KnownWindows returns a snapshot of every currently known window,
// flattened across all running applications.
func (s *State) KnownWindows() []*Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Window, 0, len(s.windows))
	for _, w := range s.windows {
		out = append(out, w)
	}
	return out
}

// Screens returns the current physical screens.
func (s *State) Screens() []*Screen {
	return wrapScreens(s.screenTracker.Screens())
}

// CurrentSpaceIDs returns the current space id for each screen, in the same
// order as Screens; a screen whose space has not been observed yet reports 0.
func (s *State) CurrentSpaceIDs() []int {
	raw := s.screenTracker.Screens()
	out := make([]int, 0, len(raw))
	for _, sc := range raw {
		id, _ := sc.CurrentSpaceID()
		out = append(out, id)
	}
	return out
}

// RecoveryBlob snapshots the space-probe set as JSON for a later
// InitializeWithRecovery call.
func (s *State) RecoveryBlob() ([]byte, error) {
	b, err := s.spaceTracker.RecoveryBlob()
	if err != nil {
		return nil, err
	}
	return json.Marshal(b)
}

func (s *State) lookupApplication(pid int32) *Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apps[pid]
}

// wrapWindow returns the canonical *Window for w, creating and caching one
// on first sight. Safe from any goroutine.
func (s *State) wrapWindow(w *winlife.Window) *Window {
	if w == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if win, ok := s.windows[w.Element]; ok {
		return win
	}
	win := &Window{state: s, delegate: w}
	s.windows[w.Element] = win
	return win
}

func (s *State) forgetWindow(el ax.Element) *Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	win := s.windows[el]
	delete(s.windows, el)
	return win
}

// launchApplication builds and initializes the application delegate for
// (el, pid) on the calling goroutine (expected to be a background
// goroutine, since application initialization does OS I/O), then posts the
// arena insertion and event emission onto the main coordination goroutine.
func (s *State) launchApplication(ctx context.Context, el ax.Element, pid int32, announce bool) {
	delegate := applife.New(s.facade, s.obsFactory, el, pid, s.screenTracker.GlobalMaxY, s)

	if err := applife.InitializeWithRetries(ctx, delegate, s.cfg.Lifecycle.ApplicationInitRetries); err != nil {
		logx.For("windowstate").Debug().Int32("pid", pid).Err(err).Msg("application initialization failed after retries, dropping")
		return
	}

	wrapped := &Application{state: s, delegate: delegate}
	windows := delegate.RunningWindows()

	s.loop.Post(func() {
		s.mu.Lock()
		s.apps[pid] = wrapped
		s.mu.Unlock()
		for _, w := range windows {
			s.wrapWindow(w)
		}
		if announce {
			eventbus.Emit(s.bus, ApplicationLaunched{Application: wrapped, External: true})
		}
	})

	if announce {
		go func() { _, _ = s.FrontmostApplication.Refresh(context.Background()) }()
	}
}

func (s *State) handleLaunch(ctx context.Context, pid int32) {
	el, err := s.facade.ElementForPID(ctx, pid)
	if err != nil {
		logx.For("windowstate").Debug().Int32("pid", pid).Err(err).Msg("failed to resolve element for launched pid")
		return
	}
	s.launchApplication(ctx, el, pid, true)
}

func (s *State) handleTerminate(pid int32) {
	s.mu.Lock()
	app, ok := s.apps[pid]
	if ok {
		delete(s.apps, pid)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	app.delegate.MarkTerminated()

	s.loop.Post(func() { eventbus.Emit(s.bus, ApplicationTerminated{Application: app, External: true}) })
	go func() { _, _ = s.FrontmostApplication.Refresh(context.Background()) }()
}

// refreshAllApplications is the spaces.Tracker's refreshApps collaborator
// (spec.md §4.6 step 6): every running application re-enumerates its
// windows in parallel, since the window set on the new space differs.
func (s *State) refreshAllApplications(ctx context.Context) error {
	apps := s.RunningApplications()

	var wg sync.WaitGroup
	for _, a := range apps {
		wg.Add(1)
		go func(a *Application) {
			defer wg.Done()
			if err := a.delegate.RefreshWindows(ctx); err != nil {
				logx.For("windowstate").Debug().Int32("pid", a.PID()).Err(err).Msg("window re-enumeration failed during space change")
			}
		}(a)
	}
	wg.Wait()
	return nil
}

// applife.Events

func (s *State) WindowCreated(a *applife.Application, w *winlife.Window) {
	s.loop.Post(func() {
		win := s.wrapWindow(w)
		eventbus.Emit(s.bus, WindowCreated{Window: win, External: true})
	})
}

func (s *State) WindowDestroyed(a *applife.Application, w *winlife.Window) {
	s.loop.Post(func() {
		win := s.forgetWindow(w.Element)
		if win == nil {
			win = &Window{state: s, delegate: w}
		}
		eventbus.Emit(s.bus, WindowDestroyed{Window: win, External: true})
	})
}

func (s *State) WindowFrameChanged(a *applife.Application, w *winlife.Window, old, new geom.Rect, external bool) {
	s.loop.Post(func() {
		eventbus.Emit(s.bus, WindowFrameChanged{Window: s.wrapWindow(w), Old: old, New: new, External: external})
	})
}

func (s *State) WindowTitleChanged(a *applife.Application, w *winlife.Window, old, new string, external bool) {
	s.loop.Post(func() {
		eventbus.Emit(s.bus, WindowTitleChanged{Window: s.wrapWindow(w), Old: old, New: new, External: external})
	})
}

func (s *State) WindowMinimizedChanged(a *applife.Application, w *winlife.Window, old, new bool, external bool) {
	s.loop.Post(func() {
		eventbus.Emit(s.bus, WindowMinimizedChanged{Window: s.wrapWindow(w), Old: old, New: new, External: external})
	})
}

func (s *State) WindowFullscreenChanged(a *applife.Application, w *winlife.Window, old, new bool, external bool) {
	s.loop.Post(func() {
		eventbus.Emit(s.bus, WindowFullscreenChanged{Window: s.wrapWindow(w), Old: old, New: new, External: external})
	})
}

func (s *State) MainWindowChanged(a *applife.Application, old, new *winlife.Window, external bool) {
	s.loop.Post(func() {
		app := s.lookupApplication(a.PID)
		eventbus.Emit(s.bus, ApplicationMainWindowChanged{
			Application: app,
			Old:         s.wrapWindow(old),
			New:         s.wrapWindow(new),
			External:    external,
		})
	})
}

func (s *State) FocusedWindowChanged(a *applife.Application, old, new *winlife.Window, external bool) {
	s.loop.Post(func() {
		app := s.lookupApplication(a.PID)
		eventbus.Emit(s.bus, ApplicationFocusedWindowChanged{
			Application: app,
			Old:         s.wrapWindow(old),
			New:         s.wrapWindow(new),
			External:    external,
		})
	})
}

func (s *State) HiddenChanged(a *applife.Application, old, new bool, external bool) {
	s.loop.Post(func() {
		app := s.lookupApplication(a.PID)
		eventbus.Emit(s.bus, ApplicationHiddenChanged{Application: app, Old: old, New: new, External: external})
	})
}

// screens.Events

func (s *State) LayoutChanged(added, removed, changed, unchanged []*screens.Screen) {
	s.loop.Post(func() {
		eventbus.Emit(s.bus, ScreenLayoutChanged{
			Added:     wrapScreens(added),
			Removed:   wrapScreens(removed),
			Changed:   wrapScreens(changed),
			Unchanged: wrapScreens(unchanged),
			External:  true,
		})
	})
}

// spaces.Events

func (s *State) SpaceWillChange(ids []int) {
	s.loop.Post(func() { eventbus.Emit(s.bus, SpaceWillChange{SpaceIDs: ids, External: true}) })
}

func (s *State) SpaceDidChange(ids []int) {
	s.loop.Post(func() { eventbus.Emit(s.bus, SpaceDidChange{SpaceIDs: ids, External: true}) })
}
