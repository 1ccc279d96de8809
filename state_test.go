package windowstate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/ax/axfake"
	"github.com/axstate/windowstate/internal/config"
	"github.com/axstate/windowstate/internal/geom"
	"github.com/axstate/windowstate/internal/screens"
)

type fakeAppObserver struct {
	mu         sync.Mutex
	frontmost  int32
	activated  []int32
	onLaunch   func(int32)
	onTerm     func(int32)
	onActivate func(int32)
}

func (f *fakeAppObserver) FrontmostPID(ctx context.Context) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frontmost, nil
}

func (f *fakeAppObserver) Activate(ctx context.Context, pid int32) error {
	f.mu.Lock()
	f.frontmost = pid
	f.activated = append(f.activated, pid)
	cb := f.onActivate
	f.mu.Unlock()
	if cb != nil {
		cb(pid)
	}
	return nil
}

func (f *fakeAppObserver) OnLaunch(cb func(int32))   { f.onLaunch = cb }
func (f *fakeAppObserver) OnTerminate(cb func(int32)) { f.onTerm = cb }
func (f *fakeAppObserver) OnActivate(cb func(int32))  { f.onActivate = cb }

func (f *fakeAppObserver) launch(pid int32) {
	if cb := f.onLaunch; cb != nil {
		cb(pid)
	}
}

func (f *fakeAppObserver) terminate(pid int32) {
	if cb := f.onTerm; cb != nil {
		cb(pid)
	}
}

type fakeScreenEnumerator struct {
	natives []screens.NativeScreen
}

func (f *fakeScreenEnumerator) List(ctx context.Context) ([]screens.NativeScreen, error) {
	return f.natives, nil
}
func (f *fakeScreenEnumerator) OnChange(callback func()) {}

type fakeOSTracker struct {
	mu        sync.Mutex
	nextID    int
	visible   map[string]bool
	onChange  func()
}

func newFakeOSTracker() *fakeOSTracker {
	return &fakeOSTracker{visible: make(map[string]bool)}
}

func (f *fakeOSTracker) CreatePinnedWindow(ctx context.Context, screenID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := screenID + "-probe"
	f.visible[id] = true
	return id, nil
}

func (f *fakeOSTracker) VisibleWindowIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id, v := range f.visible {
		if v {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeOSTracker) OnSpaceChange(callback func()) { f.onChange = callback }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Lifecycle.ApplicationInitRetries = 1
	cfg.Transport.RequestTimeout = time.Second
	return cfg
}

func newTestState(t *testing.T, facade *axfake.Facade, obs *fakeAppObserver) *State {
	t.Helper()
	s, err := Initialize(context.Background(),
		WithConfig(testConfig()),
		WithFacade(facade),
		WithObserverFactory(facade),
		WithAppObserver(obs),
		WithScreenEnumerator(&fakeScreenEnumerator{natives: []screens.NativeScreen{
			{ID: "main", Frame: geom.Rect{Width: 1920, Height: 1080}},
		}}),
		WithSpaceTracker(newFakeOSTracker()),
	)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func windowAttrs(x, y, w, h float64, title string) map[ax.Attr]any {
	return map[ax.Attr]any{
		ax.AttrPosition:   geom.Point{X: x, Y: y},
		ax.AttrSize:       geom.Size{Width: w, Height: h},
		ax.AttrTitle:      title,
		ax.AttrMinimized:  false,
		ax.AttrFullscreen: false,
		ax.AttrSubrole:    "AXStandardWindow",
	}
}

// waitFor polls cond until it reports true or the deadline passes, since
// State's event delivery hops through the main coordination goroutine
// asynchronously from a test's perspective.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatal("condition never became true")
	}
}

func TestInitialize_DiscoversRunningApplicationsAndWindows(t *testing.T) {
	f := axfake.New()
	app := f.NewApplication(100)
	win := f.NewWindow(100)
	for k, v := range windowAttrs(0, 0, 800, 600, "Main") {
		f.SetAttr(win, k, v)
	}
	f.SetArrayAttr(app, ax.AttrWindows, []ax.Element{win})
	f.SetAttr(app, ax.AttrHidden, false)

	obs := &fakeAppObserver{frontmost: 100}
	s := newTestState(t, f, obs)

	apps := s.RunningApplications()
	if len(apps) != 1 {
		t.Fatalf("RunningApplications() len = %d, want 1", len(apps))
	}
	if apps[0].PID() != 100 {
		t.Errorf("PID() = %d, want 100", apps[0].PID())
	}

	wins := apps[0].KnownWindows()
	if len(wins) != 1 {
		t.Fatalf("KnownWindows() len = %d, want 1", len(wins))
	}
	if wins[0].Title() != "Main" {
		t.Errorf("Title() = %q, want Main", wins[0].Title())
	}
}

func TestWindowFrameChanged_EmitsEventWithExternalFlag(t *testing.T) {
	f := axfake.New()
	app := f.NewApplication(1)
	win := f.NewWindow(1)
	for k, v := range windowAttrs(0, 0, 100, 100, "W") {
		f.SetAttr(win, k, v)
	}
	f.SetArrayAttr(app, ax.AttrWindows, []ax.Element{win})
	f.SetAttr(app, ax.AttrHidden, false)

	s := newTestState(t, f, &fakeAppObserver{})

	var mu sync.Mutex
	var gotExternal *bool
	s.On(func(e WindowFrameChanged) {
		mu.Lock()
		defer mu.Unlock()
		v := e.External
		gotExternal = &v
	})

	apps := s.RunningApplications()
	target := apps[0].KnownWindows()[0]

	newPos := geom.Point{X: 50, Y: 50}
	if _, err := target.SetPosition(context.Background(), newPos); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotExternal != nil
	})

	mu.Lock()
	defer mu.Unlock()
	if *gotExternal {
		t.Errorf("External = true for a write this client itself issued, want false")
	}
}

func TestApplicationTerminated_RemovesFromArenaAndEmits(t *testing.T) {
	f := axfake.New()
	app := f.NewApplication(7)
	f.SetArrayAttr(app, ax.AttrWindows, nil)
	f.SetAttr(app, ax.AttrHidden, false)

	obs := &fakeAppObserver{}
	s := newTestState(t, f, obs)

	if len(s.RunningApplications()) != 1 {
		t.Fatalf("expected one running application before termination")
	}

	var mu sync.Mutex
	var terminated *ApplicationTerminated
	s.On(func(e ApplicationTerminated) {
		mu.Lock()
		defer mu.Unlock()
		terminated = &e
	})

	obs.terminate(7)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return terminated != nil
	})

	if len(s.RunningApplications()) != 0 {
		t.Errorf("RunningApplications() not empty after termination")
	}

	mu.Lock()
	defer mu.Unlock()
	if terminated.Application.PID() != 7 {
		t.Errorf("ApplicationTerminated.Application.PID() = %d, want 7", terminated.Application.PID())
	}
}

func TestApplicationLaunched_AnnouncedForRuntimeLaunchNotInitialEnumeration(t *testing.T) {
	f := axfake.New()
	existing := f.NewApplication(1)
	f.SetArrayAttr(existing, ax.AttrWindows, nil)
	f.SetAttr(existing, ax.AttrHidden, false)

	obs := &fakeAppObserver{}
	s := newTestState(t, f, obs)

	var mu sync.Mutex
	var launches []int32
	s.On(func(e ApplicationLaunched) {
		mu.Lock()
		defer mu.Unlock()
		launches = append(launches, e.Application.PID())
	})

	launched := f.NewApplication(2)
	f.SetArrayAttr(launched, ax.AttrWindows, nil)
	f.SetAttr(launched, ax.AttrHidden, false)
	obs.launch(2)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(launches) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if len(launches) != 1 || launches[0] != 2 {
		t.Errorf("launches = %v, want [2] (pid 1 was already running at Initialize and must not re-announce)", launches)
	}
}

func TestFrontmostApplication_ReflectsObserver(t *testing.T) {
	f := axfake.New()
	app := f.NewApplication(9)
	f.SetArrayAttr(app, ax.AttrWindows, nil)
	f.SetAttr(app, ax.AttrHidden, false)

	obs := &fakeAppObserver{frontmost: 9}
	s := newTestState(t, f, obs)

	if got := s.FrontmostApplication.Value(); got == nil || got.PID() != 9 {
		t.Fatalf("FrontmostApplication.Value() = %v, want pid 9", got)
	}

	apps := s.RunningApplications()
	if !apps[0].IsFrontmost() {
		t.Errorf("IsFrontmost() = false, want true")
	}
}
