package applife

import (
	"context"
	"sync"
	"testing"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/ax/axfake"
	"github.com/axstate/windowstate/internal/geom"
	"github.com/axstate/windowstate/internal/winlife"
)

type recordingEvents struct {
	mu               sync.Mutex
	created          []ax.Element
	destroyed        []ax.Element
	mainChanges      []*winlife.Window
	focusedChanges   []*winlife.Window
	hiddenChanges    []bool
	frameChanges     int
}

func (r *recordingEvents) WindowCreated(a *Application, w *winlife.Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, w.Element)
}
func (r *recordingEvents) WindowDestroyed(a *Application, w *winlife.Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = append(r.destroyed, w.Element)
}
func (r *recordingEvents) WindowFrameChanged(a *Application, w *winlife.Window, old, new geom.Rect, external bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frameChanges++
}
func (r *recordingEvents) WindowTitleChanged(a *Application, w *winlife.Window, old, new string, external bool) {
}
func (r *recordingEvents) WindowMinimizedChanged(a *Application, w *winlife.Window, old, new bool, external bool) {
}
func (r *recordingEvents) WindowFullscreenChanged(a *Application, w *winlife.Window, old, new bool, external bool) {
}
func (r *recordingEvents) MainWindowChanged(a *Application, old, new *winlife.Window, external bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mainChanges = append(r.mainChanges, new)
}
func (r *recordingEvents) FocusedWindowChanged(a *Application, old, new *winlife.Window, external bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focusedChanges = append(r.focusedChanges, new)
}
func (r *recordingEvents) HiddenChanged(a *Application, old, new bool, external bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hiddenChanges = append(r.hiddenChanges, new)
}

func windowAttrs(x, y, w, h float64, title string, subrole string) map[ax.Attr]any {
	return map[ax.Attr]any{
		ax.AttrPosition:   geom.Point{X: x, Y: y},
		ax.AttrSize:       geom.Size{Width: w, Height: h},
		ax.AttrTitle:      title,
		ax.AttrMinimized:  false,
		ax.AttrFullscreen: false,
		ax.AttrSubrole:    subrole,
	}
}

func TestInitialize_DiscoversWindows(t *testing.T) {
	f := axfake.New()
	app := f.NewApplication(42)
	win1 := f.NewWindow(42)
	for k, v := range windowAttrs(0, 0, 100, 100, "One", "AXStandardWindow") {
		f.SetAttr(win1, k, v)
	}
	f.SetArrayAttr(app, ax.AttrWindows, []ax.Element{win1})
	f.SetAttr(app, ax.AttrHidden, false)

	events := &recordingEvents{}
	a := New(f, f, app, 42, func() float64 { return 1000 }, events)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	wins := a.RunningWindows()
	if len(wins) != 1 {
		t.Fatalf("RunningWindows() len = %d, want 1", len(wins))
	}
}

func TestInitialize_SubroleFilterDropsWindow(t *testing.T) {
	f := axfake.New()
	app := f.NewApplication(1)
	normal := f.NewWindow(1)
	tooltip := f.NewWindow(1)
	for k, v := range windowAttrs(0, 0, 100, 100, "Normal", "AXStandardWindow") {
		f.SetAttr(normal, k, v)
	}
	for k, v := range windowAttrs(0, 0, 10, 10, "", ax.SubroleUnknown) {
		f.SetAttr(tooltip, k, v)
	}
	f.SetArrayAttr(app, ax.AttrWindows, []ax.Element{normal, tooltip})
	f.SetAttr(app, ax.AttrHidden, false)

	a := New(f, f, app, 1, func() float64 { return 1000 }, &recordingEvents{})
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	wins := a.RunningWindows()
	if len(wins) != 1 {
		t.Fatalf("RunningWindows() len = %d, want 1 (tooltip should be rejected)", len(wins))
	}
	if wins[0].Element != normal {
		t.Error("expected surviving window to be the normal one")
	}
}

func TestMainWindowChanged_DeferredUntilWindowCreated(t *testing.T) {
	f := axfake.New()
	app := f.NewApplication(5)
	f.SetArrayAttr(app, ax.AttrWindows, nil)
	f.SetAttr(app, ax.AttrHidden, false)

	events := &recordingEvents{}
	a := New(f, f, app, 5, func() float64 { return 1000 }, events)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	win := f.NewWindow(5)
	for k, v := range windowAttrs(1, 1, 50, 50, "New", "AXStandardWindow") {
		f.SetAttr(win, k, v)
	}
	f.SetAttr(app, ax.AttrMainWindow, win)

	// main-window-changed arrives before window-created.
	f.Deliver(5, ax.Notification{Name: ax.NotifyMainWindowChanged, Element: win})

	events.mu.Lock()
	mainChangesBefore := len(events.mainChanges)
	events.mu.Unlock()
	if mainChangesBefore != 0 {
		t.Fatalf("expected no main-window-changed event before window-created, got %d", mainChangesBefore)
	}

	f.Deliver(5, ax.Notification{Name: ax.NotifyWindowCreated, Element: win})

	// HandleNotification + refresh run on background goroutines; poll is
	// undesirable in a unit test, so call the refresh synchronously via the
	// slot itself, matching what the deferred handler would have triggered.
	if _, err := a.MainWindow.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got := a.MainWindow.Value()
	if got == nil || got.Element != win {
		t.Errorf("MainWindow.Value() = %v, want window %s", got, win)
	}
}

func TestWindowDestroyed_RemovesFromSet(t *testing.T) {
	f := axfake.New()
	app := f.NewApplication(9)
	win := f.NewWindow(9)
	for k, v := range windowAttrs(0, 0, 10, 10, "W", "AXStandardWindow") {
		f.SetAttr(win, k, v)
	}
	f.SetArrayAttr(app, ax.AttrWindows, []ax.Element{win})
	f.SetAttr(app, ax.AttrHidden, false)

	events := &recordingEvents{}
	a := New(f, f, app, 9, func() float64 { return 1000 }, events)
	if err := a.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	w, ok := a.lookupWindow(win)
	if !ok {
		t.Fatal("expected window to be known")
	}
	w.HandleNotification(context.Background(), ax.NotifyElementDestroyed)

	if _, ok := a.lookupWindow(win); ok {
		t.Error("window should have been removed from the set")
	}
	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.destroyed) != 1 {
		t.Errorf("expected 1 window-destroyed event, got %d", len(events.destroyed))
	}
}
