package winlife

import (
	"context"
	"sync"
	"testing"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/ax/axfake"
	"github.com/axstate/windowstate/internal/geom"
	"github.com/axstate/windowstate/internal/werrors"
)

type recordingEvents struct {
	mu         sync.Mutex
	frames     []geom.Rect
	titles     []string
	minimized  []bool
	fullscreen []bool
	destroyed  int
}

func (r *recordingEvents) FrameChanged(w *Window, old, new geom.Rect, external bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, new)
}
func (r *recordingEvents) TitleChanged(w *Window, old, new string, external bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, new)
}
func (r *recordingEvents) MinimizedChanged(w *Window, old, new bool, external bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.minimized = append(r.minimized, new)
}
func (r *recordingEvents) FullscreenChanged(w *Window, old, new bool, external bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fullscreen = append(r.fullscreen, new)
}
func (r *recordingEvents) Destroyed(w *Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed++
}

func newTestWindow(t *testing.T, f *axfake.Facade, pid int32, attrs map[ax.Attr]any) (*Window, *recordingEvents) {
	t.Helper()
	el := f.NewWindow(pid)
	for k, v := range attrs {
		f.SetAttr(el, k, v)
	}
	obs, err := f.NewObserver(context.Background(), pid, func(ax.Notification) {})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	events := &recordingEvents{}
	w := New(f, obs, el, pid, func() float64 { return 1000 }, events)
	if err := w.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return w, events
}

func baseAttrs() map[ax.Attr]any {
	return map[ax.Attr]any{
		ax.AttrPosition:   geom.Point{X: 5, Y: 5},
		ax.AttrSize:       geom.Size{Width: 100, Height: 100},
		ax.AttrTitle:      "T",
		ax.AttrMinimized:  false,
		ax.AttrFullscreen: false,
		ax.AttrSubrole:    "AXStandardWindow",
	}
}

func TestInitialize_PopulatesFrame(t *testing.T) {
	f := axfake.New()
	w, _ := newTestWindow(t, f, 100, baseAttrs())

	frame := w.Frame()
	// AX origin top-left y-down; global-max-y 1000, height 100: client Y =
	// 1000 - 5 - 100 = 895.
	want := geom.Rect{X: 5, Y: 895, Width: 100, Height: 100}
	if frame != want {
		t.Errorf("Frame() = %+v, want %+v", frame, want)
	}
}

func TestInitialize_SubroleUnknown_Rejected(t *testing.T) {
	f := axfake.New()
	attrs := baseAttrs()
	attrs[ax.AttrSubrole] = ax.SubroleUnknown
	el := f.NewWindow(1)
	for k, v := range attrs {
		f.SetAttr(el, k, v)
	}
	obs, _ := f.NewObserver(context.Background(), 1, func(ax.Notification) {})
	w := New(f, obs, el, 1, func() float64 { return 1000 }, &recordingEvents{})

	err := w.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected Ignored error for unknown subrole")
	}
	kind, ok := werrors.KindOf(err)
	if !ok || kind != werrors.Ignored {
		t.Errorf("expected Ignored, got %v", err)
	}
}

func TestMovedNotification_EmitsFrameChanged(t *testing.T) {
	f := axfake.New()
	w, events := newTestWindow(t, f, 1, baseAttrs())
	f.SetAttr(w.Element, ax.AttrPosition, geom.Point{X: 10, Y: 12})

	// HandleNotification dispatches the refresh asynchronously; Refresh
	// itself blocks on the slot's request mutex but the call below spawns a
	// goroutine, so do the equivalent synchronously for a deterministic test.
	if _, err := w.Position.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.frames) != 1 {
		t.Fatalf("expected 1 frame-changed event, got %d", len(events.frames))
	}
	want := geom.Rect{X: 10, Y: 1000 - 12 - 100, Width: 100, Height: 100}
	if events.frames[0] != want {
		t.Errorf("frame = %+v, want %+v", events.frames[0], want)
	}
}

func TestTitleChanged(t *testing.T) {
	f := axfake.New()
	w, events := newTestWindow(t, f, 1, baseAttrs())
	f.SetAttr(w.Element, ax.AttrTitle, "New Title")

	if _, err := w.Title.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.titles) != 1 || events.titles[0] != "New Title" {
		t.Errorf("titles = %v, want [New Title]", events.titles)
	}
}

func TestElementDestroyed_EmitsDestroyedOnce(t *testing.T) {
	f := axfake.New()
	w, events := newTestWindow(t, f, 1, baseAttrs())

	w.HandleNotification(context.Background(), ax.NotifyElementDestroyed)
	w.HandleNotification(context.Background(), ax.NotifyElementDestroyed)

	events.mu.Lock()
	defer events.mu.Unlock()
	if events.destroyed != 1 {
		t.Errorf("destroyed fired %d times, want 1", events.destroyed)
	}
}

func TestSet_Position_ExternalSnap(t *testing.T) {
	f := axfake.New()
	w, events := newTestWindow(t, f, 1, baseAttrs())
	f.SetWriteSnap(w.Element, ax.AttrPosition, func(requested any) (any, error) {
		// OS stores in AX convention; snap whatever is requested to (3,3).
		return geom.Point{X: 3, Y: 3}, nil
	})

	// Client requests client-convention (50, 50).
	got, err := w.Position.Set(context.Background(), geom.Point{X: 50, Y: 50})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	want := geom.Point{X: 3, Y: 1000 - 3 - 100}
	if got != want {
		t.Errorf("Set() = %+v, want %+v", got, want)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	if len(events.frames) != 1 {
		t.Fatalf("expected 1 frame event, got %d", len(events.frames))
	}
}
