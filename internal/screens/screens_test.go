package screens

import (
	"context"
	"sync"
	"testing"

	"github.com/axstate/windowstate/internal/geom"
)

type fakeEnumerator struct {
	mu       sync.Mutex
	natives  []NativeScreen
	onChange func()
}

func (f *fakeEnumerator) List(ctx context.Context) ([]NativeScreen, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]NativeScreen, len(f.natives))
	copy(out, f.natives)
	return out, nil
}

func (f *fakeEnumerator) OnChange(callback func()) {
	f.mu.Lock()
	f.onChange = callback
	f.mu.Unlock()
}

func (f *fakeEnumerator) set(natives []NativeScreen) {
	f.mu.Lock()
	f.natives = natives
	cb := f.onChange
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type recordingEvents struct {
	mu                               sync.Mutex
	added, removed, changed, unchng int
}

func (r *recordingEvents) LayoutChanged(added, removed, changed, unchanged []*Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added += len(added)
	r.removed += len(removed)
	r.changed += len(changed)
	r.unchng += len(unchanged)
}

func TestInitialize_PopulatesScreens(t *testing.T) {
	e := &fakeEnumerator{natives: []NativeScreen{
		{ID: "A", Frame: geom.Rect{Width: 1000, Height: 800}},
		{ID: "B", Frame: geom.Rect{X: 1000, Width: 500, Height: 400}},
	}}
	tr := New(e, &recordingEvents{})
	if err := tr.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if len(tr.Screens()) != 2 {
		t.Fatalf("Screens() len = %d, want 2", len(tr.Screens()))
	}
	if got := tr.GlobalMaxY(); got != 800 {
		t.Errorf("GlobalMaxY() = %v, want 800", got)
	}
}

func TestRefresh_DetectsAddedRemovedChanged(t *testing.T) {
	e := &fakeEnumerator{natives: []NativeScreen{
		{ID: "A", Frame: geom.Rect{Width: 1000, Height: 800}},
		{ID: "B", Frame: geom.Rect{X: 1000, Width: 500, Height: 400}},
	}}
	events := &recordingEvents{}
	tr := New(e, events)
	if err := tr.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// B removed, A's frame changes, C added.
	e.set([]NativeScreen{
		{ID: "A", Frame: geom.Rect{Width: 1200, Height: 800}},
		{ID: "C", Frame: geom.Rect{X: 1200, Width: 300, Height: 300}},
	})

	events.mu.Lock()
	defer events.mu.Unlock()
	if events.added != 1 || events.removed != 1 || events.changed != 1 {
		t.Errorf("added=%d removed=%d changed=%d, want 1/1/1", events.added, events.removed, events.changed)
	}

	screens := tr.Screens()
	if len(screens) != 2 {
		t.Fatalf("Screens() len = %d, want 2", len(screens))
	}
}

func TestRefresh_NoChangeEmitsNoEvent(t *testing.T) {
	e := &fakeEnumerator{natives: []NativeScreen{
		{ID: "A", Frame: geom.Rect{Width: 1000, Height: 800}},
	}}
	events := &recordingEvents{}
	tr := New(e, events)
	if err := tr.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := tr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	if events.added != 0 || events.removed != 0 || events.changed != 0 {
		t.Errorf("expected no diff events, got added=%d removed=%d changed=%d", events.added, events.removed, events.changed)
	}
}
