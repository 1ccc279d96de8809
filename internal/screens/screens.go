// Package screens tracks the set of physical displays: it enumerates
// native screens, computes added/removed/changed/unchanged diffs on OS
// layout-change notifications, and derives global-max-y, the constant
// internal/delegate's window-position filter inverts window coordinates
// against (spec.md §4.2, §6's "OS screen enumerator" collaborator).
package screens

import (
	"context"
	"sort"
	"sync"

	"github.com/axstate/windowstate/internal/geom"
)

// NativeScreen is one OS-reported display, keyed by a stable id (the
// teacher's DisplayInfo.UUID equivalent).
type NativeScreen struct {
	ID               string
	Frame            geom.Rect
	ApplicationFrame geom.Rect
}

// Enumerator is the "OS screen enumerator" external collaborator from
// spec.md §6: the current native screen list, plus a layout-change
// callback.
type Enumerator interface {
	List(ctx context.Context) ([]NativeScreen, error)
	OnChange(callback func())
}

// Screen is the public, observable handle for one display.
type Screen struct {
	id string

	mu               sync.RWMutex
	frame            geom.Rect
	applicationFrame geom.Rect
	currentSpaceID   int
	hasSpaceID       bool
}

func newScreen(n NativeScreen) *Screen {
	return &Screen{id: n.ID, frame: n.Frame, applicationFrame: n.ApplicationFrame}
}

// ID returns the screen's stable identifier.
func (s *Screen) ID() string { return s.id }

// Frame returns the screen's full frame in global screen coordinates.
func (s *Screen) Frame() geom.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// ApplicationFrame returns the frame available to application windows
// (excludes menu bar / dock).
func (s *Screen) ApplicationFrame() geom.Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applicationFrame
}

// CurrentSpaceID returns the space currently visible on this screen, and
// false if no space has been observed yet.
func (s *Screen) CurrentSpaceID() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSpaceID, s.hasSpaceID
}

func (s *Screen) setCurrentSpaceID(id int) {
	s.mu.Lock()
	s.currentSpaceID = id
	s.hasSpaceID = true
	s.mu.Unlock()
}

func (s *Screen) update(n NativeScreen) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame.Equal(n.Frame) && s.applicationFrame.Equal(n.ApplicationFrame) {
		return false
	}
	s.frame = n.Frame
	s.applicationFrame = n.ApplicationFrame
	return true
}

// Events receives screen-layout-changed notifications (spec.md §6).
type Events interface {
	LayoutChanged(added, removed, changed, unchanged []*Screen)
}

// Tracker owns the current screen set and produces diff-based
// layout-changed events on every OS notification.
type Tracker struct {
	enumerator Enumerator
	events     Events

	mu      sync.Mutex
	byID    map[string]*Screen
	ordered []*Screen
}

// New constructs a Tracker. Call Initialize before use.
func New(enumerator Enumerator, events Events) *Tracker {
	return &Tracker{enumerator: enumerator, events: events, byID: make(map[string]*Screen)}
}

// Initialize lists the current screens and subscribes to future layout
// changes. The enumerator's OnChange callback runs on whatever goroutine
// the OS layer chooses; callers that need Refresh serialized onto a main
// coordination goroutine should wrap dispatch themselves (spec.md §5) by
// constructing their own Enumerator.OnChange that hops first.
func (t *Tracker) Initialize(ctx context.Context) error {
	natives, err := t.enumerator.List(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	for _, n := range natives {
		s := newScreen(n)
		t.byID[n.ID] = s
		t.ordered = append(t.ordered, s)
	}
	t.mu.Unlock()

	t.enumerator.OnChange(func() { t.Refresh(context.Background()) })
	return nil
}

// Screens returns the current screens, in stable enumeration order.
func (t *Tracker) Screens() []*Screen {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Screen, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// ScreenByID looks up a screen by its stable id.
func (t *Tracker) ScreenByID(id string) (*Screen, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.byID[id]
	return s, ok
}

// SetCurrentSpaceID records screen id's currently-visible space, called by
// internal/spaces once it resolves visibility.
func (t *Tracker) SetCurrentSpaceID(id string, spaceID int) {
	if s, ok := t.ScreenByID(id); ok {
		s.setCurrentSpaceID(spaceID)
	}
}

// GlobalMaxY returns the maximum Y+Height across all screens: the constant
// internal/delegate.PositionFilter inverts window-position coordinates
// against (spec.md §4.2).
func (t *Tracker) GlobalMaxY() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	max := 0.0
	for _, s := range t.ordered {
		f := s.Frame()
		if bottom := f.Y + f.Height; bottom > max {
			max = bottom
		}
	}
	return max
}

// Refresh re-lists native screens and emits a layout-changed event
// bucketing every known screen into added/removed/changed/unchanged.
func (t *Tracker) Refresh(ctx context.Context) error {
	natives, err := t.enumerator.List(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[string]bool, len(natives))
	var added, changed, unchanged []*Screen

	for _, n := range natives {
		seen[n.ID] = true
		if s, ok := t.byID[n.ID]; ok {
			if s.update(n) {
				changed = append(changed, s)
			} else {
				unchanged = append(unchanged, s)
			}
			continue
		}
		s := newScreen(n)
		t.byID[n.ID] = s
		t.ordered = append(t.ordered, s)
		added = append(added, s)
	}

	var removed []*Screen
	kept := t.ordered[:0:0]
	for _, s := range t.ordered {
		if seen[s.ID()] {
			kept = append(kept, s)
			continue
		}
		removed = append(removed, s)
		delete(t.byID, s.ID())
	}
	t.ordered = kept

	sortByID(added)
	sortByID(removed)
	sortByID(changed)
	sortByID(unchanged)

	if len(added) > 0 || len(removed) > 0 || len(changed) > 0 {
		t.events.LayoutChanged(added, removed, changed, unchanged)
	}
	return nil
}

func sortByID(screens []*Screen) {
	sort.Slice(screens, func(i, j int) bool { return screens[i].ID() < screens[j].ID() })
}
