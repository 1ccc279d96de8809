package windowstate

import (
	"github.com/axstate/windowstate/internal/geom"
	"github.com/axstate/windowstate/internal/screens"
)

// Screen is the public handle for one physical display.
type Screen struct {
	inner *screens.Screen
}

// ID returns the screen's stable identifier.
func (s *Screen) ID() string { return s.inner.ID() }

// Frame returns the screen's full frame in global screen coordinates.
func (s *Screen) Frame() geom.Rect { return s.inner.Frame() }

// ApplicationFrame returns the screen's frame minus menu bar/dock, the
// region application windows are expected to lay out within.
func (s *Screen) ApplicationFrame() geom.Rect { return s.inner.ApplicationFrame() }

// CurrentSpaceID returns the screen's current space id, and whether one has
// been observed yet.
func (s *Screen) CurrentSpaceID() (int, bool) { return s.inner.CurrentSpaceID() }

func wrapScreens(raw []*screens.Screen) []*Screen {
	out := make([]*Screen, len(raw))
	for i, sc := range raw {
		out[i] = &Screen{inner: sc}
	}
	return out
}
