package windowstate

import (
	"context"

	"github.com/axstate/windowstate/internal/geom"
	"github.com/axstate/windowstate/internal/winlife"
)

// Window is the public handle for one OS window. Identity is the
// underlying element handle; two Window values obtained for the same
// element are the same pointer (see State's window arena).
type Window struct {
	state    *State
	delegate *winlife.Window
}

// Application returns the application this window belongs to, or nil if
// the owning application has since terminated (a stale handle case, see
// spec.md §7).
func (w *Window) Application() *Application {
	return w.state.lookupApplication(w.delegate.PID)
}

// IsValid reports whether the window's element is still live.
func (w *Window) IsValid() bool { return w.delegate.IsValid() }

// Frame returns the window's current position+size.
func (w *Window) Frame() geom.Rect { return w.delegate.Frame() }

// Position returns the window's current position.
func (w *Window) Position() geom.Point { return w.delegate.Position.Value() }

// Size returns the window's current size.
func (w *Window) Size() geom.Size { return w.delegate.Size.Value() }

// Title returns the window's current title.
func (w *Window) Title() string { return w.delegate.Title.Value() }

// IsMinimized reports the window's current minimized state.
func (w *Window) IsMinimized() bool { return w.delegate.Minimized.Value() }

// IsFullscreen reports the window's current fullscreen state.
func (w *Window) IsFullscreen() bool { return w.delegate.Fullscreen.Value() }

// SetPosition moves the window, yielding the position the OS actually
// settles on (which may differ from requested, see spec.md §4.1).
func (w *Window) SetPosition(ctx context.Context, p geom.Point) (geom.Point, error) {
	return w.delegate.Position.Set(ctx, p)
}

// SetSize resizes the window, yielding the size the OS actually settles on.
func (w *Window) SetSize(ctx context.Context, size geom.Size) (geom.Size, error) {
	return w.delegate.Size.Set(ctx, size)
}

// Screen returns the screen whose frame contains this window's center
// point, falling back to whichever screen overlaps the window's frame the
// most (a window straddling two screens has no single "containing"
// screen). Returns nil if no screen contains the center or overlaps the
// frame, including when no screen is known at all.
func (w *Window) Screen() *Screen {
	frame := w.delegate.Frame()
	all := w.state.Screens()

	center := frame.Center()
	for _, sc := range all {
		if sc.Frame().Contains(center) {
			return sc
		}
	}

	var best *Screen
	var bestArea float64
	for _, sc := range all {
		if area := sc.Frame().Overlap(frame); area > bestArea {
			bestArea = area
			best = sc
		}
	}
	return best
}
