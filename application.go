package windowstate

import (
	"context"

	"github.com/axstate/windowstate/internal/applife"
	"github.com/axstate/windowstate/internal/winlife"
)

// Application is the public handle for one running application. Identity
// is the pid; two Application values obtained for the same pid are the
// same pointer (see State's application arena).
type Application struct {
	state    *State
	delegate *applife.Application
}

// PID returns the application's process id.
func (a *Application) PID() int32 { return a.delegate.PID }

// BundleID returns the application's bundle identifier, if known.
func (a *Application) BundleID() string { return a.delegate.BundleID }

// DisplayName returns the application's best-effort human-readable name,
// falling back to its bundle id (see SPEC_FULL.md §4.4).
func (a *Application) DisplayName() string { return a.delegate.DisplayName }

// IsHidden reports the application's current hidden state.
func (a *Application) IsHidden() bool { return a.delegate.Hidden.Value() }

// IsFrontmost reports whether this application is State's current
// frontmost application, derived rather than stored (spec.md §9 leaves
// this an open question and resolves it this way).
func (a *Application) IsFrontmost() bool {
	return a.state.FrontmostApplication.Value() == a
}

// KnownWindows returns this application's current window set.
func (a *Application) KnownWindows() []*Window {
	raw := a.delegate.RunningWindows()
	out := make([]*Window, 0, len(raw))
	for _, w := range raw {
		out = append(out, a.state.wrapWindow(w))
	}
	return out
}

// MainWindow returns the application's current main window, or nil if
// absent.
func (a *Application) MainWindow() *Window {
	return a.state.wrapWindow(a.delegate.MainWindow.Value())
}

// FocusedWindow returns the application's current focused window, or nil
// if absent.
func (a *Application) FocusedWindow() *Window {
	return a.state.wrapWindow(a.delegate.FocusedWindow.Value())
}

// SetMainWindow designates w as this application's main window (spec.md
// §4.4's write path: main=true is written to w's own element, which the OS
// is required to mirror back onto the application's main-window attribute).
// Passing nil is rejected by the underlying delegate the same way an
// invalid window handle is.
func (a *Application) SetMainWindow(ctx context.Context, w *Window) (*Window, error) {
	var inner *winlife.Window
	if w != nil {
		inner = w.delegate
	}
	got, err := a.delegate.SetMainWindow(ctx, inner)
	if err != nil {
		return nil, err
	}
	return a.state.wrapWindow(got), nil
}
