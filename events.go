package windowstate

import "github.com/axstate/windowstate/internal/geom"

// Unsubscribe cancels a subscription registered via State.On.
type Unsubscribe func()

// FrontmostApplicationChanged fires when State.FrontmostApplication's value
// changes after Initialize; the initial resolution inside Initialize does
// not fire it.
type FrontmostApplicationChanged struct {
	Old, New *Application
	External bool
}

// ApplicationLaunched fires once a newly launched application's initial
// property and window-discovery pass has resolved. Applications already
// running when Initialize enumerates them do not fire it.
type ApplicationLaunched struct {
	Application *Application
	External    bool
}

// ApplicationTerminated fires when an application's process has exited.
// Application is still a usable handle (PID, BundleID, DisplayName) but is
// no longer present in State.RunningApplications.
type ApplicationTerminated struct {
	Application *Application
	External    bool
}

// ApplicationHiddenChanged fires when an application's is-hidden property
// changes.
type ApplicationHiddenChanged struct {
	Application *Application
	Old, New    bool
	External    bool
}

// ApplicationMainWindowChanged fires when an application's main-window
// changes, including to/from absent (nil).
type ApplicationMainWindowChanged struct {
	Application *Application
	Old, New    *Window
	External    bool
}

// ApplicationFocusedWindowChanged fires when an application's focused-window
// changes, including to/from absent (nil).
type ApplicationFocusedWindowChanged struct {
	Application *Application
	Old, New    *Window
	External    bool
}

// WindowCreated fires when a window is discovered, whether via the OS
// window-created notification or via re-enumeration after a space change.
type WindowCreated struct {
	Window   *Window
	External bool
}

// WindowDestroyed fires when a window's underlying element is permanently
// gone. Window.IsValid() is already false by the time this fires.
type WindowDestroyed struct {
	Window   *Window
	External bool
}

// WindowFrameChanged fires when a window's position and/or size changes.
type WindowFrameChanged struct {
	Window   *Window
	Old, New geom.Rect
	External bool
}

// WindowTitleChanged fires when a window's title changes.
type WindowTitleChanged struct {
	Window   *Window
	Old, New string
	External bool
}

// WindowMinimizedChanged fires when a window's minimized state changes.
type WindowMinimizedChanged struct {
	Window   *Window
	Old, New bool
	External bool
}

// WindowFullscreenChanged fires when a window's fullscreen state changes.
type WindowFullscreenChanged struct {
	Window   *Window
	Old, New bool
	External bool
}

// ScreenLayoutChanged fires when the set of physical screens changes, e.g.
// a display is connected, disconnected, or resized.
type ScreenLayoutChanged struct {
	Added, Removed, Changed, Unchanged []*Screen
	External                           bool
}

// SpaceWillChange fires with one space id per screen as soon as a space
// change is detected, before application window-sets have been
// re-enumerated for the new space.
type SpaceWillChange struct {
	SpaceIDs []int
	External bool
}

// SpaceDidChange fires with one space id per screen once application
// window-sets have been re-enumerated for the new space, unless a further
// space change superseded this one first (in which case it does not fire
// at all for this transition).
type SpaceDidChange struct {
	SpaceIDs []int
	External bool
}
