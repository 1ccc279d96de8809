package windowstate

import (
	"context"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/config"
	"github.com/axstate/windowstate/internal/screens"
	"github.com/axstate/windowstate/internal/spaces"
)

// AppObserver is the "OS application observer" external collaborator from
// spec.md §6: the current frontmost pid, activation, and the launch/
// terminate/activate callbacks that drive State's application map.
type AppObserver interface {
	// FrontmostPID returns the pid of the currently frontmost application,
	// or 0 if none.
	FrontmostPID(ctx context.Context) (int32, error)
	// Activate requests the OS bring pid's application to the front. The
	// OS may silently refuse if pid has already exited.
	Activate(ctx context.Context, pid int32) error
	// OnLaunch registers a callback invoked with the pid of every newly
	// launched application.
	OnLaunch(callback func(pid int32))
	// OnTerminate registers a callback invoked with the pid of every
	// application that has exited.
	OnTerminate(callback func(pid int32))
	// OnActivate registers a callback invoked when any application is
	// activated (becomes frontmost), including activations this library
	// did not itself request.
	OnActivate(callback func(pid int32))
}

// buildConfig accumulates Option values before Initialize assembles State.
type buildConfig struct {
	cfg            *config.Config
	facade         ax.Facade
	obsFactory     ax.ObserverFactory
	appObserver    AppObserver
	screenEnum     screens.Enumerator
	osSpaceTracker spaces.OSTracker
}

// Option configures Initialize/InitializeWithRecovery.
type Option func(*buildConfig)

// WithConfig overrides the default configuration (see internal/config).
func WithConfig(cfg *config.Config) Option {
	return func(b *buildConfig) { b.cfg = cfg }
}

// WithFacade supplies the accessibility facade directly, bypassing the
// default internal/ax/rpc dial. Tests pass an internal/ax/axfake.Facade
// here.
func WithFacade(facade ax.Facade) Option {
	return func(b *buildConfig) { b.facade = facade }
}

// WithObserverFactory supplies the notification-observer factory directly.
// Usually the same concrete value as WithFacade, since internal/ax/rpc.Facade
// and internal/ax/axfake.Facade both implement ax.ObserverFactory too.
func WithObserverFactory(obsFactory ax.ObserverFactory) Option {
	return func(b *buildConfig) { b.obsFactory = obsFactory }
}

// WithAppObserver supplies the OS application observer. Required: there is
// no host-independent default, since frontmost/launch/terminate/activate
// notifications are not accessibility-element operations.
func WithAppObserver(obs AppObserver) Option {
	return func(b *buildConfig) { b.appObserver = obs }
}

// WithScreenEnumerator supplies the OS screen enumerator. Required, for the
// same reason as WithAppObserver.
func WithScreenEnumerator(enum screens.Enumerator) Option {
	return func(b *buildConfig) { b.screenEnum = enum }
}

// WithSpaceTracker supplies the OS space tracker (pinned-window creation,
// visible-window-id listing, space-change callback). Required, for the same
// reason as WithAppObserver.
func WithSpaceTracker(tracker spaces.OSTracker) Option {
	return func(b *buildConfig) { b.osSpaceTracker = tracker }
}
