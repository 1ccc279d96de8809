// Package windowstate is an observable, strongly-typed model of a desktop
// windowing system's state: running applications, their windows, physical
// screens, and virtual spaces. It sits on top of a low-level accessibility
// facade (internal/ax) that exposes opaque element handles and delivers
// notifications asynchronously, and presents a synchronously-readable
// in-process mirror that clients subscribe to via typed events instead of
// polling the slow, cross-process accessibility channel.
//
// Initialize enumerates the running applications and resolves once their
// property slots have settled; State.On subscribes a typed handler to one
// of the event structs defined in events.go. See SPEC_FULL.md for the full
// component breakdown (internal/propcache, internal/delegate,
// internal/winlife, internal/applife, internal/screens, internal/spaces,
// internal/eventbus assemble into the State this package exposes).
package windowstate
