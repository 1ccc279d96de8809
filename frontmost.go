package windowstate

import (
	"context"

	"github.com/axstate/windowstate/internal/werrors"
)

// frontmostDelegate implements propcache.Delegate[*Application] for
// State.FrontmostApplication (spec.md §4.5): reads resolve the OS's
// frontmost pid through the application arena; writes activate a process
// via the OS application observer, which may silently refuse if the
// process has already exited.
type frontmostDelegate struct {
	state *State
}

func (d *frontmostDelegate) Initialize(ctx context.Context) (*Application, error) {
	return d.Read(ctx)
}

func (d *frontmostDelegate) Read(ctx context.Context) (*Application, error) {
	pid, err := d.state.appObserver.FrontmostPID(ctx)
	if err != nil {
		return nil, werrors.New(werrors.TransientFailure, err)
	}
	if pid == 0 {
		return nil, nil
	}
	return d.state.lookupApplication(pid), nil
}

func (d *frontmostDelegate) Write(ctx context.Context, app *Application) (*Application, error) {
	if app == nil {
		return d.Read(ctx)
	}
	if err := d.state.appObserver.Activate(ctx, app.PID()); err != nil {
		return nil, werrors.New(werrors.TransientFailure, err)
	}
	return d.Read(ctx)
}

type frontmostNotifier struct {
	state *State
}

func (n *frontmostNotifier) Changed(old, new *Application, external bool) {
	emit(n.state, FrontmostApplicationChanged{Old: old, New: new, External: external})
}

func (n *frontmostNotifier) Invalidated() {}
