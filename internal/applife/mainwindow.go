package applife

import (
	"context"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/delegate"
	"github.com/axstate/windowstate/internal/werrors"
	"github.com/axstate/windowstate/internal/winlife"
)

// mainWindowDelegate implements the main-window write path from spec.md
// §4.4: the client passes a window handle; main=true is written to that
// window's own element (not the application's), and the OS is required to
// synchronously mirror it back onto AXMainWindow on the application
// element. Read/Initialize resolve AXMainWindow the ordinary way; only
// Write's side effect targets a different element than its own attribute,
// which is why this isn't expressed as a delegate.Scalar/ObjectResolver.
type mainWindowDelegate struct {
	facade  ax.Facade
	appEl   ax.Element
	batch   *delegate.Batch
	resolve func(ctx context.Context, el ax.Element) (*winlife.Window, error)
}

func (d *mainWindowDelegate) elementAttr(ctx context.Context, direct bool) (ax.Element, error) {
	var raw any
	if !direct && d.batch != nil {
		m, err := d.batch.Fetch(ctx)
		if err != nil {
			return ax.Element{}, ax.Classify(err)
		}
		raw = m[ax.AttrMainWindow]
	} else {
		r, err := d.facade.Attribute(ctx, d.appEl, ax.AttrMainWindow)
		if err != nil {
			return ax.Element{}, ax.Classify(err)
		}
		raw = r
	}
	return delegate.DecodeOptionalElement(raw)
}

func (d *mainWindowDelegate) Initialize(ctx context.Context) (*winlife.Window, error) {
	el, err := d.elementAttr(ctx, false)
	if err != nil {
		return nil, err
	}
	if el.IsZero() {
		return nil, nil
	}
	return d.resolve(ctx, el)
}

func (d *mainWindowDelegate) Read(ctx context.Context) (*winlife.Window, error) {
	el, err := d.elementAttr(ctx, true)
	if err != nil {
		return nil, err
	}
	if el.IsZero() {
		return nil, nil
	}
	return d.resolve(ctx, el)
}

func (d *mainWindowDelegate) Write(ctx context.Context, w *winlife.Window) (*winlife.Window, error) {
	if w == nil || !w.IsValid() {
		return nil, werrors.New(werrors.IllegalValue, nil)
	}
	if err := d.facade.SetAttribute(ctx, w.Element, ax.AttrMain, true); err != nil {
		return nil, ax.Classify(err)
	}
	return d.Read(ctx)
}
