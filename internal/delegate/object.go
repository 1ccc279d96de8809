package delegate

import (
	"context"

	"github.com/axstate/windowstate/internal/ax"
)

// ObjectResolver adapts an AXMainWindow/AXFocusedWindow-style attribute
// (which yields an ax.Element or nothing) to propcache.Delegate[T], where T
// is the domain object (*Window) the element identifies. Resolve maps the
// element to that object; applife supplies a direct lookup in the
// application's own window set (guarded by the application's lock), which
// resolves an element it does not know yet to nil.
//
// A zero Element (no main/focused window) resolves to the zero T rather
// than an error: having no main window is a legitimate, common state.
type ObjectResolver[T any] struct {
	Facade  ax.Facade
	Element ax.Element
	Attr    ax.Attr
	Batch   *Batch
	Resolve func(ctx context.Context, el ax.Element) (T, error)
}

func (d *ObjectResolver[T]) elementAttr(ctx context.Context) (ax.Element, error) {
	var raw any
	if d.Batch != nil {
		m, err := d.Batch.Fetch(ctx)
		if err != nil {
			return ax.Element{}, ax.Classify(err)
		}
		raw = m[d.Attr]
	} else {
		r, err := d.Facade.Attribute(ctx, d.Element, d.Attr)
		if err != nil {
			return ax.Element{}, ax.Classify(err)
		}
		raw = r
	}
	return DecodeOptionalElement(raw)
}

func (d *ObjectResolver[T]) Initialize(ctx context.Context) (T, error) {
	var zero T
	el, err := d.elementAttr(ctx)
	if err != nil {
		return zero, err
	}
	if el.IsZero() {
		return zero, nil
	}
	return d.Resolve(ctx, el)
}

func (d *ObjectResolver[T]) Read(ctx context.Context) (T, error) {
	var zero T
	raw, err := d.Facade.Attribute(ctx, d.Element, d.Attr)
	if err != nil {
		return zero, ax.Classify(err)
	}
	el, err := DecodeOptionalElement(raw)
	if err != nil {
		return zero, err
	}
	if el.IsZero() {
		return zero, nil
	}
	return d.Resolve(ctx, el)
}

// Write is not supported: the focused window is OS-driven. The writable
// main-window slot uses applife's own mainWindowDelegate instead.
func (d *ObjectResolver[T]) Write(ctx context.Context, v T) (T, error) {
	var zero T
	return zero, errUnwritable(d.Attr)
}
