package delegate

import (
	"context"

	"github.com/axstate/windowstate/internal/ax"
	"github.com/axstate/windowstate/internal/geom"
	"github.com/axstate/windowstate/internal/werrors"
)

// Decode converts a raw attribute value (as returned by ax.Facade, or nil
// for absent) into T, or a MissingValue PropertyError if nil is not an
// acceptable value for this attribute.
type Decode[T any] func(raw any) (T, error)

// Encode converts T into the raw value SetAttribute expects.
type Encode[T any] func(v T) any

// Scalar adapts one scalar or object attribute to propcache.Delegate[T].
// When Batch is non-nil, Initialize reads from the shared batch result
// instead of issuing its own round-trip.
type Scalar[T any] struct {
	Facade  ax.Facade
	Element ax.Element
	Attr    ax.Attr
	Batch   *Batch
	Decode  Decode[T]
	Encode  Encode[T]
}

func (d *Scalar[T]) Initialize(ctx context.Context) (T, error) {
	var zero T
	var raw any

	if d.Batch != nil {
		m, err := d.Batch.Fetch(ctx)
		if err != nil {
			return zero, ax.Classify(err)
		}
		raw = m[d.Attr]
	} else {
		r, err := d.Facade.Attribute(ctx, d.Element, d.Attr)
		if err != nil {
			return zero, ax.Classify(err)
		}
		raw = r
	}

	return d.Decode(raw)
}

func (d *Scalar[T]) Read(ctx context.Context) (T, error) {
	var zero T
	raw, err := d.Facade.Attribute(ctx, d.Element, d.Attr)
	if err != nil {
		return zero, ax.Classify(err)
	}
	return d.Decode(raw)
}

func (d *Scalar[T]) Write(ctx context.Context, v T) (T, error) {
	var zero T
	if d.Encode == nil {
		return zero, werrors.New(werrors.IllegalValue, errUnwritable(d.Attr))
	}
	if err := d.Facade.SetAttribute(ctx, d.Element, d.Attr, d.Encode(v)); err != nil {
		return zero, ax.Classify(err)
	}
	// Readback: the OS may have coerced the value, so re-read rather than
	// assume v stuck.
	return d.Read(ctx)
}

func errUnwritable(attr ax.Attr) error {
	return &unwritableAttrError{attr: attr}
}

type unwritableAttrError struct{ attr ax.Attr }

func (e *unwritableAttrError) Error() string {
	return "delegate: attribute " + string(e.attr) + " has no Encode function"
}

// Decode helpers for the concrete attribute types this repository uses.

func DecodeString(raw any) (string, error) {
	if raw == nil {
		return "", werrors.New(werrors.MissingValue, nil)
	}
	s, ok := raw.(string)
	if !ok {
		return "", werrors.New(werrors.MissingValue, nil)
	}
	return s, nil
}

func DecodeBool(raw any) (bool, error) {
	if raw == nil {
		return false, werrors.New(werrors.MissingValue, nil)
	}
	b, ok := raw.(bool)
	if !ok {
		return false, werrors.New(werrors.MissingValue, nil)
	}
	return b, nil
}

// DecodeOptionalElement decodes an AX element-or-nil attribute (e.g.
// AXMainWindow) without failing on absence: it is legitimately absent when
// no window is main/focused.
func DecodeOptionalElement(raw any) (ax.Element, error) {
	if raw == nil {
		return ax.Element{}, nil
	}
	el, ok := raw.(ax.Element)
	if !ok {
		return ax.Element{}, nil
	}
	return el, nil
}

// DecodePoint decodes an AXPosition attribute value (accessibility
// convention: origin top-left, y grows downward).
func DecodePoint(raw any) (geom.Point, error) {
	if raw == nil {
		return geom.Point{}, werrors.New(werrors.MissingValue, nil)
	}
	p, ok := raw.(geom.Point)
	if !ok {
		return geom.Point{}, werrors.New(werrors.MissingValue, nil)
	}
	return p, nil
}

// DecodeSize decodes an AXSize attribute value.
func DecodeSize(raw any) (geom.Size, error) {
	if raw == nil {
		return geom.Size{}, werrors.New(werrors.MissingValue, nil)
	}
	sz, ok := raw.(geom.Size)
	if !ok {
		return geom.Size{}, werrors.New(werrors.MissingValue, nil)
	}
	return sz, nil
}

// EncodePoint encodes a geom.Point for AXPosition writes.
func EncodePoint(v geom.Point) any { return v }

// EncodeSize encodes a geom.Size for AXSize writes.
func EncodeSize(v geom.Size) any { return v }
