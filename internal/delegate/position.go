package delegate

import (
	"context"

	"github.com/axstate/windowstate/internal/geom"
)

// pointDelegate is the narrow interface PositionFilter wraps: anything that
// can Initialize/Read/Write a geom.Point in accessibility convention.
type pointDelegate interface {
	Initialize(ctx context.Context) (geom.Point, error)
	Read(ctx context.Context) (geom.Point, error)
	Write(ctx context.Context, v geom.Point) (geom.Point, error)
}

// PositionFilter converts the window-position slot between the accessibility
// convention (origin top-left, y grows downward) and the client-visible
// convention (origin bottom-left, y grows upward, relative to the union of
// all screens). The inversion constant is global-max-y across all screens,
// obtained from the screen collaborator at call time so it tracks display
// changes.
type PositionFilter struct {
	Inner      pointDelegate
	Height     func() float64
	GlobalMaxY func() float64
}

func (f *PositionFilter) invertToClient(axPoint geom.Point) geom.Point {
	return geom.Point{
		X: axPoint.X,
		Y: f.GlobalMaxY() - axPoint.Y - f.Height(),
	}
}

func (f *PositionFilter) invertToAX(clientPoint geom.Point) geom.Point {
	// The inversion is its own inverse: solving Y = maxY - axY - h for axY
	// gives the same formula applied to the client-side point.
	return geom.Point{
		X: clientPoint.X,
		Y: f.GlobalMaxY() - clientPoint.Y - f.Height(),
	}
}

func (f *PositionFilter) Initialize(ctx context.Context) (geom.Point, error) {
	p, err := f.Inner.Initialize(ctx)
	if err != nil {
		return geom.Point{}, err
	}
	return f.invertToClient(p), nil
}

func (f *PositionFilter) Read(ctx context.Context) (geom.Point, error) {
	p, err := f.Inner.Read(ctx)
	if err != nil {
		return geom.Point{}, err
	}
	return f.invertToClient(p), nil
}

func (f *PositionFilter) Write(ctx context.Context, v geom.Point) (geom.Point, error) {
	actual, err := f.Inner.Write(ctx, f.invertToAX(v))
	if err != nil {
		return geom.Point{}, err
	}
	return f.invertToClient(actual), nil
}
