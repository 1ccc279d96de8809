// Package geom holds the small set of geometric primitives shared by
// screens, windows, and the space tracker: rectangles in global screen
// coordinates and the points used to express positions within them.
package geom

// Rect is a window or screen frame in global screen coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Point is a 2D coordinate in global screen coordinates.
type Point struct {
	X float64
	Y float64
}

// Size is a width/height pair, used where position is irrelevant.
type Size struct {
	Width  float64
	Height float64
}

// Origin returns the rect's top-left corner in accessibility convention.
func (r Rect) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// Dimensions returns the rect's width/height.
func (r Rect) Dimensions() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Center returns the center point of a Rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies within r, inclusive of edges.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Overlap returns the area of intersection between two Rects.
func (r Rect) Overlap(other Rect) float64 {
	left := max(r.X, other.X)
	right := min(r.X+r.Width, other.X+other.Width)
	top := max(r.Y, other.Y)
	bottom := min(r.Y+r.Height, other.Y+other.Height)

	if left >= right || top >= bottom {
		return 0
	}
	return (right - left) * (bottom - top)
}

// Equal compares two rects for exact equality. Property slots use this as
// the equality relation for frame/size change detection.
func (r Rect) Equal(other Rect) bool {
	return r.X == other.X && r.Y == other.Y && r.Width == other.Width && r.Height == other.Height
}
