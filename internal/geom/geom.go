// internal/geom/geom.go
package geom

import "math"

// Point is a position in CSS pixels within some document's coordinate space.
type Point struct {
	X, Y float64
}

// Size describes a width/height pair in CSS pixels.
type Size struct {
	Width, Height float64
}

// Empty reports whether the size has no positive area.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is an axis-aligned rectangle. X/Y are the top-left corner.
type Rect struct {
	X, Y, Width, Height float64
}

// Empty reports whether the rectangle has no positive area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside the rectangle. Edges count as
// inside on the top/left and outside on the bottom/right, so adjacent
// rectangles never both claim a shared boundary point.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// Intersects reports whether the two rectangles share any area.
func (r Rect) Intersects(o Rect) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Translate returns a copy of the rectangle shifted by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Union returns the smallest rectangle covering both r and o. An empty
// rectangle is treated as the identity.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x1 := math.Min(r.X, o.X)
	y1 := math.Min(r.Y, o.Y)
	x2 := math.Max(r.Right(), o.Right())
	y2 := math.Max(r.Bottom(), o.Bottom())
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// InsetBy returns the rectangle shrunk by d on every side. If the inset
// would invert the rectangle it collapses to the center point.
func (r Rect) InsetBy(d float64) Rect {
	if r.Width <= 2*d || r.Height <= 2*d {
		c := r.Center()
		return Rect{X: c.X, Y: c.Y}
	}
	return Rect{X: r.X + d, Y: r.Y + d, Width: r.Width - 2*d, Height: r.Height - 2*d}
}
