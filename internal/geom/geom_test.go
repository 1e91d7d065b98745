// internal/geom/geom_test.go
package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectContains(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 100, Height: 50}

	assert.True(t, r.Contains(Point{X: 10, Y: 10}), "top-left corner is inside")
	assert.True(t, r.Contains(Point{X: 60, Y: 35}))
	assert.False(t, r.Contains(Point{X: 110, Y: 35}), "right edge is exclusive")
	assert.False(t, r.Contains(Point{X: 60, Y: 60}), "bottom edge is exclusive")
	assert.False(t, r.Contains(Point{X: 9, Y: 10}))
}

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 100, Height: 100}

	assert.True(t, a.Intersects(Rect{X: 50, Y: 50, Width: 100, Height: 100}))
	assert.False(t, a.Intersects(Rect{X: 100, Y: 0, Width: 10, Height: 10}), "touching edges do not overlap")
	assert.False(t, a.Intersects(Rect{X: 200, Y: 200, Width: 10, Height: 10}))
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 20, Y: 5, Width: 10, Height: 10}

	u := a.Union(b)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 30, Height: 15}, u)

	assert.Equal(t, a, a.Union(Rect{}), "union with an empty rect is identity")
	assert.Equal(t, a, Rect{}.Union(a))
}

func TestRectCenterAndInset(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 60}
	assert.Equal(t, Point{X: 50, Y: 30}, r.Center())

	in := r.InsetBy(10)
	assert.Equal(t, Rect{X: 10, Y: 10, Width: 80, Height: 40}, in)

	// Shrinking past the size collapses to an empty rect at the center.
	tiny := Rect{X: 0, Y: 0, Width: 4, Height: 4}.InsetBy(10)
	assert.True(t, tiny.Empty())
}

func TestRectTranslate(t *testing.T) {
	r := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	assert.Equal(t, Rect{X: 15, Y: 0, Width: 10, Height: 10}, r.Translate(10, -5))
}

func TestSizeEmpty(t *testing.T) {
	assert.True(t, Size{}.Empty())
	assert.True(t, Size{Width: 10}.Empty())
	assert.False(t, Size{Width: 10, Height: 10}.Empty())
}
