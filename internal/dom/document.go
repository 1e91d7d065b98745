// internal/dom/document.go
package dom

import (
	"sync"
	"time"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domdex/internal/geom"
)

// Document is one rendered document: the top-level page or the content of a
// same-origin iframe. Nested documents link back to their owning frame
// element, so coordinates can be translated up to the top-level viewport.
type Document struct {
	URL    string
	Origin string

	Root *Node // the <html> element
	Body *Node

	// Parent and FrameElement are set on nested documents only.
	Parent       *Document
	FrameElement *Node

	// Viewport is the visible size of this document's frame.
	Viewport geom.Size
	// ContentSize is the full laid-out extent of the document.
	ContentSize geom.Size

	htmlRoot *html.Node
	byHTML   map[*html.Node]*Node

	mu       sync.Mutex
	scrollX  float64
	scrollY  float64
	smooth   bool
	scrollWG sync.WaitGroup
}

// Top returns the top-level document of the frame tree.
func (d *Document) Top() *Document {
	cur := d
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// FrameChain returns the iframe elements between the top-level document and
// this one, ordered outermost first. Empty for the top-level document.
func (d *Document) FrameChain() []*Node {
	var chain []*Node
	for cur := d; cur.Parent != nil; cur = cur.Parent {
		chain = append(chain, cur.FrameElement)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// ScrollOffset returns the current scroll position.
func (d *Document) ScrollOffset() (x, y float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scrollX, d.scrollY
}

// ScrollExtent returns the scrollable content size.
func (d *Document) ScrollExtent() geom.Size { return d.ContentSize }

func (d *Document) clampY(y float64) float64 {
	maxY := d.ContentSize.Height - d.Viewport.Height
	if maxY < 0 {
		maxY = 0
	}
	if y < 0 {
		y = 0
	}
	if y > maxY {
		y = maxY
	}
	return y
}

// SetScroll moves the scroll position immediately, clamped to the extent.
func (d *Document) SetScroll(x, y float64) {
	d.mu.Lock()
	d.scrollX = x
	d.scrollY = d.clampY(y)
	d.mu.Unlock()
}

// SetSmoothScroll toggles animated scrolling for StartScroll. Fixture tests
// enable it to exercise the settle debounce the way a real page would.
func (d *Document) SetSmoothScroll(enabled bool) {
	d.mu.Lock()
	d.smooth = enabled
	d.mu.Unlock()
}

// StartScroll begins moving the vertical scroll position toward y. With
// smooth scrolling enabled the position converges over several animation
// steps; the caller observes settling by polling ScrollOffset.
func (d *Document) StartScroll(y float64) {
	d.mu.Lock()
	smooth := d.smooth
	d.mu.Unlock()

	if !smooth {
		d.SetScroll(0, y)
		return
	}

	target := d.clampY(y)
	d.scrollWG.Add(1)
	go func() {
		defer d.scrollWG.Done()
		const steps = 6
		d.mu.Lock()
		start := d.scrollY
		d.mu.Unlock()
		for i := 1; i <= steps; i++ {
			time.Sleep(4 * time.Millisecond)
			pos := start + (target-start)*float64(i)/float64(steps)
			d.mu.Lock()
			d.scrollY = pos
			d.mu.Unlock()
		}
	}()
}

// WaitScrollAnimations blocks until in-flight smooth scrolls finish. Test
// teardown uses it so goleak stays quiet.
func (d *Document) WaitScrollAnimations() { d.scrollWG.Wait() }

// RectInTop translates a rectangle from this document's coordinate space to
// the top-level document's coordinate space by accumulating the offsets of
// each owning frame, less each intermediate document's scroll position.
// Assumes frames are not CSS-transformed.
func (d *Document) RectInTop(r geom.Rect) geom.Rect {
	for cur := d; cur.Parent != nil; cur = cur.Parent {
		sx, sy := cur.ScrollOffset()
		fe := cur.FrameElement
		r = r.Translate(fe.Box.X-sx, fe.Box.Y-sy)
	}
	return r
}

// ViewportRect returns the currently visible region in this document's own
// coordinate space.
func (d *Document) ViewportRect() geom.Rect {
	x, y := d.ScrollOffset()
	return geom.Rect{X: x, Y: y, Width: d.Viewport.Width, Height: d.Viewport.Height}
}

// ElementAt returns the topmost hit-testable element at a point in this
// document's coordinate space, following the painter model: among all
// elements whose box contains the point, the one with the highest paint
// order wins. display:none subtrees and visibility:hidden elements do not
// hit-test; opacity:0 elements do, matching browser behavior.
func (d *Document) ElementAt(p geom.Point) *Node {
	var best *Node
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Kind == ElementKind && n.Style.Display == "none" {
			return
		}
		if n.Kind == ElementKind && n.Style.Visibility != "hidden" && n.Box.Contains(p) {
			if best == nil || n.PaintOrder >= best.PaintOrder {
				best = n
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	if d.Root != nil {
		walk(d.Root)
	}
	return best
}

// NodeFor maps an underlying parse node back to its render node.
func (d *Document) NodeFor(h *html.Node) *Node {
	if d.byHTML == nil {
		return nil
	}
	return d.byHTML[h]
}

// FindAllXPath evaluates an XPath expression against the document and
// returns the matching render nodes in document order. Parse nodes without
// a render counterpart (unrendered markup) are skipped.
func (d *Document) FindAllXPath(expr string) ([]*Node, error) {
	if d.htmlRoot == nil {
		return nil, nil
	}
	matches, err := htmlquery.QueryAll(d.htmlRoot, expr)
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, len(matches))
	for _, m := range matches {
		if n := d.NodeFor(m); n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// register wires a render node to its backing parse node.
func (d *Document) register(h *html.Node, n *Node) {
	if d.byHTML == nil {
		d.byHTML = make(map[*html.Node]*Node)
	}
	d.byHTML[h] = n
	n.backing = h
}
