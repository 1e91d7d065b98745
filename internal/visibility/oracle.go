// internal/visibility/oracle.go
//
// The visibility oracle decides whether a node is actually perceivable in
// the top-level viewport. It is a heuristic, not a layout simulation: it
// combines geometry (zero-area, offscreen after frame translation), a
// painter-model occlusion probe at five sample points, the occlusion of
// every ancestor iframe within its own parent frame, the host's computed
// display/visibility/opacity, and an optional accessibility-tree override.
package visibility

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/domdex/internal/dom"
	"github.com/xkilldash9x/domdex/internal/geom"
)

// Options tunes the oracle.
type Options struct {
	// SampleInset shrinks the box before picking the four corner sample
	// points, so probes land inside the border rather than on it.
	SampleInset float64
}

// Oracle classifies nodes as visible or not.
type Oracle struct {
	logger *zap.Logger
	inset  float64
}

// New builds an oracle.
func New(opts Options, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	inset := opts.SampleInset
	if inset <= 0 {
		inset = 2
	}
	return &Oracle{logger: logger, inset: inset}
}

// IsVisible reports whether the node is geometrically and stylistically
// visible from the top-level viewport. Text nodes are judged by their own
// range box plus their nearest element ancestor's visibility.
func (o *Oracle) IsVisible(n *dom.Node) bool {
	if n == nil || n.Doc == nil {
		return false
	}
	if n.Kind == dom.TextKind {
		if n.Box.Empty() {
			return false
		}
		parent := n.NearestElement()
		return parent != nil && o.IsVisible(parent)
	}

	if n.Box.Empty() {
		return false
	}

	// An explicitly hidden accessibility state wins over geometry.
	if n.AX != nil && n.AX.Hidden {
		return false
	}

	if !o.styleVisible(n) {
		return false
	}

	// Translate into top-level coordinates across the owning frame chain and
	// reject boxes entirely outside the top-level viewport.
	top := n.Doc.Top()
	topRect := n.Doc.RectInTop(n.Box)
	if !topRect.Intersects(top.ViewportRect()) {
		return false
	}

	if !o.topmostAtSamples(n) {
		return false
	}

	// An iframe hidden behind an overlay hides everything inside it: every
	// ancestor frame element must itself survive the same checks within its
	// own parent document.
	for _, fe := range n.Doc.FrameChain() {
		if fe.Box.Empty() || !o.styleVisible(fe) || !o.topmostAtSamples(fe) {
			return false
		}
	}
	return true
}

// styleVisible applies the host's native visibility computation: any
// ancestor with display:none, visibility:hidden or zero opacity hides the
// node.
func (o *Oracle) styleVisible(n *dom.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Kind != dom.ElementKind {
			continue
		}
		s := cur.Style
		if s.Display == "none" || s.Visibility == "hidden" || s.Opacity == 0 {
			return false
		}
	}
	return true
}

// topmostAtSamples probes the center and four inset corners of the node's
// box within its own document. The node passes if at least one probe hits
// the node itself, one of its descendants, or an ancestor that paints it;
// an element fully covered by an overlay at all five points fails.
func (o *Oracle) topmostAtSamples(n *dom.Node) bool {
	box := n.Box.InsetBy(o.inset)
	points := []geom.Point{
		n.Box.Center(),
		{X: box.X, Y: box.Y},
		{X: box.Right() - 1, Y: box.Y},
		{X: box.X, Y: box.Bottom() - 1},
		{X: box.Right() - 1, Y: box.Bottom() - 1},
	}
	for _, p := range points {
		hit := n.Doc.ElementAt(p)
		if hit == nil {
			continue
		}
		if hit == n || n.Contains(hit) || hit.Contains(n) {
			return true
		}
	}
	return false
}
