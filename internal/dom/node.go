// internal/dom/node.go
package dom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domdex/internal/geom"
)

// Kind discriminates the two node variants the engine understands. Every
// consumer switches exhaustively on it; there is deliberately no third case.
type Kind int

const (
	// ElementKind is a markup element with a tag and attributes.
	ElementKind Kind = iota
	// TextKind is a run of character data, stored trimmed.
	TextKind
)

// Style carries the subset of computed style the visibility heuristics need.
type Style struct {
	Display    string  // "" means the element default
	Visibility string  // "" means visible
	Opacity    float64 // 0..1; populated builders always set it (default 1)
	Position   string
	ZIndex     int
}

// AXInfo is an optional accessibility-tree annotation for a node.
type AXInfo struct {
	Role   string
	Name   string
	Hidden bool
}

// Node is one entry in a rendered document tree. Parent is a non-owning
// back-reference; Children own the subtree.
type Node struct {
	Kind Kind

	// Tag is the lowercase element name. Empty for text nodes.
	Tag string
	// Text is the trimmed character data of a text node. Empty for elements.
	Text string

	Attrs    map[string]string
	Parent   *Node
	Children []*Node

	// Doc is the document that owns this node.
	Doc *Document

	// Box is the border box in the owning document's coordinate space,
	// unaffected by that document's scroll position.
	Box geom.Rect

	Style Style

	// PaintOrder ranks nodes for hit-testing: a higher value paints later
	// and therefore wins the topmost test. Builders must assign it.
	PaintOrder int

	// BackendID is the CDP backend node id when the document was captured
	// from a live browser. Zero for fixture documents.
	BackendID int64

	AX *AXInfo

	// ContentDoc is the nested document of a same-origin iframe.
	ContentDoc *Document
	// CrossOrigin marks an iframe whose content document is unreachable.
	CrossOrigin bool

	// backing is the x/net/html node this render node mirrors. All XPath
	// resolution runs over the backing tree and maps results back.
	backing *html.Node

	scrollTop float64
}

// IsElement reports whether the node is the element variant.
func (n *Node) IsElement() bool { return n != nil && n.Kind == ElementKind }

// IsText reports whether the node is the text variant.
func (n *Node) IsText() bool { return n != nil && n.Kind == TextKind }

// Attr returns the value of the named attribute and whether it is present.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil || n.Attrs == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// AttrOr returns the named attribute or def when absent.
func (n *Node) AttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// ID returns the element's id attribute, or "".
func (n *Node) ID() string { return n.AttrOr("id", "") }

// IsIframe reports whether the node is an <iframe> (or <frame>) element.
func (n *Node) IsIframe() bool {
	return n.IsElement() && (n.Tag == "iframe" || n.Tag == "frame")
}

// Contains reports whether other is n or a descendant of n.
func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.Parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Detached reports whether the node has no parent chain reaching its
// document root. Detached nodes cannot be located and are dropped.
func (n *Node) Detached() bool {
	if n == nil || n.Doc == nil || n.Doc.Root == nil {
		return true
	}
	cur := n
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur != n.Doc.Root
}

// InnerText returns the trimmed, whitespace-collapsed text of the subtree.
func (n *Node) InnerText() string {
	if n == nil {
		return ""
	}
	if n.Kind == TextKind {
		return n.Text
	}
	var parts []string
	var walk func(*Node)
	walk = func(cur *Node) {
		if cur.Kind == TextKind {
			if cur.Text != "" {
				parts = append(parts, cur.Text)
			}
			return
		}
		for _, c := range cur.Children {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

// NearestElement returns the node itself when it is an element, otherwise
// the closest element ancestor.
func (n *Node) NearestElement() *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Kind == ElementKind {
			return cur
		}
	}
	return nil
}

// ScrollTop returns the element's own scroll position. Only meaningful for
// elements used as scrollable containers.
func (n *Node) ScrollTop() float64 {
	if n == nil || n.Doc == nil {
		return 0
	}
	n.Doc.mu.Lock()
	defer n.Doc.mu.Unlock()
	return n.scrollTop
}

// SetScrollTop sets the element's scroll position, clamped to its content
// extent.
func (n *Node) SetScrollTop(v float64) {
	if n == nil || n.Doc == nil {
		return
	}
	maxScroll := n.ContentExtent().Height - n.Box.Height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if v < 0 {
		v = 0
	}
	if v > maxScroll {
		v = maxScroll
	}
	n.Doc.mu.Lock()
	n.scrollTop = v
	n.Doc.mu.Unlock()
}

// ContentExtent returns the union of the element's box and its descendant
// boxes, i.e. the scrollable content size of the element.
func (n *Node) ContentExtent() geom.Size {
	if n == nil {
		return geom.Size{}
	}
	u := n.Box
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, c := range cur.Children {
			if c.Kind == ElementKind && !c.Box.Empty() {
				u = u.Union(c.Box)
			}
			walk(c)
		}
	}
	walk(n)
	return geom.Size{Width: u.Right() - n.Box.X, Height: u.Bottom() - n.Box.Y}
}

// Backing exposes the underlying parse node. Nil for synthetic nodes.
func (n *Node) Backing() *html.Node { return n.backing }
