// internal/dom/fixture.go
//
// In-process fixture documents. ParseFixture turns an HTML string into a
// fully laid-out Document with deterministic geometry, which backs both the
// engine's test fixtures and its DOM snapshot/restore debug surface.
//
// The layout model is deliberately small: every rendered element is a block
// stacked vertically inside its parent, and inline `style` attributes can
// override position, size, stacking and visibility. `<iframe srcdoc=...>`
// becomes a same-origin nested document; an iframe whose src points at a
// foreign host becomes a cross-origin frame with unreachable content.
package dom

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domdex/internal/geom"
)

const (
	defaultViewportWidth  = 800.0
	defaultViewportHeight = 600.0

	textLineHeight   = 18.0
	emptyBlockHeight = 20.0

	defaultIframeWidth  = 300.0
	defaultIframeHeight = 150.0

	// Positioned elements paint above the in-flow content of the same
	// stacking level; each z-index unit is worth this much paint order.
	zIndexPaintStride = 1 << 20
)

// FixtureOptions tunes ParseFixture. Zero values select the defaults.
type FixtureOptions struct {
	URL      string
	Viewport geom.Size
}

// nonRenderedTags never produce boxes.
var nonRenderedTags = map[string]bool{
	"head": true, "script": true, "style": true, "meta": true,
	"link": true, "title": true, "noscript": true, "template": true, "base": true,
}

// ParseFixture parses src into a laid-out Document.
func ParseFixture(src string, opts FixtureOptions) (*Document, error) {
	if opts.URL == "" {
		opts.URL = "https://fixture.local/"
	}
	if opts.Viewport.Empty() {
		opts.Viewport = geom.Size{Width: defaultViewportWidth, Height: defaultViewportHeight}
	}
	return parseFixtureDoc(src, opts, nil, nil)
}

func parseFixtureDoc(src string, opts FixtureOptions, parent *Document, frameEl *Node) (*Document, error) {
	root, err := htmlquery.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing fixture markup: %w", err)
	}

	doc := &Document{
		URL:          opts.URL,
		Origin:       originOf(opts.URL),
		Parent:       parent,
		FrameElement: frameEl,
		Viewport:     opts.Viewport,
		htmlRoot:     root,
	}

	htmlEl := findChildElement(root, "html")
	if htmlEl == nil {
		return nil, fmt.Errorf("fixture markup has no <html> element")
	}
	doc.Root = buildFixtureTree(doc, htmlEl, nil)
	for _, c := range doc.Root.Children {
		if c.Kind == ElementKind && c.Tag == "body" {
			doc.Body = c
			break
		}
	}
	if doc.Body == nil {
		return nil, fmt.Errorf("fixture markup has no <body> element")
	}

	lc := &layoutCursor{}
	lc.layoutBlock(doc.Root, 0, 0, opts.Viewport.Width)
	assignPaintOrder(doc.Root)

	ext := doc.Root.ContentExtent()
	doc.ContentSize = geom.Size{
		Width:  maxf(ext.Width, opts.Viewport.Width),
		Height: maxf(ext.Height, opts.Viewport.Height),
	}
	return doc, nil
}

// buildFixtureTree mirrors the parse tree into render nodes, descending into
// srcdoc iframes as nested documents.
func buildFixtureTree(doc *Document, h *html.Node, parent *Node) *Node {
	switch h.Type {
	case html.ElementNode:
		n := &Node{
			Kind:   ElementKind,
			Tag:    strings.ToLower(h.Data),
			Attrs:  attrMap(h),
			Parent: parent,
			Doc:    doc,
			Style:  Style{Opacity: 1},
		}
		doc.register(h, n)
		applyInlineStyle(n)
		if nonRenderedTags[n.Tag] {
			n.Style.Display = "none"
		}
		if _, hidden := n.Attr("hidden"); hidden {
			n.Style.Display = "none"
		}
		if role, ok := n.Attr("role"); ok || n.AttrOr("aria-hidden", "") == "true" {
			n.AX = &AXInfo{Role: role, Hidden: n.AttrOr("aria-hidden", "") == "true"}
		}

		if n.IsIframe() {
			attachFixtureFrame(doc, n)
		}

		for c := h.FirstChild; c != nil; c = c.NextSibling {
			if child := buildFixtureTree(doc, c, n); child != nil {
				n.Children = append(n.Children, child)
			}
		}
		return n

	case html.TextNode:
		text := strings.TrimSpace(h.Data)
		if text == "" {
			return nil
		}
		n := &Node{
			Kind:   TextKind,
			Text:   collapseSpace(text),
			Parent: parent,
			Doc:    doc,
			Style:  Style{Opacity: 1},
		}
		doc.register(h, n)
		return n
	}
	return nil
}

// attachFixtureFrame resolves an iframe's content: srcdoc parses inline as a
// same-origin document, a foreign-host src marks the frame cross-origin.
func attachFixtureFrame(doc *Document, n *Node) {
	if srcdoc, ok := n.Attr("srcdoc"); ok {
		childURL := doc.URL + "#frame"
		child, err := parseFixtureDoc(srcdoc, FixtureOptions{
			URL:      childURL,
			Viewport: geom.Size{Width: frameWidth(n), Height: frameHeight(n)},
		}, doc, n)
		if err == nil {
			n.ContentDoc = child
		}
		return
	}
	if src, ok := n.Attr("src"); ok && src != "" {
		if o := originOf(src); o != "" && o != doc.Origin {
			n.CrossOrigin = true
		}
	}
}

// -- Block layout --

type layoutCursor struct{}

// layoutBlock lays out n at (x, y) with the given available width and
// returns the flow height it consumed. Out-of-flow (absolute/fixed) and
// unrendered elements consume no flow height.
func (lc *layoutCursor) layoutBlock(n *Node, x, y, width float64) float64 {
	if n.Kind == TextKind {
		n.Box = geom.Rect{X: x, Y: y, Width: width, Height: textLineHeight}
		return textLineHeight
	}

	if n.Style.Display == "none" {
		zeroSubtree(n)
		return 0
	}

	outOfFlow := n.Style.Position == "absolute" || n.Style.Position == "fixed"

	w := styleLength(n, "width", width)
	bx, by := x, y
	if outOfFlow {
		bx = styleLength(n, "left", 0)
		by = styleLength(n, "top", 0)
		w = styleLength(n, "width", 100)
	}

	if n.IsIframe() {
		n.Box = geom.Rect{X: bx, Y: by, Width: frameWidth(n), Height: frameHeight(n)}
		zeroChildren(n)
		if outOfFlow {
			return 0
		}
		return n.Box.Height
	}

	childY := by
	for _, c := range n.Children {
		childY += lc.layoutBlock(c, bx, childY, w)
	}
	contentH := childY - by

	h := contentH
	if explicit, ok := styleLengthOK(n, "height"); ok {
		h = explicit
	} else if h == 0 {
		h = emptyBlockHeight
	}

	n.Box = geom.Rect{X: bx, Y: by, Width: w, Height: h}
	if outOfFlow {
		return 0
	}
	return h
}

func zeroSubtree(n *Node) {
	n.Box = geom.Rect{}
	zeroChildren(n)
}

func zeroChildren(n *Node) {
	for _, c := range n.Children {
		zeroSubtree(c)
	}
}

// assignPaintOrder ranks elements for hit-testing: document order, with
// positive z-index lifting a subtree above all in-flow content.
func assignPaintOrder(root *Node) {
	counter := 0
	var walk func(n *Node, inheritedZ int)
	walk = func(n *Node, inheritedZ int) {
		z := inheritedZ
		if n.Kind == ElementKind && n.Style.ZIndex > z {
			z = n.Style.ZIndex
		}
		counter++
		n.PaintOrder = counter + z*zIndexPaintStride
		for _, c := range n.Children {
			walk(c, z)
		}
	}
	walk(root, 0)
}

// -- Inline style parsing --

// applyInlineStyle folds a `style` attribute into the node's Style. Only the
// declarations the visibility and layout heuristics understand are kept.
func applyInlineStyle(n *Node) {
	raw, ok := n.Attr("style")
	if !ok {
		return
	}
	for prop, val := range parseDeclarations(raw) {
		switch prop {
		case "display":
			n.Style.Display = val
		case "visibility":
			n.Style.Visibility = val
		case "opacity":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				n.Style.Opacity = f
			}
		case "position":
			n.Style.Position = val
		case "z-index":
			if z, err := strconv.Atoi(val); err == nil {
				n.Style.ZIndex = z
			}
		}
	}
}

// parseDeclarations splits "prop: value; prop: value" into a map. Malformed
// declarations are ignored rather than rejected.
func parseDeclarations(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		if prop != "" && val != "" {
			out[prop] = val
		}
	}
	return out
}

func styleLength(n *Node, prop string, def float64) float64 {
	if v, ok := styleLengthOK(n, prop); ok {
		return v
	}
	return def
}

func styleLengthOK(n *Node, prop string) (float64, bool) {
	raw, ok := n.Attr("style")
	if !ok {
		return 0, false
	}
	val, ok := parseDeclarations(raw)[prop]
	if !ok {
		return 0, false
	}
	val = strings.TrimSuffix(val, "px")
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func frameWidth(n *Node) float64 {
	if v, ok := styleLengthOK(n, "width"); ok {
		return v
	}
	if v, ok := n.Attr("width"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultIframeWidth
}

func frameHeight(n *Node) float64 {
	if v, ok := styleLengthOK(n, "height"); ok {
		return v
	}
	if v, ok := n.Attr("height"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultIframeHeight
}

// -- Small helpers --

func attrMap(h *html.Node) map[string]string {
	if len(h.Attr) == 0 {
		return nil
	}
	m := make(map[string]string, len(h.Attr))
	for _, a := range h.Attr {
		m[strings.ToLower(a.Key)] = a.Val
	}
	return m
}

func findChildElement(h *html.Node, tag string) *html.Node {
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && strings.EqualFold(c.Data, tag) {
			return c
		}
	}
	return nil
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
