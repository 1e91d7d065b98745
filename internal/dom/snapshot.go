// internal/dom/snapshot.go
//
// Builds a Document from a CDP DOMSnapshot capture. The flattened snapshot
// arrays are rehydrated into the render tree, and a parallel x/net/html tree
// is synthesized underneath it so XPath resolution works identically for
// captured and fixture documents. Whitespace-only text nodes stay in the
// backing tree (XPath counts them) but never become render nodes.
package dom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/domsnapshot"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domdex/internal/geom"
)

// SnapshotStyles is the computed style whitelist a capture must request, in
// exactly this order; FromSnapshot zips style values against it.
var SnapshotStyles = []string{"display", "visibility", "opacity", "position", "z-index"}

// SnapshotInput carries one CaptureSnapshot result plus page-level context.
type SnapshotInput struct {
	Documents []*domsnapshot.DocumentSnapshot
	Strings   []string
	// Viewport is the top-level visible size.
	Viewport geom.Size
	// AX maps backend node ids to accessibility annotations. Optional.
	AX map[int64]*AXInfo
}

// FromSnapshot builds the top-level Document, with same-origin child frames
// attached to their iframe elements. The first snapshot document is the main
// frame.
func FromSnapshot(in SnapshotInput) (*Document, error) {
	if len(in.Documents) == 0 {
		return nil, fmt.Errorf("snapshot contains no documents")
	}

	built := make([]*Document, len(in.Documents))
	indexed := make([][]*Node, len(in.Documents))
	for i, ds := range in.Documents {
		doc, byIndex, err := buildSnapshotDoc(ds, in)
		if err != nil {
			return nil, fmt.Errorf("snapshot document %d: %w", i, err)
		}
		built[i] = doc
		indexed[i] = byIndex
	}

	// Link nested documents to their owning iframe elements.
	for i, ds := range in.Documents {
		cdi := ds.Nodes.ContentDocumentIndex
		if cdi == nil {
			continue
		}
		for k, nodeIdx := range cdi.Index {
			docIdx := int(cdi.Value[k])
			if docIdx <= 0 || docIdx >= len(built) {
				continue
			}
			if int(nodeIdx) >= len(indexed[i]) {
				continue
			}
			frame := indexed[i][nodeIdx]
			if frame == nil || !frame.IsIframe() {
				continue
			}
			child := built[docIdx]
			frame.ContentDoc = child
			child.Parent = built[i]
			child.FrameElement = frame
			child.Viewport = geom.Size{Width: frame.Box.Width, Height: frame.Box.Height}
		}
	}

	// Iframes without captured content are out-of-process: cross-origin.
	markCrossOriginFrames(built[0])

	top := built[0]
	top.Viewport = in.Viewport
	return top, nil
}

func buildSnapshotDoc(ds *domsnapshot.DocumentSnapshot, in SnapshotInput) (*Document, []*Node, error) {
	str := func(idx int64) string {
		if idx < 0 || int(idx) >= len(in.Strings) {
			return ""
		}
		return in.Strings[idx]
	}

	url := str(int64(ds.DocumentURL))
	doc := &Document{
		URL:         url,
		Origin:      originOf(url),
		ContentSize: geom.Size{Width: ds.ContentWidth, Height: ds.ContentHeight},
		htmlRoot:    &html.Node{Type: html.DocumentNode},
	}
	doc.SetScroll(ds.ScrollOffsetX, ds.ScrollOffsetY)

	nodes := ds.Nodes
	count := len(nodes.NodeType)
	byIndex := make([]*Node, count)
	backing := make([]*html.Node, count)

	appendTo := func(parentIdx int64, h *html.Node) {
		if parentIdx >= 0 && backing[parentIdx] != nil {
			backing[parentIdx].AppendChild(h)
		} else {
			doc.htmlRoot.AppendChild(h)
		}
	}

	for i := 0; i < count; i++ {
		parentIdx := int64(-1)
		if i < len(nodes.ParentIndex) {
			parentIdx = nodes.ParentIndex[i]
		}
		var parent *Node
		if parentIdx >= 0 {
			parent = byIndex[parentIdx]
		}

		switch nodes.NodeType[i] {
		case 9: // document node: anchor for its children, no render node
			backing[i] = doc.htmlRoot

		case 1: // element
			tag := strings.ToLower(str(int64(nodes.NodeName[i])))
			h := &html.Node{Type: html.ElementNode, Data: tag}
			var attrs map[string]string
			if i < len(nodes.Attributes) {
				attrs = snapshotAttrs(nodes.Attributes[i], str)
				for k, v := range attrs {
					h.Attr = append(h.Attr, html.Attribute{Key: k, Val: v})
				}
			}
			appendTo(parentIdx, h)
			backing[i] = h

			n := &Node{
				Kind:   ElementKind,
				Tag:    tag,
				Attrs:  attrs,
				Parent: parent,
				Doc:    doc,
				Style:  Style{Opacity: 1},
			}
			if i < len(nodes.BackendNodeID) {
				n.BackendID = int64(nodes.BackendNodeID[i])
				if ax, ok := in.AX[n.BackendID]; ok {
					n.AX = ax
				}
			}
			doc.register(h, n)
			if parent != nil {
				parent.Children = append(parent.Children, n)
			}
			byIndex[i] = n

		case 3: // text
			raw := str(int64(nodes.NodeValue[i]))
			h := &html.Node{Type: html.TextNode, Data: raw}
			appendTo(parentIdx, h)
			backing[i] = h

			trimmed := strings.TrimSpace(raw)
			if trimmed == "" || parent == nil {
				continue
			}
			n := &Node{
				Kind:   TextKind,
				Text:   collapseSpace(trimmed),
				Parent: parent,
				Doc:    doc,
				Style:  Style{Opacity: 1},
			}
			doc.register(h, n)
			parent.Children = append(parent.Children, n)
			byIndex[i] = n
		}
	}

	for i := range byIndex {
		if n := byIndex[i]; n != nil && n.Kind == ElementKind && n.Parent == nil && n.Tag == "html" {
			doc.Root = n
			break
		}
	}
	if doc.Root == nil {
		return nil, nil, fmt.Errorf("no root html element")
	}
	for _, c := range doc.Root.Children {
		if c.Kind == ElementKind && c.Tag == "body" {
			doc.Body = c
			break
		}
	}

	applySnapshotLayout(ds.Layout, byIndex, str)
	return doc, byIndex, nil
}

// applySnapshotLayout folds the layout tree onto the render nodes: document
// coordinate bounds, the requested computed styles, and global paint order.
// Nodes absent from the layout tree keep a zero box.
func applySnapshotLayout(layout *domsnapshot.LayoutTreeSnapshot, byIndex []*Node, str func(int64) string) {
	if layout == nil {
		return
	}
	for j, nodeIdx := range layout.NodeIndex {
		if int(nodeIdx) >= len(byIndex) {
			continue
		}
		n := byIndex[nodeIdx]
		if n == nil {
			continue
		}
		if j < len(layout.Bounds) && len(layout.Bounds[j]) >= 4 {
			b := layout.Bounds[j]
			n.Box = geom.Rect{X: b[0], Y: b[1], Width: b[2], Height: b[3]}
		}
		if j < len(layout.PaintOrders) {
			n.PaintOrder = int(layout.PaintOrders[j])
		}
		if j < len(layout.Styles) {
			applySnapshotStyle(n, layout.Styles[j], str)
		}
	}
}

func applySnapshotStyle(n *Node, values domsnapshot.ArrayOfStrings, str func(int64) string) {
	// The capture requested SnapshotStyles in order; the layout tree echoes
	// the resolved values positionally into the shared string table.
	for i, prop := range SnapshotStyles {
		if i >= len(values) {
			break
		}
		val := str(values[i])
		if val == "" {
			continue
		}
		switch prop {
		case "display":
			if val != "none" {
				continue
			}
			n.Style.Display = val
		case "visibility":
			if val == "hidden" || val == "collapse" {
				n.Style.Visibility = "hidden"
			}
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

func snapshotAttrs(pairs domsnapshot.ArrayOfStrings, str func(int64) string) map[string]string {
	if len(pairs) < 2 {
		return nil
	}
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[strings.ToLower(str(pairs[i]))] = str(pairs[i+1])
	}
	return m
}

// markCrossOriginFrames flags iframes whose content document was not part of
// the capture: out-of-process frames never are.
func markCrossOriginFrames(doc *Document) {
	var walk func(*Node)
	walk = func(n *Node) {
		if n.IsIframe() && n.ContentDoc == nil {
			n.CrossOrigin = true
		}
		for _, c := range n.Children {
			walk(c)
		}
		if n.ContentDoc != nil && n.ContentDoc.Root != nil {
			walk(n.ContentDoc.Root)
		}
	}
	if doc.Root != nil {
		walk(doc.Root)
	}
}
