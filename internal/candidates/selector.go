// internal/candidates/selector.go
//
// The candidate selector walks the render tree reachable from a root,
// descending into same-origin nested documents, and classifies each node
// worth indexing. The walk is an iterative depth-first traversal over an
// explicit stack: pathological DOM depth must not translate into goroutine
// stack depth. A parent's own classification never gates descent into its
// children.
package candidates

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/domdex/internal/dom"
	"github.com/xkilldash9x/domdex/internal/visibility"
)

// Classification tags why a node was selected.
type Classification int

const (
	// Interactive elements accept clicks, typing or selection.
	Interactive Classification = iota
	// LeafText elements carry their own text and nothing structural below.
	LeafText
	// PlainText is a bare visible text node.
	PlainText
)

func (c Classification) String() string {
	switch c {
	case Interactive:
		return "interactive"
	case LeafText:
		return "leaf-text"
	case PlainText:
		return "text"
	}
	return "unknown"
}

// MarshalText renders the classification by name in serialized output.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Candidate pairs a node with its classification. Classification is
// recomputed on every traversal, never cached across calls.
type Candidate struct {
	Node  *dom.Node
	Class Classification
}

// interactiveTags is the fixed element allow-list.
var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "textarea": true,
	"select": true, "option": true, "summary": true, "details": true,
	"label": true, "menu": true, "menuitem": true,
}

// interactiveRoles is the fixed ARIA/accessible role allow-list.
var interactiveRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "radio": true,
	"tab": true, "menuitem": true, "menuitemcheckbox": true,
	"menuitemradio": true, "combobox": true, "listbox": true,
	"option": true, "switch": true, "searchbox": true, "textbox": true,
	"slider": true, "spinbutton": true,
}

// leafDenyTags never count as leaf text-bearing elements.
var leafDenyTags = map[string]bool{
	"script": true, "style": true, "svg": true, "iframe": true,
	"link": true, "meta": true, "noscript": true, "head": true,
	"title": true, "html": true, "body": true,
}

// Selector classifies nodes with the help of a visibility oracle.
type Selector struct {
	logger *zap.Logger
	oracle *visibility.Oracle
}

// New builds a selector.
func New(oracle *visibility.Oracle, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{logger: logger, oracle: oracle}
}

// Select walks the subtree under root in document order and returns the
// candidates found, descending into same-origin iframes. Cross-origin frames
// are skipped with a warning: their content is unreachable, which is
// expected and non-fatal. A panic while classifying one node drops that node
// only, never the walk.
func (s *Selector) Select(root *dom.Node) []Candidate {
	if root == nil {
		return nil
	}

	var out []Candidate
	// Direct parents already emitted as element candidates; their text
	// children would duplicate the rendered line.
	emitted := make(map[*dom.Node]bool)

	stack := []*dom.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Kind == dom.ElementKind && n.IsIframe() {
			if n.CrossOrigin {
				s.logger.Warn("Skipping cross-origin frame: content is not inspectable.",
					zap.String("src", n.AttrOr("src", "")))
				continue
			}
			if n.ContentDoc != nil && n.ContentDoc.Body != nil {
				children := n.ContentDoc.Body.Children
				for i := len(children) - 1; i >= 0; i-- {
					stack = append(stack, children[i])
				}
			}
			continue
		}

		// Children are pushed unconditionally: an invisible or inert parent
		// can still contain indexable content.
		if n.Kind == dom.ElementKind {
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, n.Children[i])
			}
		}

		class, ok := s.classify(n, emitted)
		if !ok {
			continue
		}
		if n.Kind == dom.ElementKind {
			emitted[n] = true
		}
		out = append(out, Candidate{Node: n, Class: class})
	}
	return out
}

// classify evaluates one node, recovering from any per-node panic.
func (s *Selector) classify(n *dom.Node, emitted map[*dom.Node]bool) (class Classification, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Classification failed for node; excluding it.",
				zap.String("tag", n.Tag), zap.Any("panic", r))
			ok = false
		}
	}()

	switch n.Kind {
	case dom.TextKind:
		if n.Text == "" {
			return 0, false
		}
		if parent := n.NearestElement(); parent != nil && emitted[parent] {
			return 0, false
		}
		if !s.oracle.IsVisible(n) {
			return 0, false
		}
		return PlainText, true

	case dom.ElementKind:
		if s.isInteractive(n) && s.isActive(n) && s.oracle.IsVisible(n) {
			return Interactive, true
		}
		if s.isLeafText(n) && s.isActive(n) && s.oracle.IsVisible(n) {
			return LeafText, true
		}
	}
	return 0, false
}

// isInteractive checks tag, explicit role, and (when present) accessible
// role against the fixed allow-lists.
func (s *Selector) isInteractive(n *dom.Node) bool {
	if interactiveTags[n.Tag] {
		// Bare anchors without a target are navigation chrome, not actions.
		if n.Tag == "a" {
			_, hasHref := n.Attr("href")
			return hasHref
		}
		return true
	}
	if role, ok := n.Attr("role"); ok && interactiveRoles[strings.ToLower(role)] {
		return true
	}
	if n.AX != nil && interactiveRoles[strings.ToLower(n.AX.Role)] {
		return true
	}
	if v, ok := n.Attr("contenteditable"); ok {
		v = strings.TrimSpace(strings.ToLower(v))
		return v == "true" || v == ""
	}
	return false
}

// isActive rejects disabled or explicitly hidden elements.
func (s *Selector) isActive(n *dom.Node) bool {
	if _, disabled := n.Attr("disabled"); disabled {
		return false
	}
	if n.AttrOr("aria-disabled", "") == "true" {
		return false
	}
	if _, hidden := n.Attr("hidden"); hidden {
		return false
	}
	if n.Tag == "input" && strings.EqualFold(n.AttrOr("type", ""), "hidden") {
		return false
	}
	return true
}

// isLeafText matches elements that carry their own text: childless, or a
// single non-empty text child, outside the structural deny-list.
func (s *Selector) isLeafText(n *dom.Node) bool {
	if leafDenyTags[n.Tag] {
		return false
	}
	switch len(n.Children) {
	case 0:
	case 1:
		c := n.Children[0]
		if c.Kind != dom.TextKind || c.Text == "" {
			return false
		}
	default:
		return false
	}
	return n.InnerText() != ""
}
