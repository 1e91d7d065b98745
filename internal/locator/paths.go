// internal/locator/paths.go
package locator

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domdex/internal/dom"
)

// standardPath builds a positional XPath from the document root. The index
// suffix is omitted when the node is the only one of its name among its
// element siblings, which keeps the path stable across unrelated sibling
// churn. Text nodes get a trailing text()[n] step.
func standardPath(n *dom.Node) string {
	var steps []string
	cur := n
	if cur.Kind == dom.TextKind {
		steps = append(steps, textStep(cur))
		cur = cur.Parent
	}
	for ; cur != nil; cur = cur.Parent {
		if cur.Kind != dom.ElementKind || cur.Tag == "" {
			continue
		}
		idx, total := siblingPosition(cur)
		if total > 1 {
			steps = append(steps, fmt.Sprintf("%s[%d]", cur.Tag, idx))
		} else {
			steps = append(steps, cur.Tag)
		}
	}
	return "/" + joinReversed(steps)
}

// indexedPath is the fully-indexed variant: every step carries its sibling
// index, and an ancestor with an id becomes the anchor, which shortens the
// expression and survives reshuffling above the anchor. This is the most
// structurally explicit form and serves as the attribute search fallback.
func indexedPath(n *dom.Node) string {
	var steps []string
	cur := n
	if cur.Kind == dom.TextKind {
		steps = append(steps, textStep(cur))
		cur = cur.Parent
	}
	anchored := false
	for ; cur != nil; cur = cur.Parent {
		if cur.Kind != dom.ElementKind || cur.Tag == "" {
			continue
		}
		if id := cur.ID(); id != "" && !strings.ContainsAny(id, `'"`) {
			steps = append(steps, fmt.Sprintf(`//*[@id='%s']`, id))
			anchored = true
			break
		}
		idx, _ := siblingPosition(cur)
		steps = append(steps, fmt.Sprintf("%s[%d]", cur.Tag, idx))
	}
	path := joinReversed(steps)
	if !anchored {
		path = "/" + path
	}
	return path
}

// idPath returns an absolute-by-id expression when the element has a usable
// id attribute.
func idPath(n *dom.Node) (string, bool) {
	if n.Kind != dom.ElementKind {
		return "", false
	}
	id := n.ID()
	if id == "" || strings.ContainsAny(id, `'"`) {
		return "", false
	}
	return fmt.Sprintf(`//*[@id='%s']`, id), true
}

// siblingPosition returns the node's 1-based position among same-name
// element siblings and the total count of them.
func siblingPosition(n *dom.Node) (idx, total int) {
	if n.Parent == nil {
		return 1, 1
	}
	idx = 0
	for _, sib := range n.Parent.Children {
		if sib.Kind == dom.ElementKind && sib.Tag == n.Tag {
			total++
			if sib == n {
				idx = total
			}
		}
	}
	if idx == 0 {
		// Not among the parent's children: effectively detached.
		return 1, 1
	}
	return idx, total
}

// textStep builds the text()[n] step for a text node. The index is counted
// over the backing parse tree, because XPath counts whitespace-only text
// siblings that the render tree drops.
func textStep(n *dom.Node) string {
	idx := 1
	if b := n.Backing(); b != nil {
		count := 0
		for sib := firstSibling(b); sib != nil; sib = sib.NextSibling {
			if sib.Type == html.TextNode {
				count++
				if sib == b {
					idx = count
				}
			}
		}
	} else if n.Parent != nil {
		count := 0
		for _, sib := range n.Parent.Children {
			if sib.Kind == dom.TextKind {
				count++
				if sib == n {
					idx = count
				}
			}
		}
	}
	return fmt.Sprintf("text()[%d]", idx)
}

func firstSibling(b *html.Node) *html.Node {
	if b.Parent != nil {
		return b.Parent.FirstChild
	}
	for b.PrevSibling != nil {
		b = b.PrevSibling
	}
	return b
}

func joinReversed(steps []string) string {
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return strings.Join(steps, "/")
}
