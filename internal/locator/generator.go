// internal/locator/generator.go
//
// The generator assembles redundant location strategies for a node: several
// independent XPath expressions, any one of which should re-find the node
// later. Redundancy is the point. A positional path survives attribute
// churn, an attribute path survives structural churn, and the resolver
// falls through the list in order.
package locator

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/domdex/internal/dom"
)

// searchAttrs is the priority-ordered attribute set for the unique
// combination search. Test hooks and accessible names come first because
// they are the most intentionally stable identifiers a page carries.
var searchAttrs = []string{
	"data-testid", "role", "aria-label", "aria-labelledby",
	"name", "placeholder", "title", "alt", "type",
}

// GeneratorOptions tunes the generator.
type GeneratorOptions struct {
	// MaxCombo caps the attribute combination size. Defaults to 3; beyond
	// that the search space grows without adding meaningful uniqueness.
	MaxCombo int
}

// Generator computes location strategies, memoizing per node identity.
type Generator struct {
	logger   *zap.Logger
	cache    *Cache
	maxCombo int
}

// NewGenerator builds a generator around the given cache. A nil cache
// disables memoization.
func NewGenerator(cache *Cache, opts GeneratorOptions, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxCombo := opts.MaxCombo
	if maxCombo <= 0 {
		maxCombo = 3
	}
	return &Generator{logger: logger, cache: cache, maxCombo: maxCombo}
}

// Locate returns the strategies for a node, most specific first. For a node
// inside a same-origin iframe every strategy is a frame chain: the outer
// path finds the iframe in its parent document, the inner path finds the
// node within the frame's own document. Returns ErrDetachedNode when the
// node no longer reaches its document root.
func (g *Generator) Locate(n *dom.Node) ([]Strategy, error) {
	if n == nil || n.Doc == nil {
		return nil, ErrDetachedNode
	}
	if n.Detached() {
		return nil, ErrDetachedNode
	}
	if g.cache != nil {
		if s, ok := g.cache.Get(n); ok {
			return s, nil
		}
	}

	var outer string
	if n.Doc.Parent != nil {
		fe := n.Doc.FrameElement
		if fe == nil || fe.Detached() {
			return nil, ErrDetachedNode
		}
		outer = standardPath(fe)
	}

	strategies := g.assemble(n)
	if outer != "" {
		for i := range strategies {
			strategies[i].OuterPath = outer
			strategies[i].Kind = KindFrameChain
		}
	}

	if g.cache != nil {
		g.cache.Put(n, strategies)
	}
	return strategies, nil
}

// assemble builds the strategy list relative to the node's own document.
func (g *Generator) assemble(n *dom.Node) []Strategy {
	out := []Strategy{{Kind: KindStandard, Path: standardPath(n)}}
	if n.Kind != dom.ElementKind {
		return out
	}
	if p, ok := idPath(n); ok {
		out = append(out, Strategy{Kind: KindID, Path: p})
	}
	out = append(out, Strategy{Kind: KindAttribute, Path: g.attributePath(n)})
	return out
}

// attributePath searches for the smallest attribute combination that
// uniquely identifies the node within its document, verified by actually
// evaluating the candidate expression. When no combination is unique it
// falls back to the fully-indexed positional path, which always is.
func (g *Generator) attributePath(n *dom.Node) string {
	var avail []string
	for _, name := range searchAttrs {
		v, ok := n.Attr(name)
		if !ok || v == "" || strings.ContainsAny(v, `'"`) {
			continue
		}
		avail = append(avail, name)
	}

	for size := 1; size <= g.maxCombo && size <= len(avail); size++ {
		if expr, ok := g.searchCombos(n, avail, size); ok {
			return expr
		}
	}
	return indexedPath(n)
}

// searchCombos tries every combination of exactly size attributes, in
// priority order, and returns the first expression that resolves to the
// node and nothing else.
func (g *Generator) searchCombos(n *dom.Node, avail []string, size int) (string, bool) {
	idx := make([]int, size)
	for i := range idx {
		idx[i] = i
	}
	for {
		expr := comboExpr(n, avail, idx)
		switch err := g.verifyUnique(n, expr); err {
		case nil:
			return expr, true
		case ErrAmbiguous, ErrNotFound:
			// Not unique with this combination; keep searching.
		default:
			g.logger.Debug("Attribute expression failed to evaluate.",
				zap.String("expr", expr), zap.Error(err))
		}

		// Advance to the next combination of indices into avail.
		i := size - 1
		for i >= 0 && idx[i] == len(avail)-size+i {
			i--
		}
		if i < 0 {
			return "", false
		}
		idx[i]++
		for j := i + 1; j < size; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// comboExpr renders //tag[@a='v'][@b='v'] for the chosen attributes.
func comboExpr(n *dom.Node, avail []string, idx []int) string {
	var b strings.Builder
	b.WriteString("//")
	b.WriteString(n.Tag)
	for _, i := range idx {
		name := avail[i]
		fmt.Fprintf(&b, "[@%s='%s']", name, n.AttrOr(name, ""))
	}
	return b.String()
}

// verifyUnique evaluates the expression against the node's document and
// checks it matches exactly this node.
func (g *Generator) verifyUnique(n *dom.Node, expr string) error {
	matches, err := n.Doc.FindAllXPath(expr)
	if err != nil {
		return err
	}
	switch {
	case len(matches) == 0:
		return ErrNotFound
	case len(matches) > 1:
		return ErrAmbiguous
	case matches[0] != n:
		return ErrAmbiguous
	}
	return nil
}
