// internal/locator/resolver.go
package locator

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/domdex/internal/dom"
)

// Resolver turns stored strategies back into live nodes.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver builds a resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Resolve tries each strategy in order against the top-level document and
// returns the first that matches exactly one node. A strategy that matches
// zero or several nodes is skipped, not fatal; only exhausting the whole
// list yields ErrNotFound. A frame chain whose iframe turned cross-origin
// is skipped with ErrInaccessibleFrame logged.
func (r *Resolver) Resolve(top *dom.Document, strategies []Strategy) (*dom.Node, error) {
	if top == nil || len(strategies) == 0 {
		return nil, ErrNotFound
	}
	for _, s := range strategies {
		n, err := r.resolveOne(top, s)
		if err != nil {
			r.logger.Debug("Location strategy did not resolve; trying next.",
				zap.String("kind", s.Kind.String()),
				zap.String("path", s.Path),
				zap.Error(err))
			continue
		}
		return n, nil
	}
	return nil, ErrNotFound
}

func (r *Resolver) resolveOne(top *dom.Document, s Strategy) (*dom.Node, error) {
	doc := top
	if s.IsFrameChain() {
		frame, err := uniqueMatch(top, s.OuterPath)
		if err != nil {
			return nil, err
		}
		if !frame.IsIframe() {
			return nil, ErrNotFound
		}
		if frame.CrossOrigin || frame.ContentDoc == nil {
			return nil, ErrInaccessibleFrame
		}
		doc = frame.ContentDoc
	}
	return uniqueMatch(doc, s.Path)
}

func uniqueMatch(doc *dom.Document, expr string) (*dom.Node, error) {
	matches, err := doc.FindAllXPath(expr)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return matches[0], nil
	}
	return nil, ErrAmbiguous
}
