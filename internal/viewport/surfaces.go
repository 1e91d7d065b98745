// internal/viewport/surfaces.go
package viewport

import (
	"context"

	"github.com/xkilldash9x/domdex/internal/dom"
	"github.com/xkilldash9x/domdex/internal/geom"
)

// DocumentSurface scrolls a whole in-process document.
type DocumentSurface struct {
	doc *dom.Document
}

// NewDocumentSurface wraps a document as a scrollable surface.
func NewDocumentSurface(doc *dom.Document) *DocumentSurface {
	return &DocumentSurface{doc: doc}
}

// SwapDocument repoints the surface after a navigation or restore.
func (s *DocumentSurface) SwapDocument(doc *dom.Document) { s.doc = doc }

func (s *DocumentSurface) Viewport(context.Context) (geom.Size, error) {
	return s.doc.Viewport, nil
}

func (s *DocumentSurface) ScrollExtent(context.Context) (geom.Size, error) {
	return s.doc.ScrollExtent(), nil
}

func (s *DocumentSurface) Offset(context.Context) (float64, error) {
	_, y := s.doc.ScrollOffset()
	return y, nil
}

func (s *DocumentSurface) StartScroll(_ context.Context, offset float64) error {
	s.doc.StartScroll(offset)
	return nil
}

// ElementSurface scrolls an arbitrary scrollable element. Same contract as
// the document surface, different root; this is the variant that carries the
// pre-scroll delay (configured on its Container) for slow-rendering pages.
type ElementSurface struct {
	el *dom.Node
}

// NewElementSurface wraps a scrollable element as a surface.
func NewElementSurface(el *dom.Node) *ElementSurface {
	return &ElementSurface{el: el}
}

func (s *ElementSurface) Viewport(context.Context) (geom.Size, error) {
	return geom.Size{Width: s.el.Box.Width, Height: s.el.Box.Height}, nil
}

func (s *ElementSurface) ScrollExtent(context.Context) (geom.Size, error) {
	ext := s.el.ContentExtent()
	// An element shorter than its own box has nothing to scroll.
	if ext.Height <= s.el.Box.Height {
		return geom.Size{}, nil
	}
	return ext, nil
}

func (s *ElementSurface) Offset(context.Context) (float64, error) {
	return s.el.ScrollTop(), nil
}

func (s *ElementSurface) StartScroll(_ context.Context, offset float64) error {
	s.el.SetScrollTop(offset)
	return nil
}
