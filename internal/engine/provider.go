// internal/engine/provider.go
package engine

import (
	"context"
	"sync"

	"github.com/xkilldash9x/domdex/internal/dom"
	"github.com/xkilldash9x/domdex/internal/viewport"
)

// DocumentProvider supplies the rendered document the engine works against.
// The engine re-asks on every operation; a provider signals navigation by
// returning a different document pointer, which resets the engine's
// per-document state.
type DocumentProvider interface {
	Document(ctx context.Context) (*dom.Document, error)
}

// SurfaceProvider is the optional provider extension for documents whose
// scrolling lives outside the in-process model, such as a live browser tab.
// Without it the engine scrolls the document model directly.
type SurfaceProvider interface {
	Surface() viewport.Surface
}

// Snapshotter is the optional provider extension backing the DOM
// snapshot/restore debug surface. Snapshot returns an opaque serialized
// form; Restore rebuilds the document from one.
type Snapshotter interface {
	Snapshot(ctx context.Context) (string, error)
	Restore(ctx context.Context, snapshot string) error
}

// FixtureProvider serves in-process fixture documents. It backs tests and
// the CLI's offline mode, and implements Snapshotter by re-parsing the
// original markup.
type FixtureProvider struct {
	mu   sync.Mutex
	src  string
	opts dom.FixtureOptions
	doc  *dom.Document
}

// NewFixtureProvider parses src immediately so construction surfaces markup
// errors.
func NewFixtureProvider(src string, opts dom.FixtureOptions) (*FixtureProvider, error) {
	doc, err := dom.ParseFixture(src, opts)
	if err != nil {
		return nil, err
	}
	return &FixtureProvider{src: src, opts: opts, doc: doc}, nil
}

// Document returns the current fixture document.
func (p *FixtureProvider) Document(context.Context) (*dom.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc, nil
}

// Navigate replaces the fixture with new markup, as a page load would.
func (p *FixtureProvider) Navigate(src string, opts dom.FixtureOptions) error {
	doc, err := dom.ParseFixture(src, opts)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.src = src
	p.opts = opts
	p.doc = doc
	p.mu.Unlock()
	return nil
}

// Snapshot returns the fixture markup as the serialized document.
func (p *FixtureProvider) Snapshot(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src, nil
}

// Restore re-parses a snapshot into a fresh document. Every node pointer
// from before the restore is dead afterwards.
func (p *FixtureProvider) Restore(_ context.Context, snapshot string) error {
	p.mu.Lock()
	opts := p.opts
	p.mu.Unlock()

	doc, err := dom.ParseFixture(snapshot, opts)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.src = snapshot
	p.doc = doc
	p.mu.Unlock()
	return nil
}
