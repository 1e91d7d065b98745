// internal/engine/engine.go
//
// The extraction engine ties the pipeline together: scroll the viewport to a
// chunk, select visible candidates, assign each a stable integer index,
// compute redundant location strategies per index, and render a compact text
// summary an agent can act on. All state is per-engine; two engines over the
// same document never interfere.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domdex/internal/candidates"
	"github.com/xkilldash9x/domdex/internal/dom"
	"github.com/xkilldash9x/domdex/internal/geom"
	"github.com/xkilldash9x/domdex/internal/locator"
	"github.com/xkilldash9x/domdex/internal/viewport"
	"github.com/xkilldash9x/domdex/internal/visibility"
)

// Options tunes an engine. Zero values select the defaults.
type Options struct {
	// Scroll configures the settle behavior of the viewport container.
	Scroll viewport.Options
	// MaxCombo caps the attribute combination search.
	MaxCombo int
	// SampleInset is the visibility probe corner inset.
	SampleInset float64
	// LocateConcurrency bounds the parallel strategy computation per chunk.
	// Defaults to 4.
	LocateConcurrency int
}

// Engine is the indexing engine over one document provider.
type Engine struct {
	logger    *zap.Logger
	provider  DocumentProvider
	opts      Options
	sessionID string

	oracle   *visibility.Oracle
	selector *candidates.Selector
	cache    *locator.Cache
	gen      *locator.Generator
	resolver *locator.Resolver

	mu         sync.Mutex
	doc        *dom.Document
	docSurface *viewport.DocumentSurface
	container  *viewport.Container

	// Per-document index state. assigned dies with its document; byBackend
	// and seen carry across recaptures of the same live page; entries
	// survive a restore because strategy paths are plain strings.
	assigned  map[*dom.Node]int
	byBackend map[int64]int
	entries   map[int][]locator.Strategy
	overlays  map[int]geom.Rect
	seen      map[int]bool
	nextIndex int

	showOverlays bool
}

// New builds an engine over the provider.
func New(provider DocumentProvider, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LocateConcurrency <= 0 {
		opts.LocateConcurrency = 4
	}

	oracle := visibility.New(visibility.Options{SampleInset: opts.SampleInset}, logger)
	cache := locator.NewCache()
	return &Engine{
		logger:    logger,
		provider:  provider,
		opts:      opts,
		sessionID: uuid.NewString(),
		oracle:    oracle,
		selector:  candidates.New(oracle, logger),
		cache:     cache,
		gen:       locator.NewGenerator(cache, locator.GeneratorOptions{MaxCombo: opts.MaxCombo}, logger),
		resolver:  locator.NewResolver(logger),
		assigned:  make(map[*dom.Node]int),
		byBackend: make(map[int64]int),
		entries:   make(map[int][]locator.Strategy),
		overlays:  make(map[int]geom.Rect),
		seen:      make(map[int]bool),
	}
}

// SessionID identifies this engine instance in logs and debug output.
func (e *Engine) SessionID() string { return e.sessionID }

// ensureDocument refreshes the current document from the provider, rotating
// the per-document state when the provider handed back a new one.
func (e *Engine) ensureDocument(ctx context.Context) (*dom.Document, error) {
	doc, err := e.provider.Document(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("provider returned no document")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if doc != e.doc {
		if e.doc != nil {
			e.logger.Info("Document changed; resetting per-document state.",
				zap.String("session", e.sessionID), zap.String("url", doc.URL))
		}
		// Backend node ids are stable within one live page but not across
		// navigations, so the carry-over map only survives same-URL swaps.
		// Seen-chunk bookkeeping follows the same rule: a live host recaptures
		// the page after every scroll, and those swaps must not forget which
		// chunks were already extracted.
		if e.doc == nil || e.doc.URL != doc.URL {
			e.byBackend = make(map[int64]int)
			e.seen = make(map[int]bool)
		}
		e.doc = doc
		e.cache.Clear()
		e.assigned = make(map[*dom.Node]int)
		e.overlays = make(map[int]geom.Rect)
		if e.container == nil {
			if sp, ok := e.provider.(SurfaceProvider); ok {
				e.container = viewport.New(sp.Surface(), e.opts.Scroll, e.logger)
			} else {
				e.docSurface = viewport.NewDocumentSurface(doc)
				e.container = viewport.New(e.docSurface, e.opts.Scroll, e.logger)
			}
		} else if e.docSurface != nil {
			e.docSurface.SwapDocument(doc)
		}
	}
	return doc, nil
}

// chunkCount is ceil(content height / viewport height), minimum 1.
func chunkCount(doc *dom.Document) int {
	if doc.Viewport.Height <= 0 {
		return 1
	}
	n := int(math.Ceil(doc.ContentSize.Height / doc.Viewport.Height))
	if n < 1 {
		n = 1
	}
	return n
}

// ChunkCount reports how many viewport-sized chunks the current document
// spans.
func (e *Engine) ChunkCount(ctx context.Context) (int, error) {
	doc, err := e.ensureDocument(ctx)
	if err != nil {
		return 0, err
	}
	return chunkCount(doc), nil
}

// Resolve maps a previously issued selector index back to a live node by
// trying its stored strategies in order. Unknown indices and fully
// exhausted strategy lists both yield ErrNotFound.
func (e *Engine) Resolve(ctx context.Context, index int) (*dom.Node, error) {
	doc, err := e.ensureDocument(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	strategies, ok := e.entries[index]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("selector index %d was never issued: %w", index, locator.ErrNotFound)
	}
	n, err := e.resolver.Resolve(doc, strategies)
	if err != nil {
		return nil, fmt.Errorf("selector index %d: %w", index, err)
	}
	return n, nil
}

// ScrollTo moves the document to the given vertical offset and waits for the
// position to settle.
func (e *Engine) ScrollTo(ctx context.Context, offset float64) error {
	if _, err := e.ensureDocument(ctx); err != nil {
		return err
	}
	return e.container.ScrollTo(ctx, offset)
}

// SetShowOverlays toggles recording of highlight rectangles, in top-level
// coordinates, for every indexed node during extraction.
func (e *Engine) SetShowOverlays(on bool) {
	e.mu.Lock()
	e.showOverlays = on
	if !on {
		e.overlays = make(map[int]geom.Rect)
	}
	e.mu.Unlock()
}

// OverlayRects returns the recorded highlight rectangles keyed by selector
// index.
func (e *Engine) OverlayRects() map[int]geom.Rect {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[int]geom.Rect, len(e.overlays))
	for k, v := range e.overlays {
		out[k] = v
	}
	return out
}

// SnapshotDOM serializes the current document through the provider.
// Providers without snapshot support return an error.
func (e *Engine) SnapshotDOM(ctx context.Context) (string, error) {
	s, ok := e.provider.(Snapshotter)
	if !ok {
		return "", fmt.Errorf("document provider does not support snapshots")
	}
	return s.Snapshot(ctx)
}

// RestoreDOM rebuilds the document from a snapshot. Node pointers handed out
// before the restore are dead; stored selector indices keep resolving
// because their strategies are path strings, not pointers.
func (e *Engine) RestoreDOM(ctx context.Context, snapshot string) error {
	s, ok := e.provider.(Snapshotter)
	if !ok {
		return fmt.Errorf("document provider does not support snapshots")
	}
	if err := s.Restore(ctx, snapshot); err != nil {
		return fmt.Errorf("restoring document: %w", err)
	}
	_, err := e.ensureDocument(ctx)
	return err
}
