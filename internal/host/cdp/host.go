// internal/host/cdp/host.go
//
// Host adapts a live Chrome tab, driven over the DevTools protocol, to the
// engine's DocumentProvider contract. The rendered page is captured as a
// DOMSnapshot and rebuilt as an in-process document; scrolling goes to the
// real tab, which dirties the capture so the next Document call recaptures.
package cdp

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domdex/internal/dom"
	"github.com/xkilldash9x/domdex/internal/viewport"
)

// Host drives one tab. The tab context must come from chromedp.NewContext
// and stays owned by the caller; the host never cancels it.
type Host struct {
	logger *zap.Logger
	tab    context.Context

	mu    sync.Mutex
	doc   *dom.Document
	dirty bool
}

// New wraps an existing chromedp tab context.
func New(tab context.Context, logger *zap.Logger) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{logger: logger, tab: tab, dirty: true}
}

// Document returns the current captured document, recapturing when the tab
// has been navigated or scrolled since the last capture.
func (h *Host) Document(ctx context.Context) (*dom.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	if h.doc != nil && !h.dirty {
		doc := h.doc
		h.mu.Unlock()
		return doc, nil
	}
	h.mu.Unlock()

	doc, err := h.capture(ctx)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.doc = doc
	h.dirty = false
	h.mu.Unlock()
	return doc, nil
}

// Invalidate forces the next Document call to recapture.
func (h *Host) Invalidate() {
	h.mu.Lock()
	h.dirty = true
	h.mu.Unlock()
}

// Navigate loads a URL in the tab and waits for the body to be ready.
func (h *Host) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := chromedp.Run(h.tab,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	h.Invalidate()
	h.logger.Info("Navigated tab.", zap.String("url", url))
	return nil
}

// Surface returns the live scroll surface for this tab.
func (h *Host) Surface() viewport.Surface { return &tabSurface{host: h} }

// Snapshot serializes the current page markup.
func (h *Host) Snapshot(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var markup string
	err := chromedp.Run(h.tab,
		chromedp.Evaluate(`document.documentElement.outerHTML`, &markup),
	)
	if err != nil {
		return "", fmt.Errorf("serializing document: %w", err)
	}
	return markup, nil
}

// Restore replaces the main frame's content with a previously captured
// snapshot.
func (h *Host) Restore(ctx context.Context, snapshot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := chromedp.Run(h.tab, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return fmt.Errorf("resolving main frame: %w", err)
		}
		return page.SetDocumentContent(tree.Frame.ID, snapshot).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("restoring document: %w", err)
	}
	h.Invalidate()
	return nil
}
