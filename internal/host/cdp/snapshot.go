// internal/host/cdp/snapshot.go
package cdp

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/domsnapshot"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domdex/internal/dom"
	"github.com/xkilldash9x/domdex/internal/geom"
)

// capture takes a full DOMSnapshot of the tab plus layout metrics and the
// accessibility tree, and rebuilds them as an in-process document.
func (h *Host) capture(ctx context.Context) (*dom.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var in dom.SnapshotInput
	err := chromedp.Run(h.tab, chromedp.ActionFunc(func(ctx context.Context) error {
		docs, strs, err := domsnapshot.CaptureSnapshot(dom.SnapshotStyles).
			WithIncludePaintOrder(true).
			WithIncludeDOMRects(true).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("capturing DOM snapshot: %w", err)
		}

		_, _, _, cssLayout, _, _, err := page.GetLayoutMetrics().Do(ctx)
		if err != nil {
			return fmt.Errorf("reading layout metrics: %w", err)
		}

		in = dom.SnapshotInput{
			Documents: docs,
			Strings:   strs,
			Viewport: geom.Size{
				Width:  float64(cssLayout.ClientWidth),
				Height: float64(cssLayout.ClientHeight),
			},
			AX: h.fetchAX(ctx),
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	doc, err := dom.FromSnapshot(in)
	if err != nil {
		return nil, fmt.Errorf("rebuilding snapshot: %w", err)
	}
	h.logger.Debug("Captured document.",
		zap.String("url", doc.URL),
		zap.Int("frames", len(in.Documents)))
	return doc, nil
}
