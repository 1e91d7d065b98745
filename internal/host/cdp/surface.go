// internal/host/cdp/surface.go
package cdp

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/domdex/internal/geom"
)

// tabSurface measures and scrolls the live tab. Starting a scroll dirties
// the host's capture; measurements read the tab directly so the settle loop
// observes the real smooth-scroll animation.
type tabSurface struct {
	host *Host
}

func (s *tabSurface) Viewport(ctx context.Context) (geom.Size, error) {
	dims, err := s.pair(ctx, `[window.innerWidth, window.innerHeight]`)
	if err != nil {
		return geom.Size{}, fmt.Errorf("reading viewport size: %w", err)
	}
	return geom.Size{Width: dims[0], Height: dims[1]}, nil
}

func (s *tabSurface) ScrollExtent(ctx context.Context) (geom.Size, error) {
	dims, err := s.pair(ctx,
		`[document.scrollingElement.scrollWidth, document.scrollingElement.scrollHeight]`)
	if err != nil {
		return geom.Size{}, fmt.Errorf("reading scroll extent: %w", err)
	}
	return geom.Size{Width: dims[0], Height: dims[1]}, nil
}

func (s *tabSurface) Offset(ctx context.Context) (float64, error) {
	var y float64
	if err := s.run(ctx, chromedp.Evaluate(`window.scrollY`, &y)); err != nil {
		return 0, fmt.Errorf("reading scroll offset: %w", err)
	}
	return y, nil
}

func (s *tabSurface) StartScroll(ctx context.Context, offset float64) error {
	expr := fmt.Sprintf(`window.scrollTo({top: %f, behavior: 'smooth'})`, offset)
	if err := s.run(ctx, chromedp.Evaluate(expr, nil)); err != nil {
		return fmt.Errorf("starting scroll: %w", err)
	}
	s.host.Invalidate()
	return nil
}

// pair evaluates an expression expected to yield a two-element numeric array.
func (s *tabSurface) pair(ctx context.Context, expr string) ([]float64, error) {
	var dims []float64
	if err := s.run(ctx, chromedp.Evaluate(expr, &dims)); err != nil {
		return nil, err
	}
	if len(dims) < 2 {
		return nil, fmt.Errorf("expected two values, got %d", len(dims))
	}
	return dims, nil
}

func (s *tabSurface) run(ctx context.Context, action chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(s.host.tab, action)
}
