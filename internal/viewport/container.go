// internal/viewport/container.go
//
// A Container abstracts "the scrollable region" the extraction engine works
// against: either the whole document or an arbitrary scrollable element.
// Scrolling is asynchronous in a rendered page (smooth-scroll animations),
// so the container settles by polling the surface's reported offset until it
// stops changing for a quiet period, rather than sleeping a fixed amount.
package viewport

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/domdex/internal/dom"
	"github.com/xkilldash9x/domdex/internal/geom"
)

// Surface is the raw measurement/scroll contract a container wraps. The two
// implementations in this package cover in-process documents; the cdp host
// package provides the live-browser one.
type Surface interface {
	Viewport(ctx context.Context) (geom.Size, error)
	ScrollExtent(ctx context.Context) (geom.Size, error)
	Offset(ctx context.Context) (float64, error)
	StartScroll(ctx context.Context, offset float64) error
}

// Options tunes the settle behavior.
type Options struct {
	// Quiet is how long the offset must hold still to count as settled.
	Quiet time.Duration
	// Timeout bounds the whole settle wait. On expiry the wait resolves
	// rather than failing: forward progress beats strict correctness here.
	Timeout time.Duration
	// PollHz bounds how often the offset is sampled.
	PollHz float64
	// PreScrollDelay is an artificial pause before each scroll, used by the
	// element container variant to accommodate slow-rendering pages.
	PreScrollDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.Quiet <= 0 {
		o.Quiet = 100 * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = 3 * time.Second
	}
	if o.PollHz <= 0 {
		o.PollHz = 100
	}
	return o
}

// Container wraps a Surface with settle-aware scrolling.
type Container struct {
	surface Surface
	opts    Options
	logger  *zap.Logger
	limiter *rate.Limiter
}

// New builds a container over the given surface.
func New(surface Surface, opts Options, logger *zap.Logger) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &Container{
		surface: surface,
		opts:    opts,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(opts.PollHz), 1),
	}
}

// Viewport returns the visible size of the container.
func (c *Container) Viewport(ctx context.Context) (geom.Size, error) {
	return c.surface.Viewport(ctx)
}

// ScrollExtent returns the scrollable content size.
func (c *Container) ScrollExtent(ctx context.Context) (geom.Size, error) {
	return c.surface.ScrollExtent(ctx)
}

// Offset returns the current vertical scroll position.
func (c *Container) Offset(ctx context.Context) (float64, error) {
	return c.surface.Offset(ctx)
}

// ScrollTo moves to the given offset and blocks until the position settles.
// Containers with a zero or negative scrollable extent treat scrolling as a
// no-op rather than an error.
func (c *Container) ScrollTo(ctx context.Context, offset float64) error {
	ext, err := c.surface.ScrollExtent(ctx)
	if err != nil {
		return err
	}
	if ext.Height <= 0 {
		c.logger.Debug("Scroll skipped: container has no scrollable extent.")
		return nil
	}

	if c.opts.PreScrollDelay > 0 {
		select {
		case <-time.After(c.opts.PreScrollDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := c.surface.StartScroll(ctx, offset); err != nil {
		return err
	}
	return c.waitSettled(ctx)
}

// BringIntoView scrolls so the target node's box starts at the top of the
// viewport, then settles. A nil target is a no-op.
func (c *Container) BringIntoView(ctx context.Context, target *dom.Node) error {
	if target == nil {
		return nil
	}
	top := target.Doc.RectInTop(target.Box)
	return c.ScrollTo(ctx, top.Y)
}

// waitSettled polls the offset until it holds still for the quiet period.
// A timeout resolves silently; a transient animation overshoot is preferable
// to aborting the extraction.
func (c *Container) waitSettled(ctx context.Context) error {
	deadline := time.Now().Add(c.opts.Timeout)
	last, err := c.surface.Offset(ctx)
	if err != nil {
		return err
	}
	quietSince := time.Now()

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		cur, err := c.surface.Offset(ctx)
		if err != nil {
			return err
		}
		if cur != last {
			last = cur
			quietSince = time.Now()
		} else if time.Since(quietSince) >= c.opts.Quiet {
			return nil
		}
		if time.Now().After(deadline) {
			c.logger.Debug("Scroll settle timed out; continuing.",
				zap.Float64("offset", cur), zap.Duration("timeout", c.opts.Timeout))
			return nil
		}
	}
}
