// internal/engine/extract.go
package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/domdex/internal/candidates"
	"github.com/xkilldash9x/domdex/internal/dom"
	"github.com/xkilldash9x/domdex/internal/locator"
)

// summaryAttrs is the attribute subset rendered into the text summary, in
// output order. Values are truncated so one verbose attribute cannot blow
// up a line.
var summaryAttrs = []string{
	"id", "data-testid", "role", "aria-label", "name",
	"placeholder", "title", "alt", "type", "href",
}

const maxRenderedValue = 64

// SelectorEntry is one indexed node in a chunk: its issued index, why it was
// selected, the rendered summary line, and the redundant strategies that
// re-find it.
type SelectorEntry struct {
	Index      int                       `json:"index"`
	Class      candidates.Classification `json:"class"`
	Line       string                    `json:"line"`
	Strategies []locator.Strategy        `json:"strategies"`
}

// Chunk is the result of extracting one viewport-sized slice of the
// document.
type Chunk struct {
	// Index is this chunk's position; Total is the document's chunk count.
	Index int `json:"index"`
	Total int `json:"total"`
	// Summary is the newline-joined rendering of every entry.
	Summary string          `json:"summary"`
	Entries []SelectorEntry `json:"entries"`
	// Dropped counts candidates excluded because no location strategy could
	// be computed for them.
	Dropped int `json:"dropped,omitempty"`
}

// ExtractAt scrolls to the given chunk (when scroll is true), waits for the
// position to settle, and indexes everything visible. Indices are issued in
// document order from a per-engine counter, and a node keeps its index
// across repeated extractions.
func (e *Engine) ExtractAt(ctx context.Context, chunk int, scroll bool) (*Chunk, error) {
	doc, err := e.ensureDocument(ctx)
	if err != nil {
		return nil, err
	}
	total := chunkCount(doc)
	if chunk < 0 || chunk >= total {
		return nil, fmt.Errorf("chunk %d out of range [0, %d)", chunk, total)
	}

	if scroll {
		if err := e.container.ScrollTo(ctx, float64(chunk)*doc.Viewport.Height); err != nil {
			return nil, fmt.Errorf("scrolling to chunk %d: %w", chunk, err)
		}
		// A live provider recaptures after scrolling; re-ask so extraction
		// sees the post-scroll document.
		if doc, err = e.ensureDocument(ctx); err != nil {
			return nil, err
		}
	}

	result := e.indexVisible(ctx, doc.Body)
	result.Index = chunk
	result.Total = total

	e.mu.Lock()
	e.seen[chunk] = true
	e.mu.Unlock()

	e.logger.Debug("Extracted chunk.",
		zap.String("session", e.sessionID),
		zap.Int("chunk", chunk),
		zap.Int("entries", len(result.Entries)),
		zap.Int("dropped", result.Dropped))
	return result, nil
}

// indexVisible runs the select-locate-assign pipeline over root and returns
// the resulting chunk body. Index and Total are left for the caller.
func (e *Engine) indexVisible(ctx context.Context, root *dom.Node) *Chunk {
	cands := e.selector.Select(root)
	located, dropped := e.locateAll(ctx, cands)

	result := &Chunk{Dropped: dropped}
	var lines []string

	e.mu.Lock()
	for i, c := range cands {
		if located[i] == nil {
			continue
		}
		idx, ok := e.assigned[c.Node]
		if !ok && c.Node.BackendID != 0 {
			idx, ok = e.byBackend[c.Node.BackendID]
		}
		if !ok {
			idx = e.nextIndex
			e.nextIndex++
		}
		e.assigned[c.Node] = idx
		if c.Node.BackendID != 0 {
			e.byBackend[c.Node.BackendID] = idx
		}
		e.entries[idx] = located[i]
		if e.showOverlays {
			e.overlays[idx] = c.Node.Doc.RectInTop(c.Node.Box)
		}
		entry := SelectorEntry{
			Index:      idx,
			Class:      c.Class,
			Line:       renderLine(idx, c),
			Strategies: located[i],
		}
		result.Entries = append(result.Entries, entry)
		lines = append(lines, entry.Line)
	}
	e.mu.Unlock()

	result.Summary = strings.Join(lines, "\n")
	return result
}

// CollectChunks is the general range primitive: it walks offsets from start
// to end in steps of chunkSize, scrolling and settling before indexing at
// each stop. end is clamped to the scrollable extent; a non-positive
// chunkSize means one viewport height. root narrows candidate selection to a
// subtree, defaulting to the document body. With restoreScroll the document
// ends back at offset 0, otherwise it stays wherever the walk stopped.
func (e *Engine) CollectChunks(ctx context.Context, start, end, chunkSize float64, restoreScroll bool, root *dom.Node) ([]*Chunk, error) {
	doc, err := e.ensureDocument(ctx)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = doc.Viewport.Height
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	ext, err := e.container.ScrollExtent(ctx)
	if err != nil {
		return nil, err
	}
	if end > ext.Height {
		end = ext.Height
	}

	var out []*Chunk
	for offset := start; offset <= end; offset += chunkSize {
		if err := e.container.ScrollTo(ctx, offset); err != nil {
			return out, fmt.Errorf("scrolling to offset %.0f: %w", offset, err)
		}
		if doc, err = e.ensureDocument(ctx); err != nil {
			return out, err
		}
		at := root
		if at == nil {
			at = doc.Body
		}
		c := e.indexVisible(ctx, at)
		c.Index = len(out)
		out = append(out, c)
	}
	for _, c := range out {
		c.Total = len(out)
	}

	if restoreScroll {
		if err := e.container.ScrollTo(ctx, 0); err != nil {
			return out, err
		}
	}
	return out, nil
}

// ExtractAll walks every chunk from the top of the document and returns them
// in order, leaving the document scrolled back to the top.
func (e *Engine) ExtractAll(ctx context.Context) ([]*Chunk, error) {
	doc, err := e.ensureDocument(ctx)
	if err != nil {
		return nil, err
	}
	total := chunkCount(doc)
	out := make([]*Chunk, 0, total)
	for i := 0; i < total; i++ {
		c, err := e.ExtractAt(ctx, i, true)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	if err := e.container.ScrollTo(ctx, 0); err != nil {
		return out, err
	}
	return out, nil
}

// ExtractChunk extracts the unseen chunk nearest the current scroll
// position. When every chunk has been seen it re-extracts the current one,
// which is idempotent.
func (e *Engine) ExtractChunk(ctx context.Context) (*Chunk, error) {
	doc, err := e.ensureDocument(ctx)
	if err != nil {
		return nil, err
	}
	offset, err := e.container.Offset(ctx)
	if err != nil {
		return nil, err
	}

	total := chunkCount(doc)
	current := currentChunk(doc, offset, total)

	target := current
	e.mu.Lock()
	if e.seen[current] {
		best, bestDist := -1, math.MaxInt
		for i := 0; i < total; i++ {
			if e.seen[i] {
				continue
			}
			d := i - current
			if d < 0 {
				d = -d
			}
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		if best >= 0 {
			target = best
		}
	}
	e.mu.Unlock()

	return e.ExtractAt(ctx, target, true)
}

// currentChunk maps a scroll offset back to the chunk whose scroll target it
// sits closest to. Targets clamp to the scrollable extent the same way the
// container clamps a scroll, so the last chunk of a document shorter than
// total*viewport still claims the clamped offset. Ties go to the lower chunk.
func currentChunk(doc *dom.Document, offset float64, total int) int {
	if doc.Viewport.Height <= 0 {
		return 0
	}
	maxScroll := doc.ContentSize.Height - doc.Viewport.Height
	if maxScroll < 0 {
		maxScroll = 0
	}
	current, best := 0, math.MaxFloat64
	for i := 0; i < total; i++ {
		target := math.Min(float64(i)*doc.Viewport.Height, maxScroll)
		if d := math.Abs(offset - target); d < best {
			current, best = i, d
		}
	}
	return current
}

// locateAll computes strategies for every candidate concurrently. The result
// slice is aligned with cands; a nil entry means the candidate was dropped.
func (e *Engine) locateAll(ctx context.Context, cands []candidates.Candidate) ([][]locator.Strategy, int) {
	located := make([][]locator.Strategy, len(cands))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.LocateConcurrency)
	for i, c := range cands {
		g.Go(func() error {
			s, err := e.gen.Locate(c.Node)
			if err != nil {
				e.logger.Warn("Dropping candidate: no location strategy.",
					zap.String("tag", c.Node.Tag), zap.Error(err))
				return nil
			}
			located[i] = s
			return nil
		})
	}
	// Workers never return errors; they record drops instead.
	_ = g.Wait()

	dropped := 0
	for _, s := range located {
		if s == nil {
			dropped++
		}
	}
	return located, dropped
}

// renderLine formats one candidate for the text summary. Elements render as
// idx:<tag attrs>text</tag>; bare text nodes as idx:text.
func renderLine(idx int, c candidates.Candidate) string {
	if c.Node.Kind == dom.TextKind {
		return fmt.Sprintf("%d:%s", idx, truncate(c.Node.Text, maxRenderedValue))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d:<%s", idx, c.Node.Tag)
	for _, name := range summaryAttrs {
		if v, ok := c.Node.Attr(name); ok && v != "" {
			fmt.Fprintf(&b, " %s=%q", name, truncate(v, maxRenderedValue))
		}
	}
	b.WriteString(">")
	b.WriteString(truncate(c.Node.InnerText(), maxRenderedValue))
	fmt.Fprintf(&b, "</%s>", c.Node.Tag)
	return b.String()
}

// truncate shortens s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
