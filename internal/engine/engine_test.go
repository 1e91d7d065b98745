// internal/engine/engine_test.go
package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/domdex/internal/dom"
	"github.com/xkilldash9x/domdex/internal/geom"
	"github.com/xkilldash9x/domdex/internal/locator"
	"github.com/xkilldash9x/domdex/internal/viewport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// twoChunkMarkup lays out at 736px against the 600px default viewport, so the
// document spans exactly two chunks with one button in each.
const twoChunkMarkup = `<html><body>
	<button id="top">Top</button>
	<div style="height: 700px">spacer</div>
	<button id="bottom">Bottom</button>
</body></html>`

func testOptions() Options {
	return Options{
		Scroll: viewport.Options{
			Quiet:   10 * time.Millisecond,
			Timeout: time.Second,
			PollHz:  1000,
		},
	}
}

func newTestEngine(t *testing.T, markup string) (*Engine, *FixtureProvider) {
	t.Helper()
	provider, err := NewFixtureProvider(markup, dom.FixtureOptions{})
	require.NoError(t, err)
	return New(provider, testOptions(), nil), provider
}

func entryLines(c *Chunk) []string {
	out := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Line
	}
	return out
}

func TestChunkCount(t *testing.T) {
	eng, _ := newTestEngine(t, `<html><body><button>One</button></body></html>`)
	n, err := eng.ChunkCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	eng, _ = newTestEngine(t, twoChunkMarkup)
	n, err = eng.ChunkCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExtractAllCoversTheDocument(t *testing.T) {
	eng, _ := newTestEngine(t, twoChunkMarkup)
	ctx := context.Background()

	chunks, err := eng.ExtractAll(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Contains(t, chunks[0].Summary, `<button id="top">Top</button>`)
	assert.NotContains(t, chunks[0].Summary, "Bottom", "below the fold in chunk 0")
	assert.Contains(t, chunks[1].Summary, `<button id="bottom">Bottom</button>`)

	// Indices are issued contiguously in encounter order across chunks.
	seen := make(map[int]bool)
	maxIdx := -1
	for _, c := range chunks {
		assert.Equal(t, 2, c.Total)
		assert.Zero(t, c.Dropped)
		for _, e := range c.Entries {
			seen[e.Index] = true
			if e.Index > maxIdx {
				maxIdx = e.Index
			}
			require.NotEmpty(t, e.Strategies)
		}
	}
	for i := 0; i <= maxIdx; i++ {
		assert.True(t, seen[i], "index %d was skipped", i)
	}

	// ExtractAll leaves the document back at the top.
	doc, err := eng.ensureDocument(ctx)
	require.NoError(t, err)
	_, y := doc.ScrollOffset()
	assert.Zero(t, y)
}

func TestRepeatedExtractionKeepsIndices(t *testing.T) {
	eng, _ := newTestEngine(t, twoChunkMarkup)
	ctx := context.Background()

	first, err := eng.ExtractAt(ctx, 0, true)
	require.NoError(t, err)
	second, err := eng.ExtractAt(ctx, 0, true)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Entries, second.Entries); diff != "" {
		t.Errorf("re-extracting the same chunk changed its entries (-first +second):\n%s", diff)
	}
}

func TestResolveRoundTrip(t *testing.T) {
	eng, _ := newTestEngine(t, twoChunkMarkup)
	ctx := context.Background()

	chunks, err := eng.ExtractAll(ctx)
	require.NoError(t, err)

	for _, c := range chunks {
		for _, entry := range c.Entries {
			n, err := eng.Resolve(ctx, entry.Index)
			require.NoError(t, err, "index %d from %q", entry.Index, entry.Line)
			require.NotNil(t, n)
		}
	}

	top, err := eng.Resolve(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "top", top.ID(), "index 0 is the first candidate in document order")

	_, err = eng.Resolve(ctx, 999)
	assert.ErrorIs(t, err, locator.ErrNotFound)
}

func TestExtractChunkVisitsNearestUnseen(t *testing.T) {
	eng, _ := newTestEngine(t, twoChunkMarkup)
	ctx := context.Background()

	first, err := eng.ExtractChunk(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Index, "starts at the current position")

	second, err := eng.ExtractChunk(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Index, "moves to the nearest unseen chunk")

	// Every chunk seen: re-extract where we are, idempotently.
	third, err := eng.ExtractChunk(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Index)
	assert.Equal(t, entryLines(second), entryLines(third))
}

// recaptureProvider re-parses its markup on every request, the way a live
// host recaptures the page after each scroll. The scroll offset carries into
// the fresh document, as a DOMSnapshot capture would report it.
type recaptureProvider struct {
	mu   sync.Mutex
	src  string
	last *dom.Document
}

func (p *recaptureProvider) Document(context.Context) (*dom.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, err := dom.ParseFixture(p.src, dom.FixtureOptions{})
	if err != nil {
		return nil, err
	}
	if p.last != nil {
		x, y := p.last.ScrollOffset()
		doc.SetScroll(x, y)
	}
	p.last = doc
	return doc, nil
}

func TestExtractChunkSurvivesRecapture(t *testing.T) {
	provider := &recaptureProvider{src: twoChunkMarkup}
	eng := New(provider, testOptions(), nil)
	ctx := context.Background()

	first, err := eng.ExtractChunk(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Index)

	second, err := eng.ExtractChunk(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Index, "seen chunks survive a same-page document swap")
	assert.Contains(t, second.Summary, "Bottom")
}

func TestOverlayRecording(t *testing.T) {
	eng, _ := newTestEngine(t, twoChunkMarkup)
	ctx := context.Background()

	eng.SetShowOverlays(true)
	chunk, err := eng.ExtractAt(ctx, 0, true)
	require.NoError(t, err)

	overlays := eng.OverlayRects()
	require.NotEmpty(t, overlays)
	for _, entry := range chunk.Entries {
		assert.Contains(t, overlays, entry.Index)
	}
	assert.Equal(t, geom.Rect{X: 0, Y: 0, Width: 800, Height: 18}, overlays[0])

	eng.SetShowOverlays(false)
	assert.Empty(t, eng.OverlayRects(), "disabling discards recorded rects")
}

func TestSnapshotRestoreKeepsEntriesResolving(t *testing.T) {
	eng, _ := newTestEngine(t, twoChunkMarkup)
	ctx := context.Background()

	_, err := eng.ExtractAll(ctx)
	require.NoError(t, err)

	snap, err := eng.SnapshotDOM(ctx)
	require.NoError(t, err)
	require.NoError(t, eng.RestoreDOM(ctx, snap))

	// The restored document is a fresh tree; stored strategies are path
	// strings and must keep resolving against it.
	top, err := eng.Resolve(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "top", top.ID())
}

func TestNavigationResetsPerDocumentState(t *testing.T) {
	eng, provider := newTestEngine(t, twoChunkMarkup)
	ctx := context.Background()

	first, err := eng.ExtractAt(ctx, 0, true)
	require.NoError(t, err)
	require.NotEmpty(t, first.Entries)

	require.NoError(t, provider.Navigate(
		`<html><body><a id="fresh" href="/n">New page</a></body></html>`,
		dom.FixtureOptions{URL: "https://other.example/"}))

	chunk, err := eng.ExtractAt(ctx, 0, false)
	require.NoError(t, err)
	require.Len(t, chunk.Entries, 1)
	assert.Contains(t, chunk.Entries[0].Line, "fresh")
	assert.Greater(t, chunk.Entries[0].Index, first.Entries[len(first.Entries)-1].Index,
		"the index counter never rewinds")
}

func TestCollectChunksWalksTheRange(t *testing.T) {
	eng, _ := newTestEngine(t, twoChunkMarkup)
	ctx := context.Background()

	// end clamps to the 736px extent, so the walk stops after two steps.
	chunks, err := eng.CollectChunks(ctx, 0, 5000, 600, false, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Summary, "Top")
	assert.Contains(t, chunks[1].Summary, "Bottom")

	// Without restoreScroll the document stays where the walk stopped.
	doc, err := eng.ensureDocument(ctx)
	require.NoError(t, err)
	_, y := doc.ScrollOffset()
	assert.Equal(t, 136.0, y, "the last offset clamps to extent minus viewport")

	chunks, err = eng.CollectChunks(ctx, 0, 5000, 600, true, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	_, y = doc.ScrollOffset()
	assert.Zero(t, y, "restoreScroll returns to the top")
}

func TestCollectChunksScopedToSubtree(t *testing.T) {
	eng, _ := newTestEngine(t, `<html><body>
		<div id="nav"><a href="/home">Home</a></div>
		<div id="main"><button id="act">Act</button></div>
	</body></html>`)
	ctx := context.Background()

	doc, err := eng.ensureDocument(ctx)
	require.NoError(t, err)
	mains, err := doc.FindAllXPath(`//*[@id='main']`)
	require.NoError(t, err)
	require.Len(t, mains, 1)

	chunks, err := eng.CollectChunks(ctx, 0, 0, 600, true, mains[0])
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Summary, "Act")
	assert.NotContains(t, chunks[0].Summary, "Home", "candidates outside the root are ignored")
}

func TestExtractAtRejectsOutOfRange(t *testing.T) {
	eng, _ := newTestEngine(t, twoChunkMarkup)
	ctx := context.Background()

	_, err := eng.ExtractAt(ctx, -1, false)
	assert.Error(t, err)
	_, err = eng.ExtractAt(ctx, 2, false)
	assert.Error(t, err)
}

func TestRenderLineTruncatesLongValues(t *testing.T) {
	long := ""
	for i := 0; i < 40; i++ {
		long += "ab"
	}
	markup := fmt.Sprintf(
		`<html><body><button aria-label="%s">Go</button></body></html>`, long)
	eng, _ := newTestEngine(t, markup)

	chunk, err := eng.ExtractAt(context.Background(), 0, false)
	require.NoError(t, err)
	require.NotEmpty(t, chunk.Entries)
	assert.Contains(t, chunk.Entries[0].Line, long[:64]+"...")
	assert.NotContains(t, chunk.Entries[0].Line, long)
}

func TestSessionIDsAreUnique(t *testing.T) {
	a, _ := newTestEngine(t, twoChunkMarkup)
	b, _ := newTestEngine(t, twoChunkMarkup)
	assert.NotEqual(t, a.SessionID(), b.SessionID())
	assert.NotEmpty(t, a.SessionID())
}
