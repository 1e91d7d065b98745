// internal/dom/snapshot_test.go
package dom

import (
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/domsnapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/domdex/internal/geom"
)

// snapshotBuilder assembles the flattened capture arrays the way the
// protocol delivers them, interning strings into the shared table.
type snapshotBuilder struct {
	strings []string
	interned map[string]int64
}

func newSnapshotBuilder() *snapshotBuilder {
	return &snapshotBuilder{interned: make(map[string]int64)}
}

func (b *snapshotBuilder) intern(s string) domsnapshot.StringIndex {
	if idx, ok := b.interned[s]; ok {
		return domsnapshot.StringIndex(idx)
	}
	idx := int64(len(b.strings))
	b.strings = append(b.strings, s)
	b.interned[s] = idx
	return domsnapshot.StringIndex(idx)
}

// row interns a flat list into the []int64 form the protocol uses for
// attribute pairs and style rows.
func (b *snapshotBuilder) row(items ...string) domsnapshot.ArrayOfStrings {
	out := make(domsnapshot.ArrayOfStrings, 0, len(items))
	for _, s := range items {
		out = append(out, int64(b.intern(s)))
	}
	return out
}

func buildTwoFrameSnapshot(b *snapshotBuilder) []*domsnapshot.DocumentSnapshot {
	main := &domsnapshot.DocumentSnapshot{
		DocumentURL:   b.intern("https://app.example/"),
		ContentWidth:  800,
		ContentHeight: 1200,
		Nodes: &domsnapshot.NodeTreeSnapshot{
			ParentIndex:   []int64{-1, 0, 1, 2, 3, 2, 2},
			NodeType:      []int64{9, 1, 1, 1, 3, 1, 1},
			NodeName:      []domsnapshot.StringIndex{b.intern("#document"), b.intern("HTML"), b.intern("BODY"), b.intern("BUTTON"), b.intern("#text"), b.intern("IFRAME"), b.intern("IFRAME")},
			NodeValue:     []domsnapshot.StringIndex{b.intern(""), b.intern(""), b.intern(""), b.intern(""), b.intern("Launch"), b.intern(""), b.intern("")},
			BackendNodeID: []cdp.BackendNodeID{1, 2, 3, 101, 4, 102, 103},
			Attributes: []domsnapshot.ArrayOfStrings{
				nil, nil, nil,
				b.row("id", "go"),
				nil,
				b.row("src", "https://app.example/frame"),
				b.row("src", "https://ads.example/slot"),
			},
			ContentDocumentIndex: &domsnapshot.RareIntegerData{
				Index: []int64{5}, Value: []int64{1},
			},
		},
		Layout: &domsnapshot.LayoutTreeSnapshot{
			NodeIndex: []int64{1, 2, 3, 5, 6},
			Bounds: []domsnapshot.Rectangle{
				{0, 0, 800, 1200},
				{0, 0, 800, 1200},
				{10, 20, 200, 40},
				{0, 100, 400, 300},
				{0, 420, 300, 250},
			},
			PaintOrders: []int64{1, 2, 3, 4, 5},
		},
	}

	frame := &domsnapshot.DocumentSnapshot{
		DocumentURL:   b.intern("https://app.example/frame"),
		ContentWidth:  400,
		ContentHeight: 300,
		Nodes: &domsnapshot.NodeTreeSnapshot{
			ParentIndex:   []int64{-1, 0, 1, 2, 3},
			NodeType:      []int64{9, 1, 1, 1, 3},
			NodeName:      []domsnapshot.StringIndex{b.intern("#document"), b.intern("HTML"), b.intern("BODY"), b.intern("A"), b.intern("#text")},
			NodeValue:     []domsnapshot.StringIndex{b.intern(""), b.intern(""), b.intern(""), b.intern(""), b.intern("Inner")},
			BackendNodeID: []cdp.BackendNodeID{5, 6, 7, 201, 8},
			Attributes: []domsnapshot.ArrayOfStrings{
				nil, nil, nil, b.row("href", "/x"), nil,
			},
		},
		Layout: &domsnapshot.LayoutTreeSnapshot{
			NodeIndex: []int64{1, 2, 3},
			Bounds: []domsnapshot.Rectangle{
				{0, 0, 400, 300},
				{0, 0, 400, 300},
				{5, 10, 100, 18},
			},
			PaintOrders: []int64{1, 2, 3},
		},
	}

	return []*domsnapshot.DocumentSnapshot{main, frame}
}

func TestFromSnapshotRebuildsFrameTree(t *testing.T) {
	b := newSnapshotBuilder()
	docs := buildTwoFrameSnapshot(b)

	top, err := FromSnapshot(SnapshotInput{
		Documents: docs,
		Strings:   b.strings,
		Viewport:  geom.Size{Width: 800, Height: 600},
		AX:        map[int64]*AXInfo{101: {Role: "button", Name: "Launch"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://app.example/", top.URL)
	assert.Equal(t, geom.Size{Width: 800, Height: 600}, top.Viewport)
	assert.Equal(t, geom.Size{Width: 800, Height: 1200}, top.ContentSize)
	require.NotNil(t, top.Body)

	button := mustQueryOne(t, top, `//*[@id='go']`)
	assert.Equal(t, geom.Rect{X: 10, Y: 20, Width: 200, Height: 40}, button.Box)
	assert.Equal(t, int64(101), button.BackendID)
	require.NotNil(t, button.AX)
	assert.Equal(t, "button", button.AX.Role)
	assert.Equal(t, "Launch", button.InnerText())

	frames, err := top.FindAllXPath(`//iframe`)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	inProcess := frames[0]
	require.NotNil(t, inProcess.ContentDoc)
	assert.False(t, inProcess.CrossOrigin)

	child := inProcess.ContentDoc
	assert.Equal(t, top, child.Parent)
	assert.Equal(t, inProcess, child.FrameElement)
	assert.Equal(t, geom.Size{Width: 400, Height: 300}, child.Viewport)

	link := mustQueryOne(t, child, `//a`)
	topRect := child.RectInTop(link.Box)
	assert.Equal(t, 110.0, topRect.Y, "frame offset carries into top coordinates")

	outOfProcess := frames[1]
	assert.Nil(t, outOfProcess.ContentDoc)
	assert.True(t, outOfProcess.CrossOrigin, "uncaptured frames are cross-origin")
}

func TestFromSnapshotAppliesComputedStyles(t *testing.T) {
	b := newSnapshotBuilder()
	ds := &domsnapshot.DocumentSnapshot{
		DocumentURL:   b.intern("https://app.example/"),
		ContentWidth:  800,
		ContentHeight: 600,
		Nodes: &domsnapshot.NodeTreeSnapshot{
			ParentIndex:   []int64{-1, 0, 1, 2},
			NodeType:      []int64{9, 1, 1, 1},
			NodeName:      []domsnapshot.StringIndex{b.intern("#document"), b.intern("HTML"), b.intern("BODY"), b.intern("DIV")},
			NodeValue:     []domsnapshot.StringIndex{b.intern(""), b.intern(""), b.intern(""), b.intern("")},
			BackendNodeID: []cdp.BackendNodeID{1, 2, 3, 4},
			Attributes:    []domsnapshot.ArrayOfStrings{nil, nil, nil, nil},
		},
		Layout: &domsnapshot.LayoutTreeSnapshot{
			NodeIndex: []int64{1, 2, 3},
			Bounds: []domsnapshot.Rectangle{
				{0, 0, 800, 600},
				{0, 0, 800, 600},
				{0, 0, 100, 100},
			},
			PaintOrders: []int64{1, 2, 3},
			Styles: []domsnapshot.ArrayOfStrings{
				b.row("block", "visible", "1", "static", "auto"),
				b.row("block", "visible", "1", "static", "auto"),
				b.row("block", "hidden", "0.25", "absolute", "7"),
			},
		},
	}

	top, err := FromSnapshot(SnapshotInput{
		Documents: []*domsnapshot.DocumentSnapshot{ds},
		Strings:   b.strings,
		Viewport:  geom.Size{Width: 800, Height: 600},
	})
	require.NoError(t, err)

	div := mustQueryOne(t, top, `//div`)
	assert.Equal(t, "hidden", div.Style.Visibility)
	assert.Equal(t, 0.25, div.Style.Opacity)
	assert.Equal(t, "absolute", div.Style.Position)
	assert.Equal(t, 7, div.Style.ZIndex)
	assert.Empty(t, div.Style.Display, "display other than none is not recorded")
}
