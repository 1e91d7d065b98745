// internal/locator/generator_test.go
package locator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/domdex/internal/dom"
)

func newGenerator() *Generator {
	return NewGenerator(NewCache(), GeneratorOptions{}, nil)
}

func kinds(strategies []Strategy) []Kind {
	out := make([]Kind, len(strategies))
	for i, s := range strategies {
		out[i] = s.Kind
	}
	return out
}

func TestLocateProducesRedundantStrategies(t *testing.T) {
	doc := parse(t, `<html><body>
		<button id="go" data-testid="submit">Go</button>
	</body></html>`)
	g := newGenerator()

	button := queryOne(t, doc, `//*[@id='go']`)
	strategies, err := g.Locate(button)
	require.NoError(t, err)

	assert.Equal(t, []Kind{KindStandard, KindID, KindAttribute}, kinds(strategies))
	assert.Equal(t, "/html/body/button", strategies[0].Path)
	assert.Equal(t, `//*[@id='go']`, strategies[1].Path)
	assert.Equal(t, `//button[@data-testid='submit']`, strategies[2].Path)

	// Each strategy must independently re-find the node.
	for _, s := range strategies {
		assert.Equal(t, button, queryOne(t, doc, s.Path))
	}
}

func TestAttributeSearchDistinguishesSiblingsByTestID(t *testing.T) {
	// Structurally identical siblings whose only difference is the test
	// hook: each must get an attribute path anchored on its own data-testid.
	doc := parse(t, `<html><body>
		<button data-testid="save">A</button>
		<button data-testid="cancel">B</button>
	</body></html>`)
	g := newGenerator()

	buttons, err := doc.FindAllXPath(`//button`)
	require.NoError(t, err)
	require.Len(t, buttons, 2)

	for i, want := range []string{"save", "cancel"} {
		strategies, err := g.Locate(buttons[i])
		require.NoError(t, err)

		attr := strategies[len(strategies)-1]
		assert.Equal(t, KindAttribute, attr.Kind)
		assert.Equal(t, fmt.Sprintf(`//button[@data-testid='%s']`, want), attr.Path)
		assert.Equal(t, buttons[i], queryOne(t, doc, attr.Path),
			"the path resolves to its own node and no sibling")
	}
}

func TestAttributeSearchGrowsTheCombination(t *testing.T) {
	// data-testid alone is ambiguous; adding name disambiguates.
	doc := parse(t, `<html><body>
		<button data-testid="row" name="first">A</button>
		<button data-testid="row" name="second">B</button>
	</body></html>`)
	g := newGenerator()

	buttons, err := doc.FindAllXPath(`//button`)
	require.NoError(t, err)
	require.Len(t, buttons, 2)

	strategies, err := g.Locate(buttons[1])
	require.NoError(t, err)

	attr := strategies[len(strategies)-1]
	assert.Equal(t, KindAttribute, attr.Kind)
	assert.Equal(t, `//button[@name='second']`, attr.Path,
		"a unique single attribute beats a larger combination")
}

func TestAttributeSearchFallsBackToIndexedPath(t *testing.T) {
	// Identical twins: no attribute combination can tell them apart.
	doc := parse(t, `<html><body><div id="panel">
		<button data-testid="row">A</button>
		<button data-testid="row">B</button>
	</div></body></html>`)
	g := newGenerator()

	buttons, err := doc.FindAllXPath(`//button`)
	require.NoError(t, err)
	require.Len(t, buttons, 2)

	strategies, err := g.Locate(buttons[1])
	require.NoError(t, err)

	attr := strategies[len(strategies)-1]
	assert.Equal(t, KindAttribute, attr.Kind)
	assert.Equal(t, `//*[@id='panel']/button[2]`, attr.Path)
	assert.Equal(t, buttons[1], queryOne(t, doc, attr.Path))
}

func TestAttributeSearchSkipsQuotedValues(t *testing.T) {
	doc := parse(t, `<html><body>
		<button data-testid="it's broken">A</button>
	</body></html>`)
	g := newGenerator()

	button := queryOne(t, doc, `//button`)
	strategies, err := g.Locate(button)
	require.NoError(t, err)

	attr := strategies[len(strategies)-1]
	assert.NotContains(t, attr.Path, "data-testid",
		"values containing quotes cannot be embedded in the expression")
}

func TestLocateTextNode(t *testing.T) {
	doc := parse(t, `<html><body><div><span>a</span>loose</div></body></html>`)
	g := newGenerator()

	texts, err := doc.FindAllXPath(`/html/body/div/text()`)
	require.NoError(t, err)
	require.Len(t, texts, 1)

	strategies, err := g.Locate(texts[0])
	require.NoError(t, err)
	require.Len(t, strategies, 1, "text nodes only get the positional path")
	assert.Equal(t, KindStandard, strategies[0].Kind)
}

func TestLocateInsideFrameBuildsChains(t *testing.T) {
	doc := parse(t, `<html><body>
		<p>intro</p>
		<iframe srcdoc="<html><body><button id='inner' data-testid='go'>Go</button></body></html>"></iframe>
	</body></html>`)
	g := newGenerator()

	frame := queryOne(t, doc, `//iframe`)
	require.NotNil(t, frame.ContentDoc)
	inner := queryOne(t, frame.ContentDoc, `//*[@id='inner']`)

	strategies, err := g.Locate(inner)
	require.NoError(t, err)
	require.NotEmpty(t, strategies)

	for _, s := range strategies {
		assert.Equal(t, KindFrameChain, s.Kind, "chained strategies all report the chain kind")
		assert.True(t, s.IsFrameChain(), "every strategy crosses the frame")
		assert.Equal(t, "/html/body/iframe", s.OuterPath)
	}

	// The chains must resolve end to end.
	r := NewResolver(nil)
	got, err := r.Resolve(doc, strategies)
	require.NoError(t, err)
	assert.Equal(t, inner, got)
}

func TestLocateDetachedNode(t *testing.T) {
	g := newGenerator()

	_, err := g.Locate(nil)
	assert.ErrorIs(t, err, ErrDetachedNode)

	_, err = g.Locate(&dom.Node{})
	assert.ErrorIs(t, err, ErrDetachedNode)

	doc := parse(t, `<html><body><button id="go">Go</button></body></html>`)
	button := queryOne(t, doc, `//*[@id='go']`)
	button.Parent = nil
	_, err = g.Locate(button)
	assert.ErrorIs(t, err, ErrDetachedNode)
}

func TestLocateMemoizes(t *testing.T) {
	doc := parse(t, `<html><body><button id="go">Go</button></body></html>`)
	cache := NewCache()
	g := NewGenerator(cache, GeneratorOptions{}, nil)

	button := queryOne(t, doc, `//*[@id='go']`)
	first, err := g.Locate(button)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	second, err := g.Locate(button)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cache.Clear()
	assert.Zero(t, cache.Len())
}
