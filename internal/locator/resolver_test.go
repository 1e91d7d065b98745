// internal/locator/resolver_test.go
package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFallsThroughToLaterStrategies(t *testing.T) {
	doc := parse(t, `<html><body>
		<button>A</button>
		<button id="go">B</button>
	</body></html>`)
	r := NewResolver(nil)

	want := queryOne(t, doc, `//*[@id='go']`)
	strategies := []Strategy{
		{Kind: KindStandard, Path: `//*[@id='stale']`}, // nothing matches
		{Kind: KindStandard, Path: `//button`},         // two match
		{Kind: KindID, Path: `//*[@id='go']`},
	}

	got, err := r.Resolve(doc, strategies)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveExhaustedIsNotFound(t *testing.T) {
	doc := parse(t, `<html><body><p>nothing here</p></body></html>`)
	r := NewResolver(nil)

	_, err := r.Resolve(doc, []Strategy{
		{Kind: KindStandard, Path: `//button`},
		{Kind: KindID, Path: `//*[@id='gone']`},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Resolve(doc, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Resolve(nil, []Strategy{{Path: `//button`}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveFrameChain(t *testing.T) {
	doc := parse(t, `<html><body>
		<iframe srcdoc="<html><body><a id='inner' href='/x'>In</a></body></html>"></iframe>
	</body></html>`)
	r := NewResolver(nil)

	frame := queryOne(t, doc, `//iframe`)
	require.NotNil(t, frame.ContentDoc)
	want := queryOne(t, frame.ContentDoc, `//*[@id='inner']`)

	got, err := r.Resolve(doc, []Strategy{{
		Kind:      KindFrameChain,
		OuterPath: `/html/body/iframe`,
		Path:      `//*[@id='inner']`,
	}})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveSkipsInaccessibleFrames(t *testing.T) {
	doc := parse(t, `<html><body>
		<iframe src="https://elsewhere.example/embed"></iframe>
		<button id="local">Here</button>
	</body></html>`)
	r := NewResolver(nil)

	want := queryOne(t, doc, `//*[@id='local']`)
	got, err := r.Resolve(doc, []Strategy{
		{Kind: KindFrameChain, OuterPath: `/html/body/iframe`, Path: `//button`},
		{Kind: KindID, Path: `//*[@id='local']`},
	})
	require.NoError(t, err)
	assert.Equal(t, want, got, "a cross-origin chain is skipped, not fatal")
}

func TestResolveRejectsNonFrameOuter(t *testing.T) {
	doc := parse(t, `<html><body><div id="fake">not a frame</div></body></html>`)
	r := NewResolver(nil)

	_, err := r.Resolve(doc, []Strategy{{
		Kind:      KindFrameChain,
		OuterPath: `//*[@id='fake']`,
		Path:      `//button`,
	}})
	assert.ErrorIs(t, err, ErrNotFound)
}
