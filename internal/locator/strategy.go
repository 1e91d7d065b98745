// internal/locator/strategy.go
package locator

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind identifies how a strategy was derived. Consumers only need the path;
// the kind exists for logging and tests.
type Kind int

const (
	// KindStandard is a positional path from the document root.
	KindStandard Kind = iota
	// KindID is an absolute-by-id expression.
	KindID
	// KindAttribute is the smallest unique attribute combination, or the
	// fully-indexed positional fallback when no combination is unique.
	KindAttribute
	// KindFrameChain locates the owning iframe first, then the node within
	// the frame's own document.
	KindFrameChain
)

func (k Kind) String() string {
	switch k {
	case KindStandard:
		return "standard"
	case KindID:
		return "id"
	case KindAttribute:
		return "attribute"
	case KindFrameChain:
		return "frame-chain"
	}
	return "unknown"
}

// Strategy is one self-contained way of re-finding a node later. For a
// frame-chain strategy OuterPath locates the iframe element in the parent
// document and Path locates the node inside the frame's document; otherwise
// OuterPath is empty and Path stands alone.
type Strategy struct {
	Kind      Kind
	Path      string
	OuterPath string
}

// IsFrameChain reports whether the strategy crosses a frame boundary.
func (s Strategy) IsFrameChain() bool { return s.OuterPath != "" }

// MarshalJSON encodes a plain strategy as its path string and a frame-chain
// strategy as a two-element [outerPath, innerPath] array.
func (s Strategy) MarshalJSON() ([]byte, error) {
	if s.IsFrameChain() {
		return json.Marshal([2]string{s.OuterPath, s.Path})
	}
	return json.Marshal(s.Path)
}

// UnmarshalJSON accepts either encoding produced by MarshalJSON.
func (s *Strategy) UnmarshalJSON(data []byte) error {
	var path string
	if err := json.Unmarshal(data, &path); err == nil {
		*s = Strategy{Kind: KindStandard, Path: path}
		return nil
	}
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err == nil {
		*s = Strategy{Kind: KindFrameChain, OuterPath: pair[0], Path: pair[1]}
		return nil
	}
	return fmt.Errorf("location strategy must be a path string or a [outer, inner] pair: %s", string(data))
}

// Error taxonomy. Resolve is the only operation that surfaces these to the
// caller; everything else logs and drops the offending node.
var (
	// ErrNotFound means every strategy resolved to zero elements.
	ErrNotFound = errors.New("no location strategy resolved to an element")
	// ErrAmbiguous means a path resolved to more than one element. Internal
	// to the attribute-combination search; never surfaced by Resolve.
	ErrAmbiguous = errors.New("location strategy resolved ambiguously")
	// ErrInaccessibleFrame means the path crosses into a cross-origin frame.
	ErrInaccessibleFrame = errors.New("frame content is not inspectable")
	// ErrDetachedNode means the node has no path to its document root.
	ErrDetachedNode = errors.New("node is detached from its document")
)
