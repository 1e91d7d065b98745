// internal/host/cdp/ax.go
package cdp

import (
	"context"

	"github.com/chromedp/cdproto/accessibility"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domdex/internal/dom"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fetchAX pulls the full accessibility tree and keys it by backend node id.
// Accessibility data is an enrichment, not a requirement: a failed fetch
// logs and returns nil rather than failing the capture.
func (h *Host) fetchAX(ctx context.Context) map[int64]*dom.AXInfo {
	nodes, err := accessibility.GetFullAXTree().Do(ctx)
	if err != nil {
		h.logger.Debug("Accessibility tree unavailable; continuing without it.", zap.Error(err))
		return nil
	}

	out := make(map[int64]*dom.AXInfo, len(nodes))
	for _, n := range nodes {
		if n == nil || n.BackendDOMNodeID == 0 {
			continue
		}
		info := &dom.AXInfo{
			Role:   axString(n.Role),
			Name:   axString(n.Name),
			Hidden: n.Ignored,
		}
		if info.Role == "" && info.Name == "" && !info.Hidden {
			continue
		}
		out[int64(n.BackendDOMNodeID)] = info
	}
	return out
}

// axString unwraps the string payload of an accessibility value.
func axString(v *accessibility.Value) string {
	if v == nil || len(v.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal([]byte(v.Value), &s); err != nil {
		return ""
	}
	return s
}
