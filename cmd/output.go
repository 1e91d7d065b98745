// -- cmd/output.go --
package cmd

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/domdex/internal/engine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// printChunks renders extraction results to stdout in the configured format.
func printChunks(eng *engine.Engine, chunks []*engine.Chunk) error {
	switch cfg.Output().Format {
	case "json":
		out := struct {
			Session  string                 `json:"session"`
			Chunks   []*engine.Chunk        `json:"chunks"`
			Overlays map[int]map[string]any `json:"overlays,omitempty"`
		}{Session: eng.SessionID(), Chunks: chunks}

		if cfg.Output().ShowOverlays {
			out.Overlays = make(map[int]map[string]any)
			for idx, r := range eng.OverlayRects() {
				out.Overlays[idx] = map[string]any{
					"x": r.X, "y": r.Y, "width": r.Width, "height": r.Height,
				}
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)

	default:
		for _, c := range chunks {
			fmt.Printf("-- chunk %d/%d --\n", c.Index+1, c.Total)
			if c.Summary != "" {
				fmt.Println(c.Summary)
			}
			if c.Dropped > 0 {
				fmt.Printf("(%d dropped)\n", c.Dropped)
			}
		}
		return nil
	}
}
