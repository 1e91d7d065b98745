// -- cmd/fixture.go --
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domdex/internal/dom"
	"github.com/xkilldash9x/domdex/internal/engine"
	"github.com/xkilldash9x/domdex/internal/geom"
	"github.com/xkilldash9x/domdex/internal/observability"
	"github.com/xkilldash9x/domdex/internal/viewport"
)

// fixtureCmd extracts from a local HTML file using the in-process renderer.
// No browser involved; useful for debugging selection and location behavior.
var fixtureCmd = &cobra.Command{
	Use:   "fixture <file>",
	Short: "Index a local HTML file without a browser.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger().Named("fixture")
		path := args[0]

		markup, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		opts := dom.FixtureOptions{URL: "file://" + path}
		if vp := cfg.Browser().Viewport; vp["width"] > 0 && vp["height"] > 0 {
			opts.Viewport = geom.Size{
				Width:  float64(vp["width"]),
				Height: float64(vp["height"]),
			}
		}
		provider, err := engine.NewFixtureProvider(string(markup), opts)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}

		eng := engine.New(provider, engineOptions(), logger)
		eng.SetShowOverlays(cfg.Output().ShowOverlays)

		chunks, err := extract(cmd.Context(), eng)
		if err != nil {
			return err
		}
		logger.Info("Extraction complete.",
			zap.String("file", path), zap.Int("chunks", len(chunks)))
		return printChunks(eng, chunks)
	},
}

// engineOptions maps the engine section of the configuration onto the
// engine's option struct.
func engineOptions() engine.Options {
	ec := cfg.Engine()
	return engine.Options{
		Scroll: viewport.Options{
			Quiet:          ec.ScrollQuiet,
			Timeout:        ec.ScrollTimeout,
			PollHz:         ec.ScrollPollHz,
			PreScrollDelay: ec.PreScrollDelay,
		},
		MaxCombo:          ec.MaxCombo,
		SampleInset:       ec.SampleInset,
		LocateConcurrency: ec.LocateConcurrency,
	}
}

func init() {
	rootCmd.AddCommand(fixtureCmd)
}
