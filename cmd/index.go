// -- cmd/index.go --
package cmd

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domdex/internal/engine"
	hostcdp "github.com/xkilldash9x/domdex/internal/host/cdp"
	"github.com/xkilldash9x/domdex/internal/observability"
)

var indexChunk int

// indexCmd extracts from a live page in a headless browser.
var indexCmd = &cobra.Command{
	Use:   "index <url>",
	Short: "Index the visible content of a live page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger().Named("index")
		url := args[0]

		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Browser().Headless),
		)
		if cfg.Browser().IgnoreTLSErrors {
			opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
		}
		if vp := cfg.Browser().Viewport; vp["width"] > 0 && vp["height"] > 0 {
			opts = append(opts, chromedp.WindowSize(vp["width"], vp["height"]))
		}
		for _, arg := range cfg.Browser().Args {
			opts = append(opts, chromedp.Flag(arg, true))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(cmd.Context(), opts...)
		defer cancelAlloc()
		tab, cancelTab := chromedp.NewContext(allocCtx)
		defer cancelTab()

		host := hostcdp.New(tab, logger)

		navCtx := cmd.Context()
		if t := cfg.Browser().NavigationTimeout; t > 0 {
			var cancel context.CancelFunc
			navCtx, cancel = context.WithTimeout(navCtx, t)
			defer cancel()
		}
		if err := host.Navigate(navCtx, url); err != nil {
			return err
		}

		eng := engine.New(host, engineOptions(), logger)
		eng.SetShowOverlays(cfg.Output().ShowOverlays)

		chunks, err := extract(cmd.Context(), eng)
		if err != nil {
			return err
		}
		logger.Info("Extraction complete.",
			zap.String("url", url), zap.Int("chunks", len(chunks)))
		return printChunks(eng, chunks)
	},
}

// extract runs either the whole document or the one requested chunk.
func extract(ctx context.Context, eng *engine.Engine) ([]*engine.Chunk, error) {
	if indexChunk >= 0 {
		c, err := eng.ExtractAt(ctx, indexChunk, true)
		if err != nil {
			return nil, fmt.Errorf("extracting chunk %d: %w", indexChunk, err)
		}
		return []*engine.Chunk{c}, nil
	}
	chunks, err := eng.ExtractAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("extracting document: %w", err)
	}
	return chunks, nil
}

func init() {
	indexCmd.Flags().IntVar(&indexChunk, "chunk", -1, "extract only this chunk (default: all)")
	rootCmd.AddCommand(indexCmd)
}
