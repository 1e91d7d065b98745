// -- cmd/root.go --
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domdex/internal/config"
	"github.com/xkilldash9x/domdex/internal/observability"
)

var (
	cfgFile string
	cfg     config.Interface

	flagFormat       string
	flagShowOverlays bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "domdex",
	Short:   "domdex indexes the visible, interactive content of rendered pages.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			// A fallback logger so the failure itself is reported somewhere.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "domdex"})
			return fmt.Errorf("loading configuration: %w", err)
		}
		if cmd.Flags().Changed("format") {
			loaded.SetOutputFormat(flagFormat)
		}
		if cmd.Flags().Changed("show-overlays") {
			loaded.SetOutputShowOverlays(flagShowOverlays)
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		observability.InitializeLogger(loaded.Logger())
		observability.GetLogger().Info("Starting domdex", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	defer observability.Sync()
	if err := rootCmd.Execute(); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./domdex.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: text or json")
	rootCmd.PersistentFlags().BoolVar(&flagShowOverlays, "show-overlays", false, "record highlight rectangles for indexed nodes")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
