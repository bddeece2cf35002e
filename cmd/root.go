package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"splitroom/internal/config"
	"splitroom/internal/logger"
)

var version = "0.3.0"

// appConfig is loaded once in main before any command runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "splitroom",
	Short: "Read Portuguese utility bills and split them between roommates",
	Long: `splitroom extracts totals, billing periods and fixed charges from
Portuguese electricity, water and gas bills (PDF or screenshots), then splits
the costs between roommates according to the days each one was at home.

Text is read with the cheapest stage that works: the PDF text layer, Google
Document AI / Cloud Vision when credentials are configured, and local
tesseract OCR as the last resort.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI with the loaded configuration.
func Execute(cfg *config.Config) {
	appConfig = cfg
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Debug().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
