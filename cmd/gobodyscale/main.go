package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Registers the 1byone driver with gobodyscale.NewDriverForDevice.
	_ "github.com/mlsorensen/gobodyscale/pkg/scales/all"
)

var version = "dev"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gobodyscale",
	Short: "Read weigh-ins from Bluetooth body-composition scales",
	Long: `Connects to a 1byone Bluetooth body-composition scale, runs its
handshake and records each weigh-in with the body-composition metrics
derived for the active user.

Readings the scale streams while settling are collapsed into one
weigh-in, which is reported once it stops changing.`,
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	// main() prints errors itself
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ~/.config/gobodyscale/config.yaml)")
}
