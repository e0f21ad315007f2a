package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mlsorensen/gobodyscale"
	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [prefix...]",
	Short: "Scan for supported scales",
	Long: `Scan for Bluetooth scales whose advertised name matches a registered
driver, or one of the given name prefixes.

Turn on the scale (step on it briefly) before scanning.`,
	RunE: runScan,
}

var scanDuration time.Duration

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 15*time.Second, "Scan duration")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanDuration <= 0 {
		return fmt.Errorf("duration must be > 0")
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg.LogLevel)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithField("duration", scanDuration).Info("starting BLE scan, turn on your scale now")
	devices, err := gobodyscale.Scan(ctx, scanDuration, logger, args...)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	printDevices(cmd.OutOrStdout(), devices)
	return nil
}

// printDevices writes devices as a table, strongest signal first.
func printDevices(w io.Writer, devices []gobodyscale.FoundDevice) {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No supported devices found.")
		fmt.Fprintln(w, "Tip: make sure the scale is awake and its name matches a driver (e.g. '1byone').")
		return
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].RSSI > devices[j].RSSI
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tRSSI")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", d.Name, d.ID, d.RSSI)
	}
	_ = tw.Flush()
}
