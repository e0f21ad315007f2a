package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mlsorensen/gobodyscale"
	"github.com/mlsorensen/gobodyscale/internal/config"
	"github.com/mlsorensen/gobodyscale/internal/metrics"
	"github.com/mlsorensen/gobodyscale/internal/store"
	"github.com/mlsorensen/gobodyscale/pkg/scales/mock"
	"github.com/mlsorensen/gobodyscale/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to a scale and record weigh-ins",
	Long: `Scan for a scale, connect, run its handshake and record weigh-ins
until interrupted.

Each weigh-in is printed once it stopped changing. With --export the
recorded weigh-ins are written to a YAML file on exit.`,
	RunE: runRun,
}

var (
	runMock       bool
	runMockWeight float64
	runExport     string
	runOnce       bool
)

// errWeighInDone stops the run loop after the first weigh-in with --once.
var errWeighInDone = errors.New("weigh-in done")

func init() {
	runCmd.Flags().BoolVar(&runMock, "mock", false, "Use a simulated scale instead of Bluetooth")
	runCmd.Flags().Float64Var(&runMockWeight, "mock-weight", 72.5, "Weight in kg the simulated scale settles on")
	runCmd.Flags().StringVarP(&runExport, "export", "o", "", "Write recorded weigh-ins to this YAML file on exit")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "Exit after the first completed weigh-in")
}

// connection is a transport together with the device it talks to.
type connection struct {
	device     *gobodyscale.FoundDevice
	transport  gobodyscale.Transport
	disconnect func() error
}

func runRun(cmd *cobra.Command, args []string) error {
	if runMock && (runMockWeight <= 0 || runMockWeight > mock.MaxWeightKg) {
		return fmt.Errorf("mock-weight must be in (0, %.2f], got %.2f", mock.MaxWeightKg, runMockWeight)
	}

	cfg, cfgPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		logger.WithField("path", cfgPath).Info("config loaded")
	}

	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.disconnect(); err != nil {
			logger.WithError(err).Warn("disconnect failed")
		}
	}()

	driver, err := gobodyscale.NewDriverForDevice(conn.device)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	measurements := store.NewMemory()

	sess, err := session.New(ctx, driver, conn.transport, profileStore(cfg), measurements,
		gobodyscale.LogMessenger{Logger: logger}, session.Options{
			Window:  cfg.Reconcile.Window,
			Quiet:   cfg.Reconcile.Quiet,
			Logger:  logger,
			Metrics: metrics.New(registry),
		})
	if err != nil {
		return err
	}
	defer sess.Close()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Listen != "" {
		serveMetrics(gctx, g, cfg.Metrics.Listen, registry, logger)
	}

	weighIn := color.New(color.FgGreen, color.Bold)

	g.Go(func() error {
		if err := sess.Start(); err != nil {
			return err
		}
		for {
			select {
			case <-gctx.Done():
				return nil
			case m := <-sess.Finalized():
				weighIn.Fprintf(cmd.OutOrStdout(), "%s\n", m)
				if runOnce {
					return errWeighInDone
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, errWeighInDone) {
		err = nil
	}

	if runExport != "" {
		if exportErr := export(runExport, measurements); exportErr != nil {
			return errors.Join(err, exportErr)
		}
		logger.WithFields(logrus.Fields{"path": runExport, "count": len(measurements.All())}).Info("exported weigh-ins")
	}
	return err
}

// connect scans for the configured scale and connects to it, or starts the
// simulated scale with --mock.
func connect(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*connection, error) {
	if runMock {
		scale := mock.New(mock.Options{TargetKg: runMockWeight, Logger: logger})
		return &connection{device: scale.Device(), transport: scale, disconnect: scale.Disconnect}, nil
	}

	logger.WithField("prefix", cfg.Device.NamePrefix).Info("scanning for scale, step on it to wake it up")
	device, err := gobodyscale.ScanForOne(ctx, cfg.Device.ScanTimeout, logger, cfg.Device.NamePrefix)
	if err != nil {
		return nil, err
	}

	transport, err := gobodyscale.ConnectBLE(device, logger)
	if err != nil {
		return nil, err
	}
	return &connection{device: device, transport: transport, disconnect: transport.Disconnect}, nil
}

// serveMetrics exposes registry on listen until ctx is done.
func serveMetrics(ctx context.Context, g *errgroup.Group, listen string, registry *prometheus.Registry, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: listen, Handler: mux}

	g.Go(func() error {
		logger.WithField("listen", listen).Info("starting Prometheus server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})
}

func export(path string, measurements *store.Memory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := measurements.ExportYAML(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
