package gobodyscale

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// FoundDevice is a scale seen while scanning.
type FoundDevice struct {
	Name    string
	ID      string
	RSSI    int
	Address bluetooth.Address
}

// BTAdapter is the adapter used for scanning and connecting.
var BTAdapter = bluetooth.DefaultAdapter

var enableOnce struct {
	sync.Mutex
	done bool
}

// TryEnableAdapter enables BTAdapter once per process.
func TryEnableAdapter() error {
	enableOnce.Lock()
	defer enableOnce.Unlock()

	if enableOnce.done {
		return nil
	}
	if err := BTAdapter.Enable(); err != nil {
		return fmt.Errorf("enabling bluetooth adapter: %w", err)
	}
	enableOnce.done = true
	return nil
}

// ScanStream returns a channel that streams devices as they are discovered
// and stops scanning when the context is canceled.
func ScanStream(ctx context.Context, logger *logrus.Logger, customPrefixes ...string) (<-chan FoundDevice, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := TryEnableAdapter(); err != nil {
		return nil, err
	}

	prefixesToScan := getPrefixes(customPrefixes...)
	if len(prefixesToScan) == 0 {
		return nil, errors.New("no drivers registered and no custom prefixes provided")
	}

	deviceChan := make(chan FoundDevice)

	go func() {
		defer close(deviceChan)

		logger.WithField("prefixes", prefixesToScan).Info("starting BLE scan")

		handler := func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if dev, ok := matchResult(result, prefixesToScan); ok {
				select {
				case deviceChan <- dev:
				case <-ctx.Done():
				}
			}
		}

		scanErr := make(chan error, 1)
		go func() {
			scanErr <- BTAdapter.Scan(handler)
		}()

		select {
		case <-ctx.Done():
		case err := <-scanErr:
			if err != nil {
				logger.WithError(err).Error("scan failed")
			}
			return
		}

		if err := BTAdapter.StopScan(); err != nil {
			logger.WithError(err).Warn("failed to stop scan cleanly")
		}
		<-scanErr
	}()

	return deviceChan, nil
}

// Scan finds devices with the given name prefixes, blocking for duration.
// Without prefixes it looks for every registered driver.
func Scan(ctx context.Context, duration time.Duration, logger *logrus.Logger, customPrefixes ...string) ([]FoundDevice, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	stream, err := ScanStream(ctx, logger, customPrefixes...)
	if err != nil {
		return nil, err
	}

	found := make(map[string]FoundDevice)
	for dev := range stream {
		if _, seen := found[dev.ID]; !seen {
			logger.WithFields(logrus.Fields{"name": dev.Name, "id": dev.ID, "rssi": dev.RSSI}).Info("found device")
		}
		found[dev.ID] = dev
	}

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	results := make([]FoundDevice, 0, len(found))
	for _, dev := range found {
		results = append(results, dev)
	}

	logger.WithField("device_count", len(results)).Info("scan finished")
	return results, nil
}

// ScanForOne returns the first matching device seen within timeout.
func ScanForOne(ctx context.Context, timeout time.Duration, logger *logrus.Logger, customPrefixes ...string) (*FoundDevice, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stream, err := ScanStream(ctx, logger, customPrefixes...)
	if err != nil {
		return nil, err
	}

	dev, ok := <-stream
	if !ok {
		return nil, fmt.Errorf("no scale found within %s", timeout)
	}
	cancel()
	// drain so the scan goroutine can exit
	for range stream {
	}
	return &dev, nil
}

func matchResult(result bluetooth.ScanResult, prefixes []string) (FoundDevice, bool) {
	name := result.LocalName()
	if name == "" {
		return FoundDevice{}, false
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return FoundDevice{
				Name:    name,
				ID:      result.Address.String(),
				RSSI:    int(result.RSSI),
				Address: result.Address,
			}, true
		}
	}
	return FoundDevice{}, false
}

// getPrefixes returns customPrefixes, or every registered driver prefix when none are given.
func getPrefixes(customPrefixes ...string) []string {
	if len(customPrefixes) > 0 {
		return customPrefixes
	}
	regLock.RLock()
	defer regLock.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	return keys
}
