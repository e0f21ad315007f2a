package gobodyscale

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// BLETransport is a Transport over a tinygo bluetooth connection.
// tinygo calls return once the peripheral answered, so completion is
// reported right after each call, from its own goroutine.
type BLETransport struct {
	name     string
	btDevice bluetooth.Device
	logger   *logrus.Logger

	mu        sync.Mutex
	connected bool
	events    TransportEvents
	chars     map[bluetooth.UUID]bluetooth.DeviceCharacteristic

	// discoverFn looks up a characteristic on the radio; nil means discover.
	discoverFn func(service, char bluetooth.UUID) (bluetooth.DeviceCharacteristic, error)
}

var _ Transport = (*BLETransport)(nil)

// ConnectBLE connects to a scanned device.
func ConnectBLE(device *FoundDevice, logger *logrus.Logger) (*BLETransport, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := TryEnableAdapter(); err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{"name": device.Name, "id": device.ID}).Info("connecting")
	btDevice, err := BTAdapter.Connect(device.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", device.Name, err)
	}

	return &BLETransport{
		name:      device.Name,
		btDevice:  btDevice,
		logger:    logger,
		connected: true,
		chars:     make(map[bluetooth.UUID]bluetooth.DeviceCharacteristic),
	}, nil
}

func (t *BLETransport) Bind(events TransportEvents) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = events
}

func (t *BLETransport) SubscribeNotify(service, char bluetooth.UUID) error {
	c, err := t.characteristic(service, char)
	if err != nil {
		return err
	}

	err = c.EnableNotifications(func(buf []byte) {
		if events := t.boundEvents(); events != nil {
			events.HandleNotify(char, buf)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to enable notifications: %w", err)
	}

	t.complete()
	return nil
}

func (t *BLETransport) WriteCharacteristic(service, char bluetooth.UUID, data []byte) error {
	c, err := t.characteristic(service, char)
	if err != nil {
		return err
	}

	if _, err := c.WriteWithoutResponse(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", char, err)
	}

	t.complete()
	return nil
}

// Disconnect terminates the connection. It is safe to call more than once.
func (t *BLETransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil
	}
	t.connected = false
	t.events = nil
	return t.btDevice.Disconnect()
}

func (t *BLETransport) boundEvents() TransportEvents {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events
}

func (t *BLETransport) complete() {
	events := t.boundEvents()
	if events == nil {
		return
	}
	go func() {
		if err := events.Complete(); err != nil {
			t.logger.WithError(err).Warn("handshake step failed")
		}
	}()
}

// characteristic discovers and caches char within service. Discovery talks to
// the radio, so t.mu is only held to read and fill the cache.
func (t *BLETransport) characteristic(service, char bluetooth.UUID) (bluetooth.DeviceCharacteristic, error) {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return bluetooth.DeviceCharacteristic{}, ErrNotConnected
	}
	if c, ok := t.chars[char]; ok {
		t.mu.Unlock()
		return c, nil
	}
	discover := t.discoverFn
	if discover == nil {
		discover = t.discover
	}
	t.mu.Unlock()

	c, err := discover(service, char)
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return bluetooth.DeviceCharacteristic{}, ErrNotConnected
	}
	t.chars[char] = c
	return c, nil
}

func (t *BLETransport) discover(service, char bluetooth.UUID) (bluetooth.DeviceCharacteristic, error) {
	t.logger.WithField("service", service.String()).Debug("discovering services")
	services, err := t.btDevice.DiscoverServices([]bluetooth.UUID{service})
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("could not discover services: %w", err)
	}
	if len(services) == 0 {
		return bluetooth.DeviceCharacteristic{}, errors.New("could not find the scale BT service")
	}

	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics([]bluetooth.UUID{char})
		if err != nil {
			return bluetooth.DeviceCharacteristic{}, fmt.Errorf("could not discover characteristics: %w", err)
		}
		for _, c := range chars {
			if c.UUID() == char {
				return c, nil
			}
		}
	}

	return bluetooth.DeviceCharacteristic{}, fmt.Errorf("characteristic %s not found on %s", char, t.name)
}
