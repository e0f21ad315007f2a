// Package mock provides a simulated 1byone scale that implements the
// gobodyscale.Transport interface.
// It is intended for development and testing purposes when a physical scale is not available.
package mock

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mlsorensen/gobodyscale"
	"github.com/mlsorensen/gobodyscale/pkg/scales/onebyone/comms"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// DeviceName is the advertised name of the simulated scale.
const DeviceName = "1byone-MOCK"

// MaxWeightKg is the largest weight a notification frame can carry.
const MaxWeightKg = float64(math.MaxUint16) / 100

var _ gobodyscale.Transport = (*MockScale)(nil)

// Options shapes the simulated weigh-in.
type Options struct {
	// TargetKg is the weight the reading settles on.
	TargetKg float64
	// Impedance is the raw impedance coefficient sent with every frame.
	Impedance uint32
	// Interval between notifications.
	Interval time.Duration
	// Frames is the number of notifications per weigh-in, the last half of
	// which carry the settled weight.
	Frames int

	Logger *logrus.Logger
}

// MockScale is a simulated Bluetooth scale. Once notifications are enabled
// and a command frame was written it streams one weigh-in, like a user
// stepping onto the scale.
type MockScale struct {
	opts Options

	mu         sync.Mutex
	events     gobodyscale.TransportEvents
	subscribed bool
	running    bool
	writes     [][]byte
	stopChan   chan struct{}
	done       chan struct{}
}

// New creates a new, idle MockScale.
func New(opts Options) *MockScale {
	if opts.TargetKg <= 0 {
		opts.TargetKg = 72.5
	}
	if opts.TargetKg > MaxWeightKg {
		opts.TargetKg = MaxWeightKg
	}
	if opts.Impedance == 0 {
		opts.Impedance = 500
	}
	if opts.Interval <= 0 {
		opts.Interval = 750 * time.Millisecond
	}
	if opts.Frames <= 0 {
		opts.Frames = 8
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &MockScale{
		opts:     opts,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Device returns the scan result a real scale of this kind would produce.
func (s *MockScale) Device() *gobodyscale.FoundDevice {
	return &gobodyscale.FoundDevice{Name: DeviceName, ID: "MOCK"}
}

func (s *MockScale) Bind(events gobodyscale.TransportEvents) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

func (s *MockScale) SubscribeNotify(_, char bluetooth.UUID) error {
	s.mu.Lock()
	if char == comms.OneByoneNotifyCharUUID {
		s.subscribed = true
	}
	s.mu.Unlock()

	s.log().WithField("char", char.String()).Info("MOCK: notifications enabled")
	s.complete()
	return nil
}

func (s *MockScale) WriteCharacteristic(_, char bluetooth.UUID, data []byte) error {
	s.mu.Lock()
	s.writes = append(s.writes, append([]byte(nil), data...))
	start := char == comms.OneByoneCommandCharUUID && s.subscribed && !s.running
	if start {
		s.running = true
	}
	s.mu.Unlock()

	s.log().WithField("char", char.String()).Infof("MOCK: received % X", data)
	s.complete()

	if start {
		go s.simulate()
	}
	return nil
}

// Writes returns every payload written so far.
func (s *MockScale) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.writes...)
}

// Done is closed when the simulated weigh-in has been fully sent.
func (s *MockScale) Done() <-chan struct{} {
	return s.done
}

// Disconnect stops the simulation. It is safe to call more than once.
func (s *MockScale) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopChan == nil {
		return nil
	}
	close(s.stopChan)
	s.stopChan = nil
	s.events = nil
	s.log().Info("MOCK: Disconnected.")
	return nil
}

// simulate is the core loop that generates fake frames.
func (s *MockScale) simulate() {
	defer close(s.done)
	defer s.log().Info("MOCK: Simulation stopped.")

	s.mu.Lock()
	stop := s.stopChan
	s.mu.Unlock()
	if stop == nil {
		return
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	settleAt := s.opts.Frames / 2
	for i := 0; i < s.opts.Frames; i++ {
		select {
		case <-ticker.C:
		case <-stop:
			return
		}

		weight := s.opts.TargetKg
		if i < settleAt {
			// Climb towards the target with a little wobble.
			weight = s.opts.TargetKg*float64(i+1)/float64(settleAt+1) + (rand.Float64()-0.5)*0.4
		}

		frame := comms.BuildNotification(weightRaw(weight), s.opts.Impedance)
		if events := s.boundEvents(); events != nil {
			events.HandleNotify(comms.OneByoneNotifyCharUUID, frame)
		}
	}
}

// weightRaw converts kg to the frame's hundredths, clamped to what fits.
func weightRaw(kg float64) uint16 {
	raw := math.Round(kg * 100)
	if raw < 0 {
		return 0
	}
	if raw > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(raw)
}

func (s *MockScale) boundEvents() gobodyscale.TransportEvents {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

// complete acknowledges a request from its own goroutine, like the radio would.
func (s *MockScale) complete() {
	events := s.boundEvents()
	if events == nil {
		return
	}
	go func() {
		if err := events.Complete(); err != nil {
			s.log().WithError(err).Warn("MOCK: handshake step failed")
		}
	}()
}

func (s *MockScale) log() *logrus.Entry {
	return s.opts.Logger.WithField("scale", DeviceName)
}
