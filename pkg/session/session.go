// Package session ties a driver, a transport and the stores together for
// one connection to a scale.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mlsorensen/gobodyscale"
	"github.com/mlsorensen/gobodyscale/internal/metrics"
	"github.com/mlsorensen/gobodyscale/pkg/reconcile"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("session closed")

// Options configures a Session. Zero values pick the defaults.
type Options struct {
	Window  time.Duration
	Quiet   time.Duration
	Logger  *logrus.Logger
	Metrics *metrics.Recorder

	// Now stamps incoming measurements; defaults to time.Now.
	Now func() time.Time
}

// Session is one connection to a scale. It receives the transport's events,
// drives the handshake and feeds decoded measurements to the reconciler.
type Session struct {
	driver  gobodyscale.Driver
	user    gobodyscale.UserProfile
	seq     *gobodyscale.Sequencer
	rec     *reconcile.Reconciler
	metrics *metrics.Recorder
	logger  *logrus.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	finalized chan gobodyscale.Measurement

	mu     sync.Mutex
	closed bool
}

var _ gobodyscale.TransportEvents = (*Session)(nil)

// New loads the active user and binds the session to transport. The handshake
// starts with Start.
func New(ctx context.Context, driver gobodyscale.Driver, transport gobodyscale.Transport,
	profiles gobodyscale.ProfileStore, measurements gobodyscale.MeasurementStore,
	messenger gobodyscale.Messenger, opts Options) (*Session, error) {

	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	user, err := profiles.ActiveUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading active user: %w", err)
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("active user %q: %w", user.Name, err)
	}

	s := &Session{
		driver:    driver,
		user:      user,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
		finalized: make(chan gobodyscale.Measurement, 8),
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.seq = gobodyscale.NewSequencer(driver, user, transport, messenger, opts.Logger)
	s.rec = reconcile.New(measurements, reconcile.Options{
		Window:     opts.Window,
		Quiet:      opts.Quiet,
		OnFinalize: s.onFinalize,
		Logger:     opts.Logger,
	})

	transport.Bind(s)

	fields := logrus.Fields{"driver": driver.Name(), "user": user.Name}
	if named, ok := driver.(interface{ DeviceName() string }); ok {
		fields["device"] = named.DeviceName()
	}
	s.logger.WithFields(fields).Info("session ready")
	return s, nil
}

// User returns the profile measurements are derived for.
func (s *Session) User() gobodyscale.UserProfile {
	return s.user
}

// Start issues the first handshake step.
func (s *Session) Start() error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	return s.seq.Start()
}

// Complete acknowledges the handshake step in flight.
func (s *Session) Complete() error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	return s.seq.Complete()
}

// HandleNotify decodes a notification and reconciles the resulting measurement.
// Payloads that are not measurements are counted and ignored.
func (s *Session) HandleNotify(char bluetooth.UUID, data []byte) {
	if s.isClosed() {
		return
	}

	m, ok := s.driver.OnNotify(char, data, s.user, s.now())
	if !ok {
		s.metrics.FrameRejected()
		s.logger.WithField("bytes", fmt.Sprintf("% X", data)).Debug("ignoring notification")
		return
	}
	s.metrics.FrameAccepted()

	outcome, err := s.rec.Reconcile(s.ctx, m)
	if err != nil {
		s.metrics.Outcome("error")
		s.logger.WithError(err).Error("could not store measurement")
		return
	}
	s.metrics.Outcome(outcome.String())
	s.logger.WithFields(logrus.Fields{
		"outcome": outcome,
		"weight":  m.WeightKg,
	}).Debug("measurement reconciled")
}

// HandshakeDone is closed once every handshake step has completed.
func (s *Session) HandshakeDone() <-chan struct{} {
	return s.seq.Done()
}

// Finalized delivers each weigh-in once it stopped changing.
func (s *Session) Finalized() <-chan gobodyscale.Measurement {
	return s.finalized
}

// Close stops the session. A weigh-in that is still settling is not reported.
// It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.rec.Close()
	s.cancel()
	s.logger.Debug("session closed")
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// onFinalize runs with the finalizer's lock held, so it must not block or
// call back into the reconciler.
func (s *Session) onFinalize(m gobodyscale.Measurement) {
	s.metrics.Finalized(m.WeightKg)
	s.logger.WithField("id", m.ID).Infof("weigh-in complete: %s", m)

	select {
	case s.finalized <- m:
	default:
		s.logger.WithField("id", m.ID).Warn("finalized channel full, dropping weigh-in")
	}
}
