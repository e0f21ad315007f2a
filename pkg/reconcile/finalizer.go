package reconcile

import (
	"sync"
	"time"

	"github.com/mlsorensen/gobodyscale"
	"github.com/sirupsen/logrus"
)

// DefaultQuiet is how long a weigh-in must go without updates to be final.
const DefaultQuiet = 5 * time.Second

// Finalizer reports a weigh-in as final once no update touched it for the
// quiet period. Every Touch pushes the deadline back. A weigh-in is reported
// at most once: touches for an ID that was already finalized are ignored.
type Finalizer struct {
	quiet      time.Duration
	order      sync.Locker
	onFinalize func(gobodyscale.Measurement)
	logger     *logrus.Logger

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending *gobodyscale.Measurement
	lastID  string
	stopped bool
}

// NewFinalizer creates a finalizer. order is taken before the finalizer
// reads the pending measurement so a fire never interleaves with a
// reconciliation; it may be nil. onFinalize runs with the finalizer's lock
// held and must not call back into it.
func NewFinalizer(quiet time.Duration, order sync.Locker, onFinalize func(gobodyscale.Measurement), logger *logrus.Logger) *Finalizer {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	if order == nil {
		order = &sync.Mutex{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Finalizer{
		quiet:      quiet,
		order:      order,
		onFinalize: onFinalize,
		logger:     logger,
	}
}

// Touch records m as the latest state of the weigh-in and restarts the quiet period.
func (f *Finalizer) Touch(m gobodyscale.Measurement) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return
	}
	if m.ID != "" && m.ID == f.lastID {
		f.logger.WithField("id", m.ID).Debug("weigh-in already finalized, ignoring update")
		return
	}

	f.pending = &m
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
	}
	gen := f.gen
	f.timer = time.AfterFunc(f.quiet, func() { f.fire(gen) })
}

// Pending reports whether a weigh-in is waiting to be finalized.
func (f *Finalizer) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending != nil
}

// Stop cancels the finalizer. After Stop returns onFinalize is never called.
func (f *Finalizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return
	}
	f.stopped = true
	if f.timer != nil {
		f.timer.Stop()
	}
	if f.pending != nil {
		f.logger.WithField("id", f.pending.ID).Debug("finalizer stopped with a weigh-in pending")
		f.pending = nil
	}
}

func (f *Finalizer) fire(gen uint64) {
	f.order.Lock()
	f.mu.Lock()
	f.order.Unlock()
	defer f.mu.Unlock()

	// a newer Touch or a Stop won the race with this timer
	if f.stopped || gen != f.gen || f.pending == nil {
		return
	}

	m := *f.pending
	f.pending = nil
	f.lastID = m.ID
	f.timer = nil
	f.onFinalize(m)
}
