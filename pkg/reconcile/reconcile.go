// Package reconcile decides whether an incoming measurement is a refinement of
// the weigh-in that was just recorded or a new weigh-in.
//
// A scale keeps streaming readings for a few seconds after the user steps on
// it. Readings that arrive within Window of the latest stored measurement are
// merged into it; identical ones are dropped.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mlsorensen/gobodyscale"
	"github.com/sirupsen/logrus"
)

// DefaultWindow is the interval in which readings collapse into one weigh-in.
const DefaultWindow = 60 * time.Second

// Outcome is what Reconcile did with a measurement.
type Outcome uint8

const (
	OutcomeInserted Outcome = iota
	OutcomeMerged
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeMerged:
		return "merged"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("unknown (%d)", o)
	}
}

// Options configures a Reconciler.
type Options struct {
	// Window defaults to DefaultWindow.
	Window time.Duration

	// Quiet enables the finalizer when OnFinalize is set; defaults to DefaultQuiet.
	Quiet      time.Duration
	OnFinalize func(gobodyscale.Measurement)

	Logger *logrus.Logger
}

// Reconciler is the single ordering point for reading and writing the latest measurement.
type Reconciler struct {
	store     gobodyscale.MeasurementStore
	window    time.Duration
	finalizer *Finalizer
	logger    *logrus.Logger

	mu sync.Mutex
}

func New(store gobodyscale.MeasurementStore, opts Options) *Reconciler {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	r := &Reconciler{
		store:  store,
		window: opts.Window,
		logger: opts.Logger,
	}
	if opts.OnFinalize != nil {
		r.finalizer = NewFinalizer(opts.Quiet, &r.mu, opts.OnFinalize, opts.Logger)
	}
	return r
}

// Reconcile persists m as a new record, merges it into the latest one or drops it.
func (r *Reconciler) Reconcile(ctx context.Context, m gobodyscale.Measurement) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest, found, err := r.store.Latest(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading latest measurement: %w", err)
	}

	if found && m.Timestamp.Sub(latest.Timestamp) < r.window {
		if m.SameMetrics(latest) {
			r.logger.WithField("id", latest.ID).Debug("dropping duplicate measurement")
			return OutcomeDuplicate, nil
		}

		latest.Merge(m)
		if err := r.store.Update(ctx, latest); err != nil {
			return 0, fmt.Errorf("updating measurement %s: %w", latest.ID, err)
		}
		r.logger.WithField("id", latest.ID).Debug("merged measurement into latest")
		r.touch(latest)
		return OutcomeMerged, nil
	}

	if err := r.store.Insert(ctx, &m); err != nil {
		return 0, fmt.Errorf("inserting measurement: %w", err)
	}
	r.logger.WithField("id", m.ID).Debug("inserted new measurement")
	r.touch(m)
	return OutcomeInserted, nil
}

// Close stops the finalizer. A pending weigh-in is not reported.
func (r *Reconciler) Close() {
	if r.finalizer != nil {
		r.finalizer.Stop()
	}
}

func (r *Reconciler) touch(m gobodyscale.Measurement) {
	if r.finalizer != nil {
		r.finalizer.Touch(m)
	}
}
