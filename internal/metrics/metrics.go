package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts what happens to scale notifications.
type Recorder struct {
	frames    *prometheus.CounterVec
	outcomes  *prometheus.CounterVec
	finalized prometheus.Counter
	weight    prometheus.Gauge
}

// New creates a Recorder and registers it with reg. A nil reg leaves the
// counters unregistered, which is handy in tests.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bodyscale_frames_total",
			Help: "Notifications received from the scale, by whether they decoded to a measurement.",
		}, []string{"result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bodyscale_measurements_total",
			Help: "Measurements by reconciliation outcome (inserted, merged, duplicate, error).",
		}, []string{"outcome"}),
		finalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bodyscale_weighins_finalized_total",
			Help: "Weigh-ins that received no update for the quiet period.",
		}),
		weight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bodyscale_last_weight_kilograms",
			Help: "Weight of the last finalized weigh-in.",
		}),
	}

	if reg != nil {
		reg.MustRegister(r.frames, r.outcomes, r.finalized, r.weight)
	}
	return r
}

func (r *Recorder) FrameAccepted() {
	r.frames.WithLabelValues("accepted").Inc()
}

func (r *Recorder) FrameRejected() {
	r.frames.WithLabelValues("rejected").Inc()
}

// Outcome counts a reconciliation result; outcome is its String form.
func (r *Recorder) Outcome(outcome string) {
	r.outcomes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Finalized(weightKg float64) {
	r.finalized.Inc()
	r.weight.Set(weightKg)
}
