// Package metrics exposes domain counters for signing sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Step outcomes.
const (
	OutcomeSuccess          = "success"
	OutcomeNotYourTurn      = "not_your_turn"
	OutcomeAlreadyCompleted = "already_completed"
	OutcomeConflict         = "conflict"
	OutcomeSigningFailed    = "signing_failed"
	OutcomeError            = "error"
)

// Signing holds the signing service metrics. A nil *Signing records nothing.
type Signing struct {
	sessionsCreated   prometheus.Counter
	sessionsCompleted prometheus.Counter
	steps             *prometheus.CounterVec
	stepDuration      prometheus.Histogram
	oneShot           *prometheus.CounterVec
}

func NewSigning(reg prometheus.Registerer) (*Signing, error) {
	m := &Signing{
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signing_sessions_created_total",
			Help: "Signing sessions created.",
		}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signing_sessions_completed_total",
			Help: "Signing sessions whose last signer has signed.",
		}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signing_steps_total",
			Help: "Signing step attempts by outcome.",
		}, []string{"outcome"}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signing_step_duration_seconds",
			Help:    "Duration of signing step attempts.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		oneShot: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signing_one_shot_total",
			Help: "Single-file signing requests by outcome.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.sessionsCreated, m.sessionsCompleted, m.steps, m.stepDuration, m.oneShot} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Signing) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

// ObserveStep records one step attempt.
func (m *Signing) ObserveStep(outcome string, d time.Duration, completed bool) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(outcome).Inc()
	m.stepDuration.Observe(d.Seconds())
	if completed {
		m.sessionsCompleted.Inc()
	}
}

func (m *Signing) ObserveOneShot(outcome string) {
	if m == nil {
		return
	}
	m.oneShot.WithLabelValues(outcome).Inc()
}
