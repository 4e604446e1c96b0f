package linkcheck

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	checks   *prometheus.CounterVec
	duration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}
	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "podracer_link_checks_total",
		Help: "Reachability probes by classified outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "podracer_link_check_duration_seconds",
		Help:    "Wall time of reachability probes, pacing included.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
	})

	c, err := register(reg, checks)
	if err != nil {
		return nil, err
	}
	h, err := register(reg, duration)
	if err != nil {
		return nil, err
	}
	return &metrics{checks: c, duration: h}, nil
}

// register reuses an identical collector that another Checker already
// registered on the same registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) observe(k Kind, d time.Duration) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(k.String()).Inc()
	m.duration.Observe(d.Seconds())
}
