package planner

import (
	"time"

	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "pkgplan"

// Metrics records resolution and execution activity. A nil *Metrics records nothing.
type Metrics struct {
	resolutions        *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	operations         *prometheus.CounterVec
}

// NewMetrics registers the planner metrics on reg.
func NewMetrics(reg prometheus.Registerer) (m *Metrics, err error) {
	defer func() {
		// promauto panics on duplicate registration
		if r := recover(); r != nil {
			m, err = nil, errors.Errorf("failed to register metrics: %v", r)
		}
	}()
	factory := promauto.With(reg)
	return &Metrics{
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "resolutions_total",
				Help:      "Number of plans resolved, by action and result.",
			},
			[]string{"action", "result"},
		),
		resolutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "resolution_duration_seconds",
				Help:      "Time spent resolving a plan.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"action"},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operations_total",
				Help:      "Number of plan actions executed, by kind and result.",
			},
			[]string{"kind", "result"},
		),
	}, nil
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) observeResolution(t ActionType, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(t.String(), resultLabel(err)).Inc()
	m.resolutionDuration.WithLabelValues(t.String()).Observe(d.Seconds())
}

func (m *Metrics) observeAction(k ActionKind, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(k.String(), result).Inc()
}
