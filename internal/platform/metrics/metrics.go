package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "modpreview"

// Playback holds the orchestrator counters. A nil *Playback is a valid no-op.
type Playback struct {
	Loads     *prometheus.CounterVec
	Failures  *prometheus.CounterVec
	Fallbacks prometheus.Counter
	Successes *prometheus.CounterVec
}

func NewPlayback(reg prometheus.Registerer) *Playback {
	m := &Playback{
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "load_attempts_total",
			Help:      "Engine load attempts by source kind and whether the attempt used fallback URLs.",
		}, []string{"source_kind", "fallback"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "load_failures_total",
			Help:      "Terminal load failures by error kind.",
		}, []string{"kind"}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "fallback_attempts_total",
			Help:      "Fallback loads issued after a retryable primary failure.",
		}),
		Successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "load_successes_total",
			Help:      "Sessions that reached the active state.",
		}, []string{"fallback"}),
	}
	if reg != nil {
		reg.MustRegister(m.Loads, m.Failures, m.Fallbacks, m.Successes)
	}
	return m
}

func (m *Playback) LoadStarted(sourceKind string, fallback bool) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(sourceKind, strconv.FormatBool(fallback)).Inc()
}

func (m *Playback) LoadFailed(kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(kind).Inc()
}

func (m *Playback) FallbackIssued() {
	if m == nil {
		return
	}
	m.Fallbacks.Inc()
}

func (m *Playback) LoadSucceeded(fallback bool) {
	if m == nil {
		return
	}
	m.Successes.WithLabelValues(strconv.FormatBool(fallback)).Inc()
}
