// Package metrics exposes prometheus collectors for backtest and optimizer runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "funding_breakout"

// Run status label values.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Metrics groups the collectors of one process. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry     *prometheus.Registry
	RunsTotal    *prometheus.CounterVec
	TradesClosed *prometheus.CounterVec
	StopUpdates  *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	RunsInFlight prometheus.Gauge
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Backtest runs by final status.",
		}, []string{"status"}),
		TradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_closed_total",
			Help:      "Closed trades by exit reason.",
		}, []string{"exit_reason"}),
		StopUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stop_updates_total",
			Help:      "Protective stop adjustments by kind.",
		}, []string{"kind"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a single backtest run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		RunsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Backtest runs currently executing.",
		}),
	}

	m.Registry.MustRegister(m.RunsTotal, m.TradesClosed, m.StopUpdates, m.RunDuration, m.RunsInFlight)

	return m
}

// RunStarted marks a run as in flight and returns a func that records its outcome.
func (m *Metrics) RunStarted() func(status string) {
	if m == nil {
		return func(string) {}
	}

	start := time.Now()
	m.RunsInFlight.Inc()

	return func(status string) {
		m.RunsInFlight.Dec()
		m.RunDuration.Observe(time.Since(start).Seconds())
		m.RunsTotal.WithLabelValues(status).Inc()
	}
}

// RunSkipped counts a run that was not executed.
func (m *Metrics) RunSkipped() {
	if m == nil {
		return
	}

	m.RunsTotal.WithLabelValues(StatusSkipped).Inc()
}

// TradeClosed counts a closed trade.
func (m *Metrics) TradeClosed(reason string) {
	if m == nil {
		return
	}

	m.TradesClosed.WithLabelValues(reason).Inc()
}

// StopUpdated counts a stop ratchet.
func (m *Metrics) StopUpdated(kind string) {
	if m == nil {
		return
	}

	m.StopUpdates.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
