package http

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRegistry holds the engine's Prometheus metrics
type MetricsRegistry struct {
	InstrumentsScanned *prometheus.CounterVec
	CombinationsTotal  *prometheus.CounterVec
	ScanDuration       prometheus.Histogram
	ActiveScans        prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetricsRegistry creates and registers all engine metrics on a
// dedicated registry
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		InstrumentsScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgerank_instruments_scanned_total",
				Help: "Instruments processed, by outcome (scanned|skipped)",
			},
			[]string{"outcome"},
		),
		CombinationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edgerank_combinations_total",
				Help: "Rule combinations evaluated, by outcome (kept|discarded)",
			},
			[]string{"outcome"},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "edgerank_scan_duration_seconds",
				Help:    "Wall time of full scans in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		ActiveScans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "edgerank_active_scans",
				Help: "Number of scans currently in flight",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(m.InstrumentsScanned, m.CombinationsTotal, m.ScanDuration, m.ActiveScans)
	return m
}

// InstrumentScanned implements scan.Observer
func (m *MetricsRegistry) InstrumentScanned(symbol string, skipped bool) {
	outcome := "scanned"
	if skipped {
		outcome = "skipped"
	}
	m.InstrumentsScanned.WithLabelValues(outcome).Inc()
}

// CombinationEvaluated implements scan.Observer
func (m *MetricsRegistry) CombinationEvaluated(symbol string, discarded bool) {
	outcome := "kept"
	if discarded {
		outcome = "discarded"
	}
	m.CombinationsTotal.WithLabelValues(outcome).Inc()
}
