// Package telemetry holds the process metrics. Everything registers on
// an injected Registerer so tests can use a private registry.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the instrument set for the pipeline.
type Metrics struct {
	ScansTotal         *prometheus.CounterVec
	TickersSkipped     *prometheus.CounterVec
	FetchRetries       prometheus.Counter
	OptimizerFallbacks prometheus.Counter
	ScanDuration       prometheus.Histogram
}

// New registers the instrument set. Passing prometheus.DefaultRegisterer
// wires the process-global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crypash",
			Name:      "scans_total",
			Help:      "Completed scan runs by asset class.",
		}, []string{"class"}),
		TickersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crypash",
			Name:      "tickers_skipped_total",
			Help:      "Tickers dropped during a scan by reason.",
		}, []string{"reason"}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crypash",
			Name:      "fetch_retries_total",
			Help:      "Rate-limit retries against the data gateway.",
		}),
		OptimizerFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crypash",
			Name:      "optimizer_fallbacks_total",
			Help:      "Optimizations that fell back to equal weighting.",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crypash",
			Name:      "scan_duration_seconds",
			Help:      "Wall time of a full scan run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	reg.MustRegister(m.ScansTotal, m.TickersSkipped, m.FetchRetries, m.OptimizerFallbacks, m.ScanDuration)
	return m
}

// ObserveScan records one finished scan run.
func (m *Metrics) ObserveScan(class string, took time.Duration, skippedByReason map[string]int) {
	m.ScansTotal.WithLabelValues(class).Inc()
	m.ScanDuration.Observe(took.Seconds())
	for reason, n := range skippedByReason {
		m.TickersSkipped.WithLabelValues(reason).Add(float64(n))
	}
}
