// Package obs wires the core's prometheus collectors and the lightweight
// rolling-window latency averages surfaced by GetStats.
package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors shared by every index instance in a process.
// Index-specific labels (name, component) are applied via WithLabelValues
// at the call site rather than one collector set per index.
type Metrics struct {
	Inserts       *prometheus.CounterVec
	Searches      *prometheus.CounterVec
	SearchErrors  *prometheus.CounterVec
	SearchLatency *prometheus.HistogramVec
}

var (
	sharedOnce    sync.Once
	sharedMetrics *Metrics
)

// NewMetrics returns the single collector set registered for this process.
// promauto registers each collector with prometheus.DefaultRegisterer on
// first use, so every hgraph.New/sindi.New in the process must receive the
// same *Metrics instead of constructing its own — a second registration of
// the same collector name panics. The first caller pays for construction;
// every later caller (a second index, a second collection) gets the shared
// instance back, mirroring the teacher's single process-wide obs.Metrics
// threaded into every collection.
func NewMetrics() *Metrics {
	sharedOnce.Do(func() {
		sharedMetrics = &Metrics{
			Inserts: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "annsearch_inserts_total",
				Help: "Total vectors inserted, labeled by index name.",
			}, []string{"index"}),
			Searches: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "annsearch_search_queries_total",
				Help: "Total search queries, labeled by index name and operation (knn|range).",
			}, []string{"index", "operation"}),
			SearchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "annsearch_search_errors_total",
				Help: "Total search errors, labeled by index name and operation.",
			}, []string{"index", "operation"}),
			SearchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name: "annsearch_search_latency_seconds",
				Help: "Search latency, labeled by index name and operation.",
			}, []string{"index", "operation"}),
		}
	})
	return sharedMetrics
}
