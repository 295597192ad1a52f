package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ddports "civicpulse/contexts/civic-reporting/duplicate-detection/ports"
)

// Metrics holds the process-wide Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	DuplicateChecks      prometheus.Counter
	DuplicateMatches     prometheus.Counter
	EmbeddingFailures    prometheus.Counter
	EmbeddingDuration    prometheus.Histogram
	LifecycleTransitions *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		DuplicateChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "civic_duplicate_checks_total",
			Help: "Number of duplicate-detection checks performed.",
		}),
		DuplicateMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "civic_duplicate_matches_total",
			Help: "Number of checks that surfaced at least one match.",
		}),
		EmbeddingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "civic_embedding_failures_total",
			Help: "Number of failed embedding provider calls.",
		}),
		EmbeddingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "civic_embedding_request_seconds",
			Help:    "Embedding provider call duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		LifecycleTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_lifecycle_transitions_total",
			Help: "Number of committed issue lifecycle transitions.",
		}, []string{"action"}),
	}
	registry.MustRegister(
		m.DuplicateChecks,
		m.DuplicateMatches,
		m.EmbeddingFailures,
		m.EmbeddingDuration,
		m.LifecycleTransitions,
	)
	return m
}

// Handler serves the registry for the /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InstrumentedEmbedder wraps an embedding provider with duration and
// failure collectors.
type InstrumentedEmbedder struct {
	Inner   ddports.EmbeddingProvider
	Metrics *Metrics
}

func (e InstrumentedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	start := time.Now()
	vector, err := e.Inner.Embed(ctx, text)
	if e.Metrics != nil {
		e.Metrics.EmbeddingDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			e.Metrics.EmbeddingFailures.Inc()
		}
	}
	return vector, err
}
