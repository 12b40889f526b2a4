// Package metrics exposes Prometheus counters for summarization traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple binaries never collide
// on the global one. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	summarizerCalls    *prometheus.CounterVec
	summarizerDuration *prometheus.HistogramVec
	summaries          *prometheus.CounterVec
	failures           *prometheus.CounterVec
	chunks             prometheus.Histogram
	cacheHits          prometheus.Counter
	formatFallbacks    prometheus.Counter
	tasks              *prometheus.CounterVec
	pruned             prometheus.Counter
}

// New registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		summarizerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papersum_summarizer_calls_total",
			Help: "Calls made to a summarization provider, including reduction calls.",
		}, []string{"provider"}),
		summarizerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "papersum_summarizer_call_duration_seconds",
			Help:    "Latency of single summarization provider calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"provider"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papersum_summaries_total",
			Help: "Summarization requests by outcome.",
		}, []string{"provider", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papersum_summarize_failures_total",
			Help: "Failed summarizations by error kind.",
		}, []string{"kind"}),
		chunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "papersum_chunks_per_summary",
			Help:    "Chunks per summarization request (0 when no chunking was needed).",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papersum_cache_hits_total",
			Help: "Summaries served from cache.",
		}),
		formatFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papersum_markdown_fallbacks_total",
			Help: "Summaries returned unformatted because the formatter failed.",
		}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papersum_worker_tasks_total",
			Help: "Background tasks handled by the worker, by outcome.",
		}, []string{"type", "outcome"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papersum_pruned_papers_total",
			Help: "Papers removed by the retention job.",
		}),
	}
	m.registry.MustRegister(
		m.summarizerCalls,
		m.summarizerDuration,
		m.summaries,
		m.failures,
		m.chunks,
		m.cacheHits,
		m.formatFallbacks,
		m.tasks,
		m.pruned,
	)
	return m
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCall(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.summarizerCalls.WithLabelValues(provider).Inc()
	m.summarizerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) ObserveSummary(provider string, chunks int, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else {
		m.chunks.Observe(float64(chunks))
	}
	m.summaries.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveFailure(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) FormatFallback() {
	if m == nil {
		return
	}
	m.formatFallbacks.Inc()
}

// ObserveTask records a worker task outcome: "ready", "retry" or "failed".
func (m *Metrics) ObserveTask(taskType, outcome string) {
	if m == nil {
		return
	}
	m.tasks.WithLabelValues(taskType, outcome).Inc()
}

func (m *Metrics) Pruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}
