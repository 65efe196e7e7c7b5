package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hfn"

// Metrics holds the service collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	savedOps       *prometheus.CounterVec
	searches       *prometheus.CounterVec
	searchDuration prometheus.Histogram
	tasks          *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		savedOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saved_items_total",
			Help:      "Saved item mutations by operation.",
		}, []string{"op"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_executions_total",
			Help:      "Search executions by outcome.",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Time spent in the search provider and filter pipeline.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Background task executions by type and outcome.",
		}, []string{"type", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.savedOps,
		m.searches,
		m.searchDuration,
		m.tasks,
	)

	return m
}

func (m *Metrics) SavedOp(op string) {
	if m == nil {
		return
	}
	m.savedOps.WithLabelValues(op).Inc()
}

// ObserveSearch matches the search engine observer hook.
func (m *Metrics) ObserveSearch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		m.searchDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) TaskCompleted(taskType string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.tasks.WithLabelValues(taskType, outcome).Inc()
}

// RegisterGauge exposes a value computed at scrape time.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
