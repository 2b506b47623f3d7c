package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Index build outcomes.
const (
	BuildBuilt     = "built"
	BuildReused    = "reused"
	BuildMemory    = "memory_only"
	BuildFailed    = "failed"
	BuildCacheLoad = "cache_load"
)

// Metrics holds the Prometheus collectors for menu search. All methods are
// safe on a nil receiver so callers can leave metrics disabled.
type Metrics struct {
	registry *prometheus.Registry

	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram
	IndexBuildsTotal   *prometheus.CounterVec
	IndexBuildDuration prometheus.Histogram
	IndexDocuments     *prometheus.GaugeVec
	SyncRunsTotal      *prometheus.CounterVec
	MemoEntries        prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry together with
// the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menusearch_queries_total",
				Help: "Total searches by order type and outcome (hit, zero_result, unavailable).",
			},
			[]string{"order_type", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "menusearch_query_latency_seconds",
				Help:    "Search latency in seconds by number of query variants.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
			},
			[]string{"variants"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "menusearch_query_results",
				Help:    "Number of results returned per search.",
				Buckets: []float64{0, 1, 3, 5, 10, 25, 50},
			},
		),
		IndexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menusearch_index_builds_total",
				Help: "Index build attempts by outcome (built, reused, memory_only, cache_load, failed).",
			},
			[]string{"outcome"},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "menusearch_index_build_seconds",
				Help:    "Time to build or load one index.",
				Buckets: prometheus.DefBuckets,
			},
		),
		IndexDocuments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "menusearch_index_documents",
				Help: "Documents in the current index of each context.",
			},
			[]string{"namespace", "order_type"},
		),
		SyncRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "menusearch_sync_runs_total",
				Help: "Index sync runs by result (ok, partial, failed).",
			},
			[]string{"result"},
		),
		MemoEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "menusearch_memo_entries",
				Help: "Indexes held in the in-process memo.",
			},
		),
	}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.IndexBuildsTotal,
		m.IndexBuildDuration,
		m.IndexDocuments,
		m.SyncRunsTotal,
		m.MemoEntries,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the HTTP handler serving the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one search.
func (m *Metrics) ObserveSearch(ev QueryEvent) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(ev.OrderType, ev.Outcome()).Inc()
	m.SearchLatency.WithLabelValues(variantsLabel(ev.Variants)).Observe(ev.Latency.Seconds())
	m.SearchResultsCount.Observe(float64(ev.ResultCount))
}

// ObserveBuild records one index build or load.
func (m *Metrics) ObserveBuild(namespace, orderType, outcome string, documents int, d time.Duration) {
	if m == nil {
		return
	}
	m.IndexBuildsTotal.WithLabelValues(outcome).Inc()
	m.IndexBuildDuration.Observe(d.Seconds())
	if outcome != BuildFailed {
		m.IndexDocuments.WithLabelValues(namespace, orderType).Set(float64(documents))
	}
}

// ObserveSync records the result of a sync run.
func (m *Metrics) ObserveSync(failed, total int, err error) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case err != nil:
		result = "failed"
	case failed > 0 && failed == total:
		result = "failed"
	case failed > 0:
		result = "partial"
	}
	m.SyncRunsTotal.WithLabelValues(result).Inc()
}

// SetMemoEntries records the memo size.
func (m *Metrics) SetMemoEntries(n int) {
	if m == nil {
		return
	}
	m.MemoEntries.Set(float64(n))
}

func variantsLabel(n int) string {
	switch {
	case n <= 0:
		return "0"
	case n == 1:
		return "1"
	default:
		return "2"
	}
}
