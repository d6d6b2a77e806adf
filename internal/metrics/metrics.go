// Package metrics exposes Prometheus instruments for search and index builds.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tansaku"

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
	OutcomeEmpty   = "empty"
)

// Stage label values for candidate counts.
const (
	StageRetrieved = "retrieved"
	StageFiltered  = "filtered"
	StageReturned  = "returned"
)

// Metrics holds the registry and every instrument.
type Metrics struct {
	registry *prometheus.Registry

	searchTotal    *prometheus.CounterVec
	searchDuration prometheus.Histogram
	candidates     *prometheus.HistogramVec

	buildTotal    *prometheus.CounterVec
	buildDuration prometheus.Histogram
	buildRecords  prometheus.Gauge

	cacheOnce sync.Once
}

// New creates a registry with Go and process collectors plus the search and build metrics.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.searchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_total",
			Help:      "Total number of searches by outcome",
		},
		[]string{"outcome"},
	)
	m.searchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_duration_seconds",
		Help:      "Search latency from query to ranked results",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})
	m.candidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_candidates",
			Help:      "Number of candidates per pipeline stage",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"stage"},
	)
	m.buildTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_build_total",
			Help:      "Total number of index builds by outcome",
		},
		[]string{"outcome"},
	)
	m.buildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "index_build_duration_seconds",
		Help:      "Duration of full index rebuilds",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	m.buildRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "index_records",
		Help:      "Number of records in the last successful build",
	})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.searchTotal,
		m.searchDuration,
		m.candidates,
		m.buildTotal,
		m.buildDuration,
		m.buildRecords,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one search.
func (m *Metrics) ObserveSearch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.searchTotal.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(d.Seconds())
}

// ObserveCandidates records how many candidates survived a stage.
func (m *Metrics) ObserveCandidates(stage string, n int) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(stage).Observe(float64(n))
}

// ObserveBuild records one build attempt. Duration and record count are kept only for
// completed rebuilds.
func (m *Metrics) ObserveBuild(outcome string, d time.Duration, records int) {
	if m == nil {
		return
	}
	m.buildTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.buildDuration.Observe(d.Seconds())
		m.buildRecords.Set(float64(records))
	}
}

// RegisterSynonymCache exports hit and miss counters read from stats at scrape time.
// Only the first call has an effect.
func (m *Metrics) RegisterSynonymCache(stats func() (hits, misses uint64)) {
	if m == nil || stats == nil {
		return
	}
	m.cacheOnce.Do(func() {
		hits := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synonym_cache_hits_total",
			Help:      "Synonym lookups served from the memo cache",
		}, func() float64 {
			h, _ := stats()
			return float64(h)
		})
		misses := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synonym_cache_misses_total",
			Help:      "Synonym lookups that went to the thesaurus",
		}, func() float64 {
			_, mi := stats()
			return float64(mi)
		})
		m.registry.MustRegister(hits, misses)
	})
}
