// Package metrics defines the Prometheus collectors shared by the client-side
// session layer and the reference backend.
//
// A nil *Collector is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides convenience methods for recording metrics.
type Collector struct {
	commits        *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	jobs           *prometheus.CounterVec
	jobAttempts    prometheus.Histogram
	httpDuration   *prometheus.HistogramVec
	generatedDays  prometheus.Counter
	generationRuns prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		commits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripmind_commits_total",
				Help: "Optimistic edits by field and final state",
			},
			[]string{"field", "result"}, // result: settled, rolled_back, superseded
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripmind_suggestion_cache_lookups_total",
				Help: "Suggestion cache lookups by category and result",
			},
			[]string{"category", "result"}, // result: hit, miss
		),
		jobs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripmind_generation_jobs_total",
				Help: "Generation jobs by kind and terminal state",
			},
			[]string{"kind", "state"},
		),
		jobAttempts: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tripmind_generation_job_attempts",
				Help:    "Polls used by finished generation jobs",
				Buckets: []float64{1, 2, 5, 10, 20, 40},
			},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tripmind_http_request_duration_seconds",
				Help:    "Backend request duration by route and status",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"method", "route", "status"},
		),
		generatedDays: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tripmind_itinerary_days_generated_total",
				Help: "Itinerary days produced by the backend generator",
			},
		),
		generationRuns: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "tripmind_generation_runs_active",
				Help: "Backend generation runs currently filling itineraries",
			},
		),
	}
}

// RecordCommit counts the final state of one optimistic edit.
func (c *Collector) RecordCommit(field, result string) {
	if c == nil {
		return
	}
	c.commits.WithLabelValues(field, result).Inc()
}

// RecordCacheLookup counts a suggestion cache hit or miss.
func (c *Collector) RecordCacheLookup(category string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(category, result).Inc()
}

// RecordJob counts a finished generation job and the polls it used.
func (c *Collector) RecordJob(kind, state string, attempts int) {
	if c == nil {
		return
	}
	c.jobs.WithLabelValues(kind, state).Inc()
	c.jobAttempts.Observe(float64(attempts))
}

// RecordHTTPRequest observes one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// AddGeneratedDays counts itinerary days written by the generator.
func (c *Collector) AddGeneratedDays(n int) {
	if c == nil {
		return
	}
	c.generatedDays.Add(float64(n))
}

// GenerationStarted and GenerationFinished track in-flight generation runs.
func (c *Collector) GenerationStarted() {
	if c == nil {
		return
	}
	c.generationRuns.Inc()
}

func (c *Collector) GenerationFinished() {
	if c == nil {
		return
	}
	c.generationRuns.Dec()
}
