package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// MetricsRegistry holds the Prometheus metrics for the induction service.
type MetricsRegistry struct {
	registry *prometheus.Registry

	RunDuration *prometheus.HistogramVec
	RunsTotal   *prometheus.CounterVec
	ActiveRuns  prometheus.Gauge

	SelectedCount prometheus.Gauge
	FallbackRuns  prometheus.Counter

	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CacheHitRatio prometheus.Gauge
}

// NewMetricsRegistry creates and registers the service metrics on a private
// registry, so tests can build registries side by side.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inductor_run_duration_seconds",
				Help:    "Duration of optimisation runs in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inductor_runs_total",
				Help: "Total optimisation runs by result status",
			},
			[]string{"status"},
		),
		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inductor_active_runs",
				Help: "Number of optimisation runs currently executing",
			},
		),
		SelectedCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inductor_last_selected_count",
				Help: "Trainsets selected by the most recent run",
			},
		),
		FallbackRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "inductor_fallback_runs_total",
				Help: "Runs that fell back to the greedy projection",
			},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "inductor_roster_cache_hits_total",
				Help: "Roster document cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "inductor_roster_cache_misses_total",
				Help: "Roster document cache misses",
			},
		),
		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "inductor_roster_cache_hit_ratio",
				Help: "Roster cache hit ratio (0.0 to 1.0)",
			},
		),
	}

	m.registry.MustRegister(
		m.RunDuration,
		m.RunsTotal,
		m.ActiveRuns,
		m.SelectedCount,
		m.FallbackRuns,
		m.CacheHits,
		m.CacheMisses,
		m.CacheHitRatio,
	)
	log.Debug().Msg("metrics registry initialized")
	return m
}

// RecordRun books one finished run under its result status.
func (m *MetricsRegistry) RecordRun(status string, seconds float64, selected int) {
	m.RunDuration.WithLabelValues(status).Observe(seconds)
	m.RunsTotal.WithLabelValues(status).Inc()
	m.SelectedCount.Set(float64(selected))
}

// RecordCacheHit books a roster cache hit and refreshes the ratio gauge.
func (m *MetricsRegistry) RecordCacheHit() {
	m.CacheHits.Inc()
	m.updateCacheHitRatio()
}

// RecordCacheMiss books a roster cache miss and refreshes the ratio gauge.
func (m *MetricsRegistry) RecordCacheMiss() {
	m.CacheMisses.Inc()
	m.updateCacheHitRatio()
}

func (m *MetricsRegistry) updateCacheHitRatio() {
	hits := counterValue(m.CacheHits)
	misses := counterValue(m.CacheMisses)
	if total := hits + misses; total > 0 {
		m.CacheHitRatio.Set(hits / total)
	}
}

func counterValue(c prometheus.Counter) float64 {
	var pb io_prometheus_client.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}

// Handler exposes the registry in Prometheus text format.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
