package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 预测服务指标. Each instance owns its registry so tests can create
// as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	predictions   *prometheus.CounterVec
	errors        *prometheus.CounterVec
	latency       prometheus.Histogram
	cacheHits     prometheus.Counter
	bundleReloads *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "housevalue_predictions_total",
			Help: "Predictions served, by tier.",
		}, []string{"tier"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "housevalue_prediction_errors_total",
			Help: "Rejected prediction requests, by kind.",
		}, []string{"kind"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "housevalue_prediction_duration_seconds",
			Help:    "Time spent in the inference pipeline.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "housevalue_prediction_cache_hits_total",
			Help: "Predictions answered from the cache.",
		}),
		bundleReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "housevalue_bundle_reloads_total",
			Help: "Bundle reload attempts, by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.predictions,
		m.errors,
		m.latency,
		m.cacheHits,
		m.bundleReloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObservePrediction(tier string, elapsed time.Duration) {
	m.predictions.WithLabelValues(tier).Inc()
	m.latency.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveError(kind string) {
	m.errors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveCacheHit() {
	m.cacheHits.Inc()
}

func (m *Metrics) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.bundleReloads.WithLabelValues(result).Inc()
}

// Handler 暴露 /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
