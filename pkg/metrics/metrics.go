// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	IterationsTotal      prometheus.Counter
	IterationDuration    prometheus.Histogram
	TrainingStepsTotal    prometheus.Counter
	JudgmentsTotal        *prometheus.CounterVec
	RefillsTotal          prometheus.Counter
	HorizonDoublingsTotal prometheus.Counter
	CumulativeRelevants   prometheus.Gauge
	CurrentBatchSize      prometheus.Gauge
	CurrentHorizon        prometheus.Gauge
	QueueLength           prometheus.Gauge
	DiscardedUnitsTotal   prometheus.Counter

	CircuitBreakerState *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		IterationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cal_iterations_total",
				Help: "Total train-score-select iterations performed by the controller.",
			},
		),
		IterationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cal_iteration_duration_seconds",
				Help:    "Wall-clock duration of a full train-score-select iteration.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),
		TrainingStepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cal_training_steps_total",
				Help: "Total stochastic learner steps executed across all iterations.",
			},
		),
		JudgmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cal_judgments_total",
				Help: "Total judgments folded in by record_judgment_batch, by label.",
			},
			[]string{"label"},
		),
		RefillsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cal_refills_total",
				Help: "Total judgment-queue refills triggered.",
			},
		),
		HorizonDoublingsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cal_horizon_doublings_total",
				Help: "Total times the scalability horizon T doubled.",
			},
		),
		CumulativeRelevants: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cal_cumulative_relevants",
				Help: "Current R: cumulative positive judgments observed this session.",
			},
		),
		CurrentBatchSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cal_current_batch_size",
				Help: "Current B: the batch size used by the most recent refill.",
			},
		),
		CurrentHorizon: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cal_current_horizon",
				Help: "Current T: the scalability policy's doubling horizon.",
			},
		),
		QueueLength: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cal_judgment_queue_length",
				Help: "Number of paragraph units currently awaiting judgment.",
			},
		),
		DiscardedUnitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cal_discarded_units_total",
				Help: "Total units marked sampled-and-discarded by the scalability subsample.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.IterationsTotal,
		m.IterationDuration,
		m.TrainingStepsTotal,
		m.JudgmentsTotal,
		m.RefillsTotal,
		m.HorizonDoublingsTotal,
		m.CumulativeRelevants,
		m.CurrentBatchSize,
		m.CurrentHorizon,
		m.QueueLength,
		m.DiscardedUnitsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
