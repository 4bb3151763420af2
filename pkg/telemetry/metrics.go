package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus observability primitives for the commission engine.
type Metrics struct {
	apiRequests        *prometheus.CounterVec
	apiDuration        *prometheus.HistogramVec
	resolutionDuration *prometheus.HistogramVec
	resolutionMisses   prometheus.Counter
	transactions       *prometheus.CounterVec
	commissionAmount   *prometheus.HistogramVec
	outboxDispatch     *prometheus.CounterVec
	outboxBacklog      prometheus.Gauge
}

// NewMetrics registers and returns Prometheus metrics for telemetry.
func NewMetrics() *Metrics {
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comiso_api_requests_total",
		Help: "Counts API requests by method and status.",
	}, []string{"method", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "comiso_api_duration_seconds",
		Help:    "API request latency per method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	resolutionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "comiso_resolution_duration_seconds",
		Help:    "Policy resolution latency by resolved level.",
		Buckets: prometheus.DefBuckets,
	}, []string{"level"})

	resolutionMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "comiso_resolution_misses_total",
		Help: "Resolutions that matched no rule in any tier.",
	})

	transactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comiso_transactions_total",
		Help: "Commission transactions created by outcome.",
	}, []string{"outcome"})

	commissionAmount := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "comiso_commission_amount",
		Help:    "Commission amount distribution by calculation type.",
		Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
	}, []string{"calculation_type"})

	outboxDispatch := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comiso_outbox_dispatch_total",
		Help: "Counts dispatcher batches by status.",
	}, []string{"status"})

	outboxBacklog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "comiso_outbox_backlog",
		Help: "Number of pending events in the outbox.",
	})

	prometheus.MustRegister(
		apiRequests,
		apiDuration,
		resolutionDuration,
		resolutionMisses,
		transactions,
		commissionAmount,
		outboxDispatch,
		outboxBacklog,
	)

	return &Metrics{
		apiRequests:        apiRequests,
		apiDuration:        apiDuration,
		resolutionDuration: resolutionDuration,
		resolutionMisses:   resolutionMisses,
		transactions:       transactions,
		commissionAmount:   commissionAmount,
		outboxDispatch:     outboxDispatch,
		outboxBacklog:      outboxBacklog,
	}
}

// ObserveAPIRequest records an API request and latency.
func (m *Metrics) ObserveAPIRequest(method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, status).Inc()
	m.apiDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveResolution records a policy resolution outcome and latency.
func (m *Metrics) ObserveResolution(level string, duration time.Duration) {
	if m == nil {
		return
	}
	if level == "" {
		m.resolutionMisses.Inc()
		level = "none"
	}
	m.resolutionDuration.WithLabelValues(level).Observe(duration.Seconds())
}

// ObserveTransaction records a created commission transaction.
func (m *Metrics) ObserveTransaction(outcome, calculationType string, amount float64) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(outcome).Inc()
	if calculationType != "" {
		m.commissionAmount.WithLabelValues(calculationType).Observe(amount)
	}
}

// ObserveOutboxDispatch records one dispatcher batch.
func (m *Metrics) ObserveOutboxDispatch(status string) {
	if m == nil {
		return
	}
	m.outboxDispatch.WithLabelValues(status).Inc()
}

// SetOutboxBacklog reports the pending outbox depth.
func (m *Metrics) SetOutboxBacklog(depth float64) {
	if m == nil {
		return
	}
	m.outboxBacklog.Set(depth)
}
