package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	matchTierTotal  *prometheus.CounterVec
	linesPerOrder   *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oreg",
			Subsystem: "worker",
			Name:      "order_process_total",
			Help:      "Total processed orders by resulting status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oreg",
			Subsystem: "worker",
			Name:      "order_process_duration_seconds",
			Help:      "Order pipeline duration in seconds by resulting status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "oreg",
			Subsystem: "worker",
			Name:      "order_process_in_flight",
			Help:      "Number of in-flight order pipeline runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oreg",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between order admission and pipeline start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	matchTierTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oreg",
			Subsystem: "worker",
			Name:      "match_tier_total",
			Help:      "Total matched lines by the tier that resolved them.",
		},
		[]string{"service", "tier"},
	)
	linesPerOrder := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oreg",
			Subsystem: "worker",
			Name:      "lines_per_order",
			Help:      "Distribution of extracted line items per order.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		processTotal,
		processDuration,
		processInFlight,
		queueLag,
		matchTierTotal,
		linesPerOrder,
	)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		matchTierTotal:  matchTierTotal,
		linesPerOrder:   linesPerOrder,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartOrder() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishOrder(service, status string, duration time.Duration) {
	m.processInFlight.Dec()

	if status == "" {
		status = "error"
	}
	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordMatchTier(service, tier string) {
	if tier == "" {
		tier = "none"
	}
	m.matchTierTotal.WithLabelValues(service, tier).Inc()
}

func (m *WorkerMetrics) ObserveLineCount(service string, lines int) {
	m.linesPerOrder.WithLabelValues(service).Observe(float64(lines))
}
