package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	evaluationsTotal       *prometheus.CounterVec
	directivesFiredTotal   *prometheus.CounterVec
	emailDispatchTotal     *prometheus.CounterVec
	schedulerRunsTotal     *prometheus.CounterVec
	notificationsPublished *prometheus.CounterVec
	sseClientsActive       prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the KPI engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kpi_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_evaluations_total",
			Help: "Total number of per-user KPI pipeline evaluations.",
		}, []string{"result"})

		directivesFiredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_directives_fired_total",
			Help: "Total number of trigger directives executed, by kind.",
		}, []string{"kind"})

		emailDispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_email_dispatch_total",
			Help: "Total number of email dispatch attempts, by outcome.",
		}, []string{"status"})

		schedulerRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_scheduler_runs_total",
			Help: "Total number of scheduler job runs, by job and result.",
		}, []string{"job", "result"})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_notifications_published_total",
			Help: "Total number of notifications published, by type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kpi_sse_clients_active",
			Help: "Number of currently connected SSE notification clients.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			evaluationsTotal,
			directivesFiredTotal,
			emailDispatchTotal,
			schedulerRunsTotal,
			notificationsPublished,
			sseClientsActive,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// EvaluationsTotal counts per-user pipeline evaluations by result.
func EvaluationsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// DirectivesFiredTotal counts executed trigger directives by kind.
func DirectivesFiredTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return directivesFiredTotal
}

// EmailDispatchTotal counts email dispatch attempts by outcome.
func EmailDispatchTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return emailDispatchTotal
}

// SchedulerRunsTotal counts scheduler job runs by job name and result.
func SchedulerRunsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return schedulerRunsTotal
}

// NotificationsPublishedTotal counts notifications published by type.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// SSEClientsActive exposes the gauge of connected SSE clients.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}
