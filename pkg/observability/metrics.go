package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	connectionsOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlgateway_connections_opened_total",
			Help: "Total number of database connections opened, by profile.",
		},
		[]string{"profile"},
	)
	connectionsDiscardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlgateway_connections_discarded_total",
			Help: "Total number of stale connections discarded on withdrawal from the idle pool.",
		},
		[]string{"profile"},
	)
	idleConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sqlgateway_idle_connections",
			Help: "Current number of idle pooled connections, by profile.",
		},
		[]string{"profile"},
	)
	activeBindings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sqlgateway_execution_bindings",
			Help: "Current number of execution identifiers bound to a connection.",
		},
	)
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlgateway_executions_total",
			Help: "Total number of executions, by profile and result code.",
		},
		[]string{"profile", "code"},
	)
	executionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlgateway_execution_duration_seconds",
			Help:    "Execution latency by profile.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"profile"},
	)
	cancelsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlgateway_cancels_total",
			Help: "Total number of cancel requests, by outcome.",
		},
		[]string{"outcome"},
	)
	closeFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlgateway_close_failures_total",
			Help: "Total number of statement or connection close failures.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		connectionsOpenedTotal,
		connectionsDiscardedTotal,
		idleConnections,
		activeBindings,
		executionsTotal,
		executionDurationSeconds,
		cancelsTotal,
		closeFailuresTotal,
	)
}

func ObserveConnectionOpened(profile string) {
	connectionsOpenedTotal.WithLabelValues(profile).Inc()
}

func ObserveConnectionDiscarded(profile string) {
	connectionsDiscardedTotal.WithLabelValues(profile).Inc()
}

func SetIdleConnections(profile string, count int) {
	idleConnections.WithLabelValues(profile).Set(float64(count))
}

func SetActiveBindings(count int) {
	activeBindings.Set(float64(count))
}

func ObserveExecution(profile, code string, duration time.Duration) {
	executionsTotal.WithLabelValues(profile, code).Inc()
	executionDurationSeconds.WithLabelValues(profile).Observe(duration.Seconds())
}

// Cancel outcomes.
const (
	CancelOutcomeSignaled    = "signaled"
	CancelOutcomeNotBound    = "not_bound"
	CancelOutcomeUnsupported = "unsupported"
)

func ObserveCancel(outcome string) {
	cancelsTotal.WithLabelValues(outcome).Inc()
}

func ObserveCloseFailure() {
	closeFailuresTotal.Inc()
}
