package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks coordinator operations by name and result.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_operations_total",
			Help: "Total number of coordinator operations (by operation and result).",
		},
		[]string{"operation", "result"}, // result = "ok" | "error"
	)

	// Measures duration of coordinator operations.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coordinator_operation_duration_seconds",
			Help:    "Duration of coordinator operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"operation"},
	)

	// Tracks idempotency guard hits and misses.
	IdempotencyLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_idempotency_lookups_total",
			Help: "Number of idempotency key lookups by result (hit | miss).",
		},
		[]string{"result"},
	)

	// Tracks settlement adapter invocations.
	SettlementExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_settlement_executions_total",
			Help: "Settlement adapter invocations by adapter and result.",
		},
		[]string{"adapter", "result"},
	)

	// Tracks lifecycle events published to NATS.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_events_published_total",
			Help: "Lifecycle events published by subject and result.",
		},
		[]string{"subject", "result"},
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coordinator_errors_total",
			Help: "Count of coordinator errors by component and reason.",
		},
		[]string{"component", "reason"},
	)
)

// ObserveOperation records a completed operation with its duration.
func ObserveOperation(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OperationsTotal.WithLabelValues(op, result).Inc()
	OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func IncIdempotency(result string) {
	IdempotencyLookups.WithLabelValues(result).Inc()
}

func IncSettlement(adapter, result string) {
	SettlementExecutions.WithLabelValues(adapter, result).Inc()
}

func IncEvent(subject, result string) {
	EventsPublished.WithLabelValues(subject, result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}
