package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LeaveRequestsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leave_requests_created_total",
			Help: "Total number of leave requests created.",
		},
	)

	LeaveStatusTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leave_status_transitions_total",
			Help: "Total number of leave status changes by previous and new status.",
		},
		[]string{"from", "to"},
	)

	OutboxEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox events processed by the worker.",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// MustRegister registers every collector with the default registry. Safe to call more
// than once.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDurationSeconds,
			LeaveRequestsCreatedTotal,
			LeaveStatusTransitionsTotal,
			OutboxEventsTotal,
		)
	})
}
