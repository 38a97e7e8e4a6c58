// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rental"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route template and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route template.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// OrderActions counts lifecycle actions; result is ok, rejected or error
	OrderActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_actions_total",
		Help:      "Rental order lifecycle actions by action and result.",
	}, []string{"action", "result"})

	PaymentsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_registered_total",
		Help:      "Payments registered against rental orders.",
	})

	PaymentAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_amount_total",
		Help:      "Sum of registered payment amounts.",
	})

	LockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "lock_wait_seconds",
		Help:      "Time spent waiting for a product or order lock.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	})

	LockExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lock_expired_total",
		Help:      "Redis locks whose TTL ran out before the holder released them.",
	})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Scheduled job executions by job and result.",
	}, []string{"job", "result"})

	OverdueOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "overdue_orders",
		Help:      "Ongoing orders past their end date at the last reminder run.",
	})

	MaintenanceDueProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "maintenance_due_products",
		Help:      "Products whose next maintenance date has passed at the last check.",
	})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Outgoing notifications by channel and result.",
	}, []string{"channel", "result"})
)

// Result labels
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)
