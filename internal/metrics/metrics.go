package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "practice",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "scheduling",
			Name:      "transitions_total",
			Help:      "Total number of appointment transition attempts.",
		},
		[]string{"event", "outcome"},
	)

	guardDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "practice",
			Subsystem: "scheduling",
			Name:      "guard_duration_seconds",
			Help:      "Time spent running guard plugins inside the transition critical section.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	outboxDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "outbox",
			Name:      "events_delivered_total",
			Help:      "Outbox events fanned out to observers.",
		},
		[]string{"event_type"},
	)

	observerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "outbox",
			Name:      "observer_failures_total",
			Help:      "Observer invocations that returned an error.",
		},
		[]string{"plugin"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		transitions,
		guardDuration,
		outboxDelivered,
		observerFailures,
	)
}

// ObserveTransition records one transition attempt and its outcome
// (committed, conflict, stale, vetoed, timeout, invalid, error).
func ObserveTransition(event, outcome string) {
	transitions.WithLabelValues(event, outcome).Inc()
}

// ObserveGuardDuration records how long the guard phase held the critical section.
func ObserveGuardDuration(d time.Duration) {
	guardDuration.Observe(d.Seconds())
}

// ObserveDelivery records a delivered outbox event.
func ObserveDelivery(eventType string) {
	outboxDelivered.WithLabelValues(eventType).Inc()
}

// ObserveObserverFailure records a failing observer plugin.
func ObserveObserverFailure(plugin string) {
	observerFailures.WithLabelValues(plugin).Inc()
}

// GinMiddleware instruments HTTP handlers with request count and latency.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
