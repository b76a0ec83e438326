package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// SessionEvents counts session lifecycle transitions by mode.
	SessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_session_events_total",
			Help: "Session lifecycle events (started, resumed, patched, submitted, abandoned)",
		},
		[]string{"event", "mode"},
	)

	AttemptScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assessment_attempt_percentage",
			Help:    "Percentage score of recorded attempts",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"mode"},
	)

	StalePatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_stale_patches_total",
			Help: "Patches applied on top of a newer server version",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assessment_active_sessions",
			Help: "Number of sessions currently in the active state",
		},
	)

	EndlessBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_endless_batches_total",
			Help: "Endless question batches served",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SessionEvents,
			AttemptScore,
			StalePatches,
			ActiveSessions,
			EndlessBatches,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
