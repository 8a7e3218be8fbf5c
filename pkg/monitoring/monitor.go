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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Progression operations applied to sessions",
		},
		[]string{"operation"},
	)

	AnswerSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_answer_submissions_total",
			Help: "Verified answer submissions by outcome",
		},
		[]string{"result"},
	)

	RatingsSubmitted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "session_rating_value",
			Help:    "Distribution of submitted session ratings",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	TextGenerationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "text_generation_failures_total",
			Help: "Text generation calls replaced by the placeholder",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(SessionTransitions)
		prometheus.MustRegister(AnswerSubmissions)
		prometheus.MustRegister(RatingsSubmitted)
		prometheus.MustRegister(TextGenerationFailures)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
