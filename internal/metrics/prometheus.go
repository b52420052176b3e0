// Package metrics provides Prometheus metrics collection for the risk service
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskgate",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskgate",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "riskgate",
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Decision pipeline metrics
var (
	assessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskgate",
			Name:      "assessments_total",
			Help:      "Total number of risk assessments",
		},
		[]string{"level", "action"},
	)

	outcomeRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskgate",
			Name:      "outcome_records_total",
			Help:      "Total number of outcome recording attempts",
		},
		[]string{"outcome", "result"}, // outcome: success, failure; result: recorded, lock_timeout, error
	)

	factorScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskgate",
			Name:      "factor_score",
			Help:      "Per-factor sub-score distribution (0-100)",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"factor"},
	)

	stepUpEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskgate",
			Name:      "stepup_events_total",
			Help:      "Total number of step-up session transitions",
		},
		[]string{"event"}, // event: requested, verified, expired, ended
	)
)

// Middleware returns a Gin middleware that records HTTP metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		// Skip metrics endpoint itself to avoid recursion
		if path == "/metrics" {
			c.Next()
			return
		}

		httpRequestsInFlight.Inc()
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpRequestsInFlight.Dec()
	}
}

// Handler returns a gin.HandlerFunc that serves Prometheus metrics.
// Register this on the "/metrics" route.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAssessment records one completed risk assessment.
func RecordAssessment(level, action string) {
	assessmentsTotal.WithLabelValues(level, action).Inc()
}

// RecordFactorScore records one factor's sub-score.
func RecordFactorScore(factor string, score int) {
	factorScores.WithLabelValues(factor).Observe(float64(score))
}

// RecordOutcomeResult records one outcome-recording attempt.
func RecordOutcomeResult(success bool, err error) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	result := "recorded"
	if err != nil {
		result = "error"
	}
	outcomeRecordsTotal.WithLabelValues(outcome, result).Inc()
}

// RecordLockTimeout records an outcome write rejected by the identity lock.
func RecordLockTimeout(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	outcomeRecordsTotal.WithLabelValues(outcome, "lock_timeout").Inc()
}

// RecordStepUpEvent records a step-up session transition.
func RecordStepUpEvent(event string) {
	stepUpEventsTotal.WithLabelValues(event).Inc()
}
