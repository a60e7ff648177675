package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "service"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	// Authentication metrics
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "status", "service"},
	)

	// Visit lifecycle metrics
	visitTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visit_transitions_total",
			Help: "Total number of daily visit state transitions",
		},
		[]string{"transition", "status", "service"},
	)

	assignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visit_assignments_total",
			Help: "Total number of visit assignment operations",
		},
		[]string{"operation", "status", "service"},
	)

	// Media sidecar metrics
	mediaUploadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_upload_duration_seconds",
			Help:    "Duration of media sidecar uploads in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"kind", "status", "service"},
	)
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	serviceName string
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	// Register metrics
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		authAttemptsTotal,
		visitTransitionsTotal,
		assignmentsTotal,
		mediaUploadDuration,
	)

	return &MetricsCollector{
		serviceName: serviceName,
	}
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordAuthAttempt records authentication attempt metrics
func (m *MetricsCollector) RecordAuthAttempt(method, status string) {
	authAttemptsTotal.WithLabelValues(method, status, m.serviceName).Inc()
}

// RecordVisitTransition records a daily state machine transition attempt
func (m *MetricsCollector) RecordVisitTransition(transition, status string) {
	visitTransitionsTotal.WithLabelValues(transition, status, m.serviceName).Inc()
}

// RecordAssignment records an assignment planner operation
func (m *MetricsCollector) RecordAssignment(operation, status string) {
	assignmentsTotal.WithLabelValues(operation, status, m.serviceName).Inc()
}

// RecordMediaUpload records media sidecar upload metrics
func (m *MetricsCollector) RecordMediaUpload(kind, status string, duration time.Duration) {
	mediaUploadDuration.WithLabelValues(kind, status, m.serviceName).Observe(duration.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware creates middleware for HTTP request metrics
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		statusCode := strconv.Itoa(wrapper.statusCode)

		m.RecordHTTPRequest(r.Method, r.URL.Path, statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
