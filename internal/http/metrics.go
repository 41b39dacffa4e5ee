package http

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *HTTPMetrics
	metricsOnce   sync.Once
)

// HTTPMetrics holds Prometheus metrics for the HTTP API.
type HTTPMetrics struct {
	RequestsTotal  *prometheus.CounterVec
	RequestDur     *prometheus.HistogramVec
	ActiveRequests prometheus.Gauge
}

// NewHTTPMetrics returns the process-wide HTTP metrics, registering them on
// first use.
//
// Metrics:
//   - sovereign_http_requests_total{method,endpoint,status}
//   - sovereign_http_request_duration_seconds{method,endpoint}
//   - sovereign_http_active_requests
func NewHTTPMetrics() *HTTPMetrics {
	metricsOnce.Do(func() {
		globalMetrics = &HTTPMetrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sovereign_http_requests_total",
					Help: "Total HTTP requests",
				},
				[]string{"method", "endpoint", "status"},
			),
			RequestDur: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "sovereign_http_request_duration_seconds",
					Help:    "HTTP request duration in seconds",
					Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
				},
				[]string{"method", "endpoint"},
			),
			ActiveRequests: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "sovereign_http_active_requests",
					Help: "Number of in-flight HTTP requests",
				},
			),
		}
	})
	return globalMetrics
}

// MetricsMiddleware returns an Echo middleware that records HTTP metrics.
// Endpoints are labelled by route pattern, never by raw URI.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			m.ActiveRequests.Inc()
			defer m.ActiveRequests.Dec()

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			method := c.Request().Method

			m.RequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
			m.RequestDur.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
