package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopstack/auth-service/internal/core/domain/auth"
	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
	"github.com/shopstack/auth-service/internal/core/ports"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		},
		[]string{"method", "endpoint"},
	)

	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	rateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rate_limit_decisions_total",
			Help: "Login rate limit decisions by dimension",
		},
		[]string{"dimension", "allowed"},
	)

	rateLimitStoreErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_rate_limit_store_errors_total",
			Help: "Rate limit hits that failed to reach the counter store",
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(loginAttempts)
	prometheus.MustRegister(rateLimitDecisions)
	prometheus.MustRegister(rateLimitStoreErrors)
}

// GetRequestsTotal returns the requests total metric for middleware use
func GetRequestsTotal() *prometheus.CounterVec {
	return requestsTotal
}

// GetRequestDuration returns the request duration metric for middleware use
func GetRequestDuration() *prometheus.HistogramVec {
	return requestDuration
}

func recordLogin(err error, dims []ratelimit.DimensionDecision) {
	for _, d := range dims {
		rateLimitDecisions.WithLabelValues(d.Name, strconv.FormatBool(d.Decision.Allowed)).Inc()
	}
	loginAttempts.WithLabelValues(loginOutcome(err)).Inc()
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, auth.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrServiceUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// InstrumentedRateLimiter counts counter store failures of the wrapped limiter.
type InstrumentedRateLimiter struct {
	inner ports.RateLimiter
}

func NewInstrumentedRateLimiter(inner ports.RateLimiter) *InstrumentedRateLimiter {
	return &InstrumentedRateLimiter{inner: inner}
}

func (l *InstrumentedRateLimiter) Hit(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
	d, err := l.inner.Hit(ctx, key, limit, window)
	if errors.Is(err, ratelimit.ErrStoreUnavailable) {
		rateLimitStoreErrors.Inc()
	}
	return d, err
}

// LogMetricsInitialization logs that metrics have been initialized
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.Info("Prometheus metrics initialized and registered")
		s.logger.WithFields(map[string]interface{}{
			"http_requests_total":                "Counter for HTTP requests by method, endpoint, status",
			"http_request_duration":              "Histogram for HTTP request duration by method, endpoint",
			"auth_login_attempts_total":          "Counter for login attempts by outcome",
			"auth_rate_limit_decisions_total":    "Counter for rate limit decisions by dimension, allowed",
			"auth_rate_limit_store_errors_total": "Counter for failed counter store round trips",
			"metrics_endpoint":                   "/metrics",
		}).Debug("Available Prometheus metrics")
	}
}

// Metrics handler
func (s *Server) metricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsEndpoint wraps the metrics handler with logging
func (s *Server) metricsEndpoint(c echo.Context) error {
	if s.logger != nil {
		s.logger.Debug("Serving Prometheus metrics")
	}
	handler := s.metricsHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
