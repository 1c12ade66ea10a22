package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	config "github.com/shopstack/auth-service/configs"
	"github.com/shopstack/auth-service/internal/core/ports"
)

// MiddlewareCollection holds all middleware instances
type MiddlewareCollection struct {
	Bearer        *BearerMiddleware
	Logging       *LoggingMiddleware
	RegisterLimit *RateLimitMiddleware
	Metrics       *MetricsMiddleware
}

// NewMiddlewareCollection creates a new collection of all middleware.
// A nil limiter disables registration limiting.
func NewMiddlewareCollection(
	authService ports.AuthService,
	limiter ports.RateLimiter,
	rateLimits *config.RateLimitConfig,
	logger *logrus.Logger,
	requestsTotal *prometheus.CounterVec,
	requestDuration *prometheus.HistogramVec,
) *MiddlewareCollection {
	mc := &MiddlewareCollection{
		Bearer:  NewBearerMiddleware(authService, logger),
		Logging: NewLoggingMiddleware(logger),
		Metrics: NewMetricsMiddleware(requestsTotal, requestDuration),
	}
	if limiter != nil && rateLimits != nil {
		mc.RegisterLimit = NewRateLimitMiddleware(limiter, RateLimitPolicy{
			KeyPrefix: rateLimits.KeyPrefix,
			Scope:     "register:ip",
			Limit:     rateLimits.RegisterIP.Limit,
			Window:    rateLimits.RegisterIP.Window,
		}, logger)
	}
	return mc
}
