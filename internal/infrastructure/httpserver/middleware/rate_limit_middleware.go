package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
	"github.com/shopstack/auth-service/internal/core/ports"
)

// RateLimitPolicy limits requests per source address.
type RateLimitPolicy struct {
	KeyPrefix string
	Scope     string
	Limit     int
	Window    time.Duration
}

type RateLimitMiddleware struct {
	rateLimiter ports.RateLimiter
	policy      RateLimitPolicy
	logger      *logrus.Logger
}

func NewRateLimitMiddleware(rateLimiter ports.RateLimiter, policy RateLimitPolicy, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter, policy: policy, logger: logger}
}

// Handler counts the request against the caller's address. Store errors let
// the request through.
func (r *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			key := ratelimit.Key(r.policy.KeyPrefix, r.policy.Scope, ip)
			d, err := r.rateLimiter.Hit(c.Request().Context(), key, r.policy.Limit, r.policy.Window)
			if err != nil {
				if r.logger != nil {
					r.logger.WithError(err).WithFields(logrus.Fields{"ip": ip, "scope": r.policy.Scope}).Warn("rate limiter error; allowing request (fail-open)")
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(r.policy.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetEpoch, 10))

			if !d.Allowed {
				h.Set("Retry-After", strconv.FormatInt(int64(r.policy.Window/time.Second), 10))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests. Try again later.")
			}
			return next(c)
		}
	}
}
