package httpserver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/auth-service/internal/core/domain/auth"
	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
	"github.com/shopstack/auth-service/internal/mocks"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestInstrumentedRateLimiter_CountsStoreErrors(t *testing.T) {
	failures := 0
	inner := &mocks.RateLimiterMock{
		HitFn: func(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
			switch key {
			case "down":
				failures++
				return ratelimit.Decision{}, fmt.Errorf("%w: i/o timeout", ratelimit.ErrStoreUnavailable)
			case "bad":
				return ratelimit.Decision{}, ratelimit.ErrConfiguration
			}
			return ratelimit.Decision{Allowed: true, Remaining: limit - 1}, nil
		},
	}
	limiter := NewInstrumentedRateLimiter(inner)
	before := counterValue(t, rateLimitStoreErrors)

	d, err := limiter.Hit(context.Background(), "ok", 5, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 4, d.Remaining)

	_, err = limiter.Hit(context.Background(), "down", 5, time.Minute)
	require.ErrorIs(t, err, ratelimit.ErrStoreUnavailable)
	_, err = limiter.Hit(context.Background(), "bad", 5, time.Minute)
	require.ErrorIs(t, err, ratelimit.ErrConfiguration)

	require.Equal(t, 1, failures)
	require.Equal(t, before+1, counterValue(t, rateLimitStoreErrors))
}

func TestRecordLogin(t *testing.T) {
	limited := &auth.RateLimitedError{Dimensions: []ratelimit.DimensionDecision{
		{Name: "IP", Decision: ratelimit.Decision{Allowed: true}},
		{Name: "Email", Decision: ratelimit.Decision{Allowed: false}},
	}}
	for _, tc := range []struct {
		err     error
		outcome string
	}{
		{nil, "success"},
		{limited, "rate_limited"},
		{auth.ErrInvalidCredentials, "invalid_credentials"},
		{fmt.Errorf("%w: lookup", auth.ErrServiceUnavailable), "unavailable"},
		{errors.New("boom"), "error"},
	} {
		require.Equal(t, tc.outcome, loginOutcome(tc.err))
	}

	emailDenied := rateLimitDecisions.WithLabelValues("Email", "false")
	rateLimited := loginAttempts.WithLabelValues("rate_limited")
	beforeDenied, beforeLimited := counterValue(t, emailDenied), counterValue(t, rateLimited)

	recordLogin(limited, limited.Dimensions)

	require.Equal(t, beforeDenied+1, counterValue(t, emailDenied))
	require.Equal(t, beforeLimited+1, counterValue(t, rateLimited))
}
