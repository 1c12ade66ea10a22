package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shopstack/auth-service/internal/core/domain/account"
	"github.com/shopstack/auth-service/internal/core/domain/auth"
	"github.com/shopstack/auth-service/internal/core/domain/ratelimit"
	"github.com/shopstack/auth-service/internal/infrastructure/httpserver/helpers"
)

func (s *Server) register(c echo.Context) error {
	var req account.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apiError(http.StatusBadRequest, CodeInvalidInput, "invalid request body")
	}

	acct, err := s.accountSvc.Register(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, account.RegisterResponse{ID: acct.ID, Email: acct.Email})
}

func (s *Server) login(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return apiError(http.StatusBadRequest, CodeInvalidInput, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apiError(http.StatusBadRequest, CodeInvalidInput, "email and password are required")
	}

	res, err := s.authSvc.Login(c.Request().Context(), &auth.LoginAttempt{
		Email:         req.Email,
		Password:      req.Password,
		SourceAddress: c.RealIP(),
	})
	if err != nil {
		dims := auth.DimensionsOf(err)
		setRateLimitHeaders(c, dims)
		var limited *auth.RateLimitedError
		if errors.As(err, &limited) {
			c.Response().Header().Set("Retry-After", strconv.FormatInt(int64(limited.RetryAfter/time.Second), 10))
		}
		recordLogin(err, dims)
		return err
	}

	setRateLimitHeaders(c, res.Dimensions)
	recordLogin(nil, res.Dimensions)
	return c.JSON(http.StatusOK, res.Token)
}

func (s *Server) verify(c echo.Context) error {
	claims, err := helpers.GetClaimsFromContext(c)
	if err != nil {
		return err
	}
	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}
	return c.JSON(http.StatusOK, auth.VerifyResponse{
		Valid:  true,
		UserID: claims.Subject,
		Email:  claims.Email,
		Roles:  roles,
	})
}

// setRateLimitHeaders reports every dimension as
// X-RateLimit-Remaining-<Name> and X-RateLimit-Reset-<Name>.
func setRateLimitHeaders(c echo.Context, dims []ratelimit.DimensionDecision) {
	h := c.Response().Header()
	for _, d := range dims {
		h.Set("X-RateLimit-Remaining-"+d.Name, strconv.Itoa(d.Decision.Remaining))
		h.Set("X-RateLimit-Reset-"+d.Name, strconv.FormatInt(d.Decision.ResetEpoch, 10))
	}
}
