package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/shopstack/auth-service/internal/core/domain/account"
	"github.com/shopstack/auth-service/internal/core/domain/auth"
)

// Error codes returned in the body of every failed request.
const (
	CodeRateLimited        = "RATE_LIMITED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorDetail is the inner object of an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every error response:
// {"error":{"code":"...","message":"..."}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func apiError(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// toHTTPError maps domain errors onto status codes and public messages.
// Anything unrecognized becomes a 500 without leaking the cause.
func toHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		return apiError(http.StatusTooManyRequests, CodeRateLimited, "Too many login attempts. Try again later.")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apiError(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password")
	case errors.Is(err, auth.ErrMissingToken):
		return apiError(http.StatusUnauthorized, CodeMissingToken, "Missing bearer token")
	case errors.Is(err, auth.ErrInvalidToken):
		return apiError(http.StatusUnauthorized, CodeInvalidToken, "Token invalid or expired")
	case errors.Is(err, auth.ErrServiceUnavailable):
		return apiError(http.StatusServiceUnavailable, CodeServiceUnavailable, "Service temporarily unavailable")
	case errors.Is(err, account.ErrDuplicate):
		return apiError(http.StatusConflict, CodeEmailTaken, "Email already registered")
	case errors.Is(err, account.ErrInvalidEmail), errors.Is(err, account.ErrWeakPassword):
		return apiError(http.StatusBadRequest, CodeInvalidInput, err.Error())
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if _, ok := he.Message.(ErrorResponse); ok {
			return he
		}
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return apiError(he.Code, codeForStatus(he.Code), msg)
	}
	return apiError(http.StatusInternalServerError, CodeInternal, "Internal server error")
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return CodeInvalidInput
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	case http.StatusUnauthorized:
		return CodeInvalidToken
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	default:
		return CodeInternal
	}
}

// httpErrorHandler renders every error, including echo's own routing and
// binding errors, in the common error body.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he := toHTTPError(err)
	if he.Code >= http.StatusInternalServerError && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"method": c.Request().Method, "path": c.Path(), "status": he.Code}).WithError(err).Error("request failed")
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(he.Code)
	} else {
		werr = c.JSON(he.Code, he.Message)
	}
	if werr != nil && s.logger != nil {
		s.logger.WithError(werr).Warn("failed to write error response")
	}
}
