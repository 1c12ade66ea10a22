package helpers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shopstack/auth-service/internal/core/domain/auth"
)

const bearerPrefix = "bearer "

// GetClaimsFromContext returns the claims stored by the bearer middleware.
func GetClaimsFromContext(c echo.Context) (*auth.Claims, error) {
	claims, ok := GetClaimsRaw(c)
	if !ok || claims == nil {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

// GetBearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func GetBearerToken(c echo.Context) (string, error) {
	header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", auth.ErrMissingToken
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", auth.ErrMissingToken
	}
	return token, nil
}

// GetRequestID returns the id assigned by the RequestID middleware, falling
// back to the one the client sent.
func GetRequestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
