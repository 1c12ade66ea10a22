package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/shopstack/auth-service/internal/core/ports"
	"github.com/shopstack/auth-service/internal/infrastructure/httpserver/helpers"
)

type BearerMiddleware struct {
	authService ports.AuthService
	logger      *logrus.Logger
}

func NewBearerMiddleware(authService ports.AuthService, logger *logrus.Logger) *BearerMiddleware {
	return &BearerMiddleware{authService: authService, logger: logger}
}

// RequireBearer verifies the bearer token and stores its claims in the context.
// Failures are returned as auth.ErrMissingToken or auth.ErrInvalidToken.
func (m *BearerMiddleware) RequireBearer() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := helpers.GetBearerToken(c)
			if err != nil {
				return err
			}

			claims, err := m.authService.Verify(c.Request().Context(), token)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path}).Debug("bearer token rejected")
				}
				return err
			}

			helpers.SetClaims(c, claims)
			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{"user_id": claims.Subject}).Debug("bearer token verified")
			}
			return next(c)
		}
	}
}
