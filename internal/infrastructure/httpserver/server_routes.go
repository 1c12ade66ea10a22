package httpserver

import "github.com/labstack/echo/v4"

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	var registerLimit []echo.MiddlewareFunc
	if s.middleware.RegisterLimit != nil {
		registerLimit = append(registerLimit, s.middleware.RegisterLimit.Handler())
	}

	auth := s.echo.Group("/auth")
	auth.POST("/register", s.register, registerLimit...)
	auth.POST("/login", s.login)
	auth.POST("/verify", s.verify, s.middleware.Bearer.RequireBearer())
}
