package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	config "github.com/shopstack/auth-service/configs"
	"github.com/shopstack/auth-service/internal/core/ports"
	customMiddleware "github.com/shopstack/auth-service/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
	// Version is reported by /health; the build's module version is used when empty.
	Version string
}

type ServerDeps struct {
	AuthService    ports.AuthService
	AccountService ports.AccountService
	// RateLimiter and RateLimits drive the per-address registration limit;
	// leaving either nil disables it.
	RateLimiter    ports.RateLimiter
	RateLimits     *config.RateLimitConfig
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	authSvc        ports.AuthService
	accountSvc     ports.AccountService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
	version        string
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		authSvc:        deps.AuthService,
		accountSvc:     deps.AccountService,
		healthCheckers: deps.HealthCheckers,
		version:        buildVersion(),
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.AuthService,
			deps.RateLimiter,
			deps.RateLimits,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}
	if serverConfig != nil && serverConfig.Version != "" {
		server.version = serverConfig.Version
	}
	e.HTTPErrorHandler = server.httpErrorHandler

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
