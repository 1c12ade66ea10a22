package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	config "github.com/shopstack/auth-service/configs"
	"github.com/shopstack/auth-service/internal/application/services"
	"github.com/shopstack/auth-service/internal/core/ports"
	"github.com/shopstack/auth-service/internal/infrastructure/db"
	"github.com/shopstack/auth-service/internal/infrastructure/health"
	"github.com/shopstack/auth-service/internal/infrastructure/httpserver"
	"github.com/shopstack/auth-service/internal/infrastructure/observability"
	"github.com/shopstack/auth-service/internal/infrastructure/password"
	"github.com/shopstack/auth-service/internal/infrastructure/redis"
	"github.com/shopstack/auth-service/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := observability.NewLogger(&cfg.Log)

	if cfg.Sentry.DSN != "" {
		if err := observability.InitSentry(cfg.Sentry.DSN, cfg.Server.Environment); err != nil {
			logger.WithError(err).Warn("Failed to initialize Sentry; error reporting disabled")
		} else {
			logger.AddHook(observability.NewSentryHook(sentry.CurrentHub()))
			defer observability.FlushSentry()
		}
	}

	logger.Info("Starting auth service...")

	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations:", err)
	}

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Repositories
	redisCache := redis.NewRedisCache(redisClient, "authcache")
	accountRepo := repositories.NewCachingAccountRepository(
		repositories.NewAccountRepository(database, logger),
		redisCache,
		cfg.Login.AccountCacheTTL,
	)
	counterStore := repositories.NewRateLimitRedisRepository(redisClient)

	hasher, err := password.New(cfg.Password.Hasher, cfg.Password.BcryptCost)
	if err != nil {
		logger.Fatal("Failed to initialize password hasher:", err)
	}

	// Services
	baseLimiter, err := services.NewRateLimiterService(counterStore, &services.RateLimiterConfig{
		Atomic:       cfg.RateLimit.Atomic,
		StoreTimeout: cfg.RateLimit.StoreTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize rate limiter:", err)
	}
	limiter := httpserver.NewInstrumentedRateLimiter(baseLimiter)

	credentials, err := services.NewCredentialService(&cfg.JWT, logger)
	if err != nil {
		logger.Fatal("Failed to initialize credential service:", err)
	}

	authService, err := services.NewAuthService(limiter, accountRepo, credentials, hasher, &services.AuthServiceConfig{
		KeyPrefix:     cfg.RateLimit.KeyPrefix,
		Dimensions:    services.DefaultLoginDimensions(&cfg.RateLimit),
		FailOpen:      cfg.RateLimit.FailOpen,
		RetryBackoff:  cfg.RateLimit.RetryBackoff,
		LookupTimeout: cfg.Login.LookupTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize auth service:", err)
	}

	accountService := services.NewAccountService(accountRepo, hasher, cfg.Password.MinLength, logger)

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database), health.NewRedisHealthChecker(redisClient)}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
		Version:        cfg.Server.Version,
	}

	deps := httpserver.ServerDeps{
		AuthService:    authService,
		AccountService: accountService,
		RateLimiter:    limiter,
		RateLimits:     &cfg.RateLimit,
		HealthCheckers: hcSlice,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
