package httpserver

import (
	"context"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName        = "auth-service"
	healthCheckTimeout = 2 * time.Second
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Environment  string            `json:"environment,omitempty"`
	Timestamp    string            `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
}

// buildVersion is the module version stamped by the go toolchain, or "dev"
// for local builds.
func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// healthCheck checks every dependency concurrently under one deadline. Any
// failing dependency degrades the service and turns the status into 503.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		deps = make(map[string]string, len(s.healthCheckers))
		g    errgroup.Group
	)
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		g.Go(func() error {
			state := "healthy"
			if err := hc.Check(ctx); err != nil {
				state = "unhealthy"
				if s.logger != nil {
					s.logger.WithError(err).WithField("dependency", hc.Name()).Warn("health check failed")
				}
			}
			mu.Lock()
			deps[hc.Name()] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp := HealthResponse{
		Status:       "healthy",
		Service:      serviceName,
		Version:      s.version,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Dependencies: deps,
	}
	if s.config != nil {
		resp.Environment = s.config.Environment
	}
	for _, state := range deps {
		if state != "healthy" {
			resp.Status = "degraded"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
	}
	return c.JSON(http.StatusOK, resp)
}
