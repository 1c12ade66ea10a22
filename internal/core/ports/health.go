package ports

import "context"

// HealthChecker checks one external dependency for /health.
type HealthChecker interface {
	Name() string
	// Check returns nil when the dependency answers within ctx.
	Check(ctx context.Context) error
}
