package health

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/shopstack/auth-service/internal/core/ports"
)

// Pinger is anything that can report its own reachability, e.g. *db.Database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db Pinger }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.Ping(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.UniversalClient }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db Pinger) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis, single node or cluster.
func NewRedisHealthChecker(client redis.UniversalClient) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}
