package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestDBHealthChecker(t *testing.T) {
	ok := NewDBHealthChecker(pingerFunc(func(context.Context) error { return nil }))
	require.Equal(t, "database", ok.Name())
	require.NoError(t, ok.Check(context.Background()))

	down := NewDBHealthChecker(pingerFunc(func(context.Context) error { return errors.New("connection refused") }))
	require.Error(t, down.Check(context.Background()))
}

func TestRedisHealthChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	checker := NewRedisHealthChecker(client)
	require.Equal(t, "redis", checker.Name())
	require.NoError(t, checker.Check(context.Background()))

	mr.Close()
	require.Error(t, checker.Check(context.Background()))
}
