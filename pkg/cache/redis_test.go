package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/godilite/assessment-server/pkg/cache"
)

func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

type cachedSummary struct {
	ParcelID string  `json:"parcel_id"`
	Score    float64 `json:"score"`
}

func TestCache_Redis(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	c, err := cache.New(ctx, cache.WithAddress(addr), cache.WithKeyPrefix("assessment:"))
	require.NoError(t, err)
	defer c.Close()

	t.Run("miss returns redis.Nil", func(t *testing.T) {
		var got cachedSummary
		err := c.Get(ctx, "missing", &got)
		assert.ErrorIs(t, err, redis.Nil)
	})

	t.Run("set then get", func(t *testing.T) {
		want := cachedSummary{ParcelID: "01-00001-000", Score: 42.5}
		require.NoError(t, c.Set(ctx, "summary:01", want, time.Minute))

		var got cachedSummary
		require.NoError(t, c.Get(ctx, "summary:01", &got))
		assert.Equal(t, want, got)
	})

	t.Run("keys are prefixed", func(t *testing.T) {
		raw := redis.NewClient(&redis.Options{Addr: addr})
		defer raw.Close()

		require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
		exists, err := raw.Exists(ctx, "assessment:k").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "gone", 1, time.Minute))
		require.NoError(t, c.Delete(ctx, "gone", "never-set"))

		var v int
		assert.ErrorIs(t, c.Get(ctx, "gone", &v), redis.Nil)
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "short", 1, 50*time.Millisecond))
		time.Sleep(200 * time.Millisecond)

		var v int
		assert.ErrorIs(t, c.Get(ctx, "short", &v), redis.Nil)
	})
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := cache.New(ctx, cache.WithAddress("127.0.0.1:1"), cache.WithTimeouts(200*time.Millisecond, 200*time.Millisecond, 200*time.Millisecond))
	assert.Error(t, err)
}
