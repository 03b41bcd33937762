package app

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/godilite/assessment-server/internal/config"
	"github.com/godilite/assessment-server/pkg/cache"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:            "test",
		DBDriver:          config.DriverSQLite,
		DBPath:            ":memory:",
		CacheTTL:          time.Minute,
		GRPCPort:          0,
		RequestTimeout:    5 * time.Second,
		MillRate:          65,
		StatutoryRatio:    0.20,
		BatchWorkers:      1,
		ComparableLimit:   20,
		AppealThreshold:   40,
		ModerateThreshold: 55,
		MonitorThreshold:  70,
	}
}

func TestNewApp_InvalidPort(t *testing.T) {
	cfg := testConfig()
	cfg.GRPCPort = 70000

	a, err := NewApp(context.Background(), cfg, zap.NewNop())

	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "failed to create gRPC server")
}

func TestNewApp_ShutdownReleasesStores(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	db := a.DB()
	require.NotNil(t, db)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))

	assert.Error(t, db.Ping())
}

func TestApp_CloseResourcesReleasesCache(t *testing.T) {
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

	c, err := cache.New(ctx, cache.WithAddress(fmt.Sprintf("%s:%s", host, port.Port())))
	require.NoError(t, err)
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	a := &App{logger: zap.NewNop(), cache: c, dbPool: db}
	a.closeResources()

	var dest string
	assert.ErrorIs(t, c.Get(ctx, "any", &dest), redis.ErrClosed)
	assert.Error(t, db.Ping())
}
