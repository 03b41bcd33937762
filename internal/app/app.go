package app

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godilite/assessment-server/internal/config"
	handler "github.com/godilite/assessment-server/internal/grpc"
	"github.com/godilite/assessment-server/internal/repository"
	"github.com/godilite/assessment-server/internal/repository/postgis"
	"github.com/godilite/assessment-server/internal/service"
	"github.com/godilite/assessment-server/pkg/cache"
	dbbuilder "github.com/godilite/assessment-server/pkg/database"
	grpcsrv "github.com/godilite/assessment-server/pkg/grpc/server"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	dbPool     *sql.DB
	pgPool     *pgxpool.Pool
	cache      *cache.Cache
	grpcServer *grpcsrv.Server
}

type Option func(*options)

type options struct {
	listener net.Listener
}

// WithListener serves gRPC on lis instead of GRPC_PORT.
func WithListener(lis net.Listener) Option {
	return func(o *options) {
		o.listener = lis
	}
}

type stores struct {
	parcels  service.ParcelRepository
	analyses service.AnalysisRepository
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{logger: logger}

	st, err := a.openStores(ctx, cfg)
	if err != nil {
		a.closeStores()
		return nil, err
	}

	var cacher handler.Cacher
	if cfg.CacheEnabled {
		cacheClient, err := cache.New(ctx,
			cache.WithAddress(cfg.RedisAddr),
			cache.WithKeyPrefix("assessment:"),
		)
		if err != nil {
			logger.Warn("cache unavailable, serving without cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
			a.cache = cacheClient
			cacher = cacheClient
		}
	}

	scorer := service.NewFairnessScorer(
		service.WithFairnessMillRate(cfg.MillRate),
		service.WithStatutoryRatio(cfg.StatutoryRatio),
	)
	savings := service.NewSavingsEstimator(service.WithSavingsMillRate(cfg.MillRate))
	comparables := service.NewComparableService(st.parcels, scorer, logger)
	analyzer := service.NewAssessmentAnalyzer(comparables, savings, st.analyses, logger,
		service.WithThresholds(cfg.Thresholds()),
		service.WithBatchWorkers(cfg.BatchWorkers),
		service.WithComparablePool(cfg.ComparableLimit),
	)

	grpcHandlers := handler.NewAssessmentHandlers(analyzer, comparables, savings, cacher, logger, cfg.CacheTTL)

	srvOpts := []grpcsrv.Option{
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithLogging(true),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithRequestTimeout(cfg.RequestTimeout),
	}
	if o.listener != nil {
		srvOpts = append(srvOpts, grpcsrv.WithListener(o.listener))
	}
	grpcServer, err := grpcsrv.New(srvOpts...)
	if err != nil {
		a.closeResources()
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	grpcServer.RegisterServiceWithHealth(handler.ServiceName, func(s *grpc.Server) {
		handler.RegisterAssessmentServer(s, grpcHandlers)
	})
	a.grpcServer = grpcServer

	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, fmt.Errorf("database init failed: %w", err)
		}
		a.pgPool = pool
		if err := pool.Ping(ctx); err != nil {
			return stores{}, fmt.Errorf("database ping failed: %w", err)
		}
		if err := postgis.EnsureSchema(ctx, pool); err != nil {
			return stores{}, err
		}
		a.logger.Info("PostGIS pool initialized")
		return stores{
			parcels:  postgis.NewParcelRepository(pool),
			analyses: postgis.NewAnalysisRepository(pool),
		}, nil

	default:
		dbOpts := []dbbuilder.Option{
			dbbuilder.WithDriver(cfg.DBDriver),
			dbbuilder.WithDataSource(cfg.DBPath),
		}
		if cfg.DBPath == ":memory:" {
			dbOpts = append(dbOpts, dbbuilder.WithMaxOpenConns(1))
		}
		dbPool, err := dbbuilder.New(dbOpts...)
		if err != nil {
			return stores{}, fmt.Errorf("database init failed: %w", err)
		}
		a.dbPool = dbPool
		if err := repository.EnsureSchema(ctx, dbPool); err != nil {
			return stores{}, err
		}
		a.logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))
		return stores{
			parcels:  repository.NewParcelRepository(dbPool),
			analyses: repository.NewAnalysisRepository(dbPool),
		}, nil
	}
}

// DB returns the SQLite pool, nil when running on PostGIS.
func (a *App) DB() *sql.DB {
	return a.dbPool
}

// Start serves gRPC in the background.
func (a *App) Start() {
	a.logger.Info("application starting")
	a.grpcServer.Start()
}

// Shutdown stops the server and releases the cache and database.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("application shutting down")

	err := a.grpcServer.Shutdown(ctx)
	if err != nil {
		a.logger.Warn("gRPC shutdown did not complete gracefully", zap.Error(err))
	}

	a.closeResources()

	return err
}

// closeResources releases the cache client and the stores.
func (a *App) closeResources() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	a.closeStores()
}

func (a *App) closeStores() {
	if a.dbPool != nil {
		if err := a.dbPool.Close(); err != nil {
			a.logger.Error("database shutdown error", zap.Error(err))
		}
	}
	if a.pgPool != nil {
		a.pgPool.Close()
	}
}

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	a.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		return err
	}

	a.logger.Info("graceful shutdown completed successfully")
	_ = a.logger.Sync()
	return nil
}
