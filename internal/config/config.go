package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/godilite/assessment-server/internal/service"
	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv string `env:"APP_ENV" env-default:"development"`

	DBDriver    string `env:"DB_DRIVER" env-default:"sqlite3"`
	DBPath      string `env:"DB_PATH" env-default:"./data/assessment.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr    string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	CacheEnabled bool          `env:"CACHE_ENABLED" env-default:"true"`
	CacheTTL     time.Duration `env:"CACHE_TTL" env-default:"10m"`

	GRPCPort              int           `env:"GRPC_PORT" env-default:"50051"`
	GRPCReflectionEnabled bool          `env:"GRPC_REFLECTION_ENABLED" env-default:"false"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT" env-default:"30s"`

	MillRate          float64 `env:"MILL_RATE" env-default:"65"`
	StatutoryRatio    float64 `env:"STATUTORY_RATIO" env-default:"0.20"`
	BatchWorkers      int     `env:"BATCH_WORKERS" env-default:"4"`
	ComparableLimit   int     `env:"COMPARABLE_LIMIT" env-default:"20"`
	AppealThreshold   float64 `env:"APPEAL_THRESHOLD" env-default:"40"`
	ModerateThreshold float64 `env:"MODERATE_THRESHOLD" env-default:"55"`
	MonitorThreshold  float64 `env:"MONITOR_THRESHOLD" env-default:"70"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Thresholds returns the recommendation thresholds.
func (c *Config) Thresholds() service.Thresholds {
	return service.Thresholds{
		Appeal:   c.AppealThreshold,
		Moderate: c.ModerateThreshold,
		Monitor:  c.MonitorThreshold,
	}
}

// DataSource is the DSN for the configured driver.
func (c *Config) DataSource() string {
	if c.DBDriver == DriverPostgres {
		return c.DatabaseURL
	}
	return c.DBPath
}

func (c *Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite3"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for pgx"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}

	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("GRPC_PORT %d out of range", c.GRPCPort))
	}
	if c.MillRate <= 0 {
		errs = append(errs, fmt.Errorf("MILL_RATE must be positive, got %v", c.MillRate))
	}
	if c.StatutoryRatio <= 0 || c.StatutoryRatio > 1 {
		errs = append(errs, fmt.Errorf("STATUTORY_RATIO must be within (0, 1], got %v", c.StatutoryRatio))
	}
	if c.BatchWorkers < 1 {
		errs = append(errs, fmt.Errorf("BATCH_WORKERS must be at least 1, got %d", c.BatchWorkers))
	}
	if c.ComparableLimit < 1 {
		errs = append(errs, fmt.Errorf("COMPARABLE_LIMIT must be at least 1, got %d", c.ComparableLimit))
	}
	if c.RequestTimeout < 0 || c.CacheTTL < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if err := c.Thresholds().Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
