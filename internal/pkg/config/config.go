package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// StoreDriver selects the account/profile store: mongo or sqlite.
	StoreDriver string `env:"STORE_DRIVER,   default=sqlite"`
	// SessionDriver selects the session registry: redis or sqlite.
	SessionDriver string `env:"SESSION_DRIVER, default=sqlite"`

	VerifyWorkers int `env:"VERIFY_WORKERS, default=4"`

	// MarkerPath is where bizctl keeps its session marker. Empty means the
	// per-user config directory.
	MarkerPath string `env:"BIZCTL_MARKER"`

	Mongo  MongoConfig
	Redis  RedisConfig
	SQLite SQLiteConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=bizguard"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH, default=bizguard.db"`
}

// Load reads configuration from environment variables using go-envconfig.
// It panics on error and is meant for process start-up.
func Load() *Config {
	cfg, err := LoadContext(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadContext reads configuration through lookuper and validates it.
func LoadContext(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks driver names and values that have no sensible default.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMongo, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMongo, DriverSQLite, c.StoreDriver))
	}
	switch c.SessionDriver {
	case DriverRedis, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("SESSION_DRIVER must be %q or %q, got %q", DriverRedis, DriverSQLite, c.SessionDriver))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.Env == "production" && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the process runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
