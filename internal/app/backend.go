// Package app assembles the identity backend from configuration. Both the
// HTTP server and the bizctl client build on it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bizguardian/manager/internal/api/handler"
	"github.com/bizguardian/manager/internal/core/ports"
	"github.com/bizguardian/manager/internal/core/service"
	"github.com/bizguardian/manager/internal/infrastructure/db/mongo"
	"github.com/bizguardian/manager/internal/infrastructure/db/redis"
	"github.com/bizguardian/manager/internal/infrastructure/db/sqlite"
	"github.com/bizguardian/manager/internal/infrastructure/notify"
	"github.com/bizguardian/manager/internal/infrastructure/queue"
	"github.com/bizguardian/manager/internal/infrastructure/token"
	"github.com/bizguardian/manager/internal/pkg/config"
)

// devSecret signs tokens when JWT_SECRET is unset outside production. It is
// fixed so that tokens persisted by bizctl survive a restart.
const devSecret = "bizguard-development-secret"

// Backend is the wired identity backend.
type Backend struct {
	Identity   *service.IdentityService
	Dispatcher *queue.Dispatcher
	// Health lists the stores the readiness probe checks.
	Health map[string]handler.Pinger

	closers []func(context.Context) error
}

// NewBackend connects the configured stores and wires the identity service.
// The dispatcher is created but not started.
func NewBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *Backend, err error) {
	b := &Backend{Health: make(map[string]handler.Pinger)}
	defer func() {
		if err != nil {
			_ = b.Close(context.Background())
		}
	}()

	var (
		sqliteStore *sqlite.Store
		repo        ports.IdentityRepository
		registry    ports.SessionRegistry
	)
	openSQLite := func() (*sqlite.Store, error) {
		if sqliteStore != nil {
			return sqliteStore, nil
		}
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		sqliteStore = s
		b.Health["sqlite"] = s
		b.closers = append(b.closers, func(context.Context) error { return s.Close() })
		return s, nil
	}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Disconnect)
		r := mongo.NewIdentityRepository(db)
		if err := r.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		b.Health["mongodb"] = r
		repo = r
	case config.DriverSQLite:
		s, err := openSQLite()
		if err != nil {
			return nil, err
		}
		repo = s
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	switch cfg.SessionDriver {
	case config.DriverRedis:
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })
		r := redis.NewSessionRegistry(client)
		b.Health["redis"] = r
		registry = r
	case config.DriverSQLite:
		s, err := openSQLite()
		if err != nil {
			return nil, err
		}
		registry = s
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.SessionDriver)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn().Msg("JWT_SECRET not set, using the development signing secret")
		secret = devSecret
	}
	issuer, err := token.NewJWTIssuer(secret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	b.Dispatcher = queue.NewDispatcher(cfg.VerifyWorkers, notify.NewLogVerifier(log), log.With().Str("component", "verification").Logger())
	b.Identity = service.NewIdentityService(repo, registry, issuer, b.Dispatcher, log.With().Str("component", "identity").Logger())
	return b, nil
}

// Close releases every connection opened by NewBackend, most recent first.
func (b *Backend) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
