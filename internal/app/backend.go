package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/sun8-storefront/internal/domain/checkout"
	"github.com/xenking/sun8-storefront/internal/storage"
	"github.com/xenking/sun8-storefront/internal/storage/boltdb"
	"github.com/xenking/sun8-storefront/internal/storage/memory"
	"github.com/xenking/sun8-storefront/internal/storage/postgres"
	"github.com/xenking/sun8-storefront/internal/storage/redis"
)

// backend is the opened storage driver. orders is nil when the driver keeps
// no order journal.
type backend struct {
	kv     storage.Store
	orders checkout.OrderLog
}

func openBackend(ctx context.Context, lg *zap.Logger, cfg StorageConfig) (*backend, error) {
	switch cfg.Driver {
	case DriverBolt:
		s, err := boltdb.Open(cfg.Path)
		if err != nil {
			return nil, errors.Wrap(err, "open bolt")
		}
		return &backend{kv: s, orders: s}, nil
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		return &backend{kv: postgres.NewStore(pool), orders: postgres.NewOrderJournal(pool)}, nil
	case DriverRedis:
		s := redis.New(redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, errors.Wrap(err, "ping redis")
		}
		return &backend{kv: s, orders: s}, nil
	case DriverMemory:
		lg.Warn("Using in-memory storage, state is lost on restart")
		return &backend{kv: memory.New()}, nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
