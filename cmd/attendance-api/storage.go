package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker/internal/handler"
	"github.com/noah-isme/attendance-tracker/pkg/config"
	"github.com/noah-isme/attendance-tracker/pkg/database"
	"github.com/noah-isme/attendance-tracker/pkg/storage"
)

// backend holds the opened key-value store and the clients it depends on.
type backend struct {
	driver string
	kv     storage.KV
	redis  *redis.Client
	checks []handler.ReadinessCheck
}

func openBackend(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*backend, error) {
	b := &backend{driver: cfg.Storage.Driver}
	if b.driver == "" {
		b.driver = config.StorageBolt
	}
	ns := cfg.Storage.Namespace

	switch b.driver {
	case config.StorageMemory:
		b.kv = storage.NewMemoryStore()
	case config.StorageFile:
		store, err := storage.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		b.kv = store
	case config.StorageBolt:
		store, err := storage.OpenBolt(cfg.Storage.Path, ns)
		if err != nil {
			return nil, err
		}
		b.kv = store
	case config.StorageSQLite, config.StoragePostgres:
		var (
			db  *sqlx.DB
			err error
		)
		if b.driver == config.StorageSQLite {
			db, err = database.NewSQLite(cfg.Storage.Path)
		} else {
			db, err = database.NewPostgres(cfg.Database)
		}
		if err != nil {
			return nil, err
		}
		store := storage.NewSQLStore(db, ns)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		b.kv = store
		b.checks = append(b.checks, handler.ReadinessCheck{Name: b.driver, Check: db.PingContext})
	case config.StorageRedis:
		client, err := b.redisClient(cfg)
		if err != nil {
			return nil, err
		}
		b.kv = storage.NewRedisStore(client, ns)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", b.driver)
	}

	logr.Info("storage opened",
		zap.String("driver", b.driver),
		zap.String("path", cfg.Storage.Path),
		zap.String("namespace", ns))
	return b, nil
}

// redisClient connects on first use and registers a readiness check.
func (b *backend) redisClient(cfg *config.Config) (*redis.Client, error) {
	if b.redis != nil {
		return b.redis, nil
	}
	client, err := database.NewRedis(cfg.Redis)
	if err != nil {
		return nil, err
	}
	b.redis = client
	b.checks = append(b.checks, handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}})
	return client, nil
}

// Close releases the store. The store owns its SQL pool or Redis client; a
// Redis client opened only for change fan-out is closed here.
func (b *backend) Close() error {
	err := b.kv.Close()
	if b.redis != nil && b.driver != config.StorageRedis {
		if cerr := b.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
