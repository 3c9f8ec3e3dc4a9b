package cli

import (
	"context"
	"fmt"
	"time"

	"trivia-party/internal/app"
	"trivia-party/internal/config"
	"trivia-party/internal/infra/memory"
	redisstore "trivia-party/internal/infra/redis"
	"trivia-party/internal/infra/sqlstore"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

const (
	storeMemory   = "memory"
	storeRedis    = "redis"
	storeSQLite   = "sqlite"
	storePostgres = "postgres"
)

// resolveStore picks the requested backend, or the first one the config enables.
func resolveStore(requested string, cfg config.Config) (string, error) {
	switch requested {
	case storeMemory, storeRedis, storeSQLite, storePostgres:
		return requested, nil
	case "":
	default:
		return "", fmt.Errorf("unknown store %q", requested)
	}
	switch {
	case cfg.Redis.Addr != "":
		return storeRedis, nil
	case cfg.SQLite.Path != "":
		return storeSQLite, nil
	case cfg.Postgres.URL != "":
		return storePostgres, nil
	default:
		return storeMemory, nil
	}
}

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// openSQL opens and migrates the bun database for the sqlite or postgres driver.
func openSQL(ctx context.Context, driver string, cfg config.Config, log *zap.Logger) (*bun.DB, error) {
	var db *bun.DB
	switch driver {
	case storePostgres:
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("postgres url not configured")
		}
		db = sqlstore.OpenPostgres(cfg.Postgres.URL)
	case storeSQLite:
		if cfg.SQLite.Path == "" {
			return nil, fmt.Errorf("sqlite path not configured")
		}
		var err error
		if db, err = sqlstore.OpenSQLite(cfg.SQLite.Path); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	applied, err := sqlstore.Migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("migrations applied", zap.String("driver", driver), zap.Int("count", applied))
	return db, nil
}

// openRecordStore returns the RecordStore for kind and a cleanup function. An unreachable
// backend degrades to memory-only with a warning.
func openRecordStore(ctx context.Context, kind string, cfg config.Config, client *redis.Client, log *zap.Logger) (app.RecordStore, func()) {
	noop := func() {}
	switch kind {
	case storeRedis:
		if client == nil {
			log.Warn("redis store requested without redis.addr, using memory")
			return memory.NewRecordStore(), noop
		}
		store := redisstore.NewRecordStore(client, config.TTLDuration(cfg.Redis.TTL, 0))
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			log.Warn("redis unavailable, using memory", zap.Error(err))
			return memory.NewRecordStore(), noop
		}
		return store, noop
	case storeSQLite, storePostgres:
		db, err := openSQL(ctx, kind, cfg, log)
		if err != nil {
			log.Warn("sql store unavailable, using memory", zap.String("driver", kind), zap.Error(err))
			return memory.NewRecordStore(), noop
		}
		return sqlstore.NewRecordStore(db), func() { _ = db.Close() }
	default:
		return memory.NewRecordStore(), noop
	}
}
