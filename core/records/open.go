package records

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/database"
)

// Open builds the store selected by cfg.Driver. SQL drivers are migrated before use.
func Open(ctx context.Context, cfg config.RecordsConfig) (Store, error) {
	var store Store
	switch cfg.Driver {
	case "", config.RecordsMemory:
		store = NewMemoryLog()
	case config.RecordsLog:
		return LogSink{}, nil
	case config.RecordsPostgres, config.RecordsSQLite:
		dbCfg := database.Config(cfg.Database)
		dbCfg.Driver = cfg.Driver
		if err := database.RunMigrations(ctx, dbCfg); err != nil {
			return nil, fmt.Errorf("records: migrate: %w", err)
		}
		db, err := database.Connect(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("records: %w", err)
		}
		store = NewSQLStore(db)
	case config.RecordsRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("records: redis ping %s: %w", cfg.Redis.Addr, err)
		}
		store = NewRedisStream(client, cfg.Redis.Stream, cfg.Redis.MaxLen)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if cfg.Log {
		return Multi{store, LogSink{}}, nil
	}
	return store, nil
}
