// Package db opens the configured persisted key-value backend.
package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"github.com/thebtf/soilsense/internal/config"
	gormstore "github.com/thebtf/soilsense/internal/db/gorm"
	redisstore "github.com/thebtf/soilsense/internal/db/redis"
	"github.com/thebtf/soilsense/internal/db/sqlite"
	"github.com/thebtf/soilsense/internal/kv"
)

// OpenStore opens the key-value store selected by cfg.StoreBackend.
func OpenStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Info().Msg("Using in-memory store, history will not survive restarts")
		return kv.NewMemoryStore(), nil

	case config.BackendRedis:
		store, err := redisstore.NewStore(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using redis store")
		return store, nil

	case config.BackendPostgres:
		store, err := gormstore.NewStore(gormstore.Config{
			DSN:      cfg.PostgresDSN,
			MaxConns: cfg.MaxConns,
			LogLevel: logger.Silent,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Info().Msg("Using postgres store")
		return store, nil

	case config.BackendSQLite, "":
		store, err := sqlite.NewStore(sqlite.StoreConfig{
			Path:     cfg.DBPath,
			MaxConns: cfg.MaxConns,
			WALMode:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info().Str("path", cfg.DBPath).Msg("Using sqlite store")
		return sqlite.NewKVStore(store), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
