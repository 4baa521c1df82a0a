// Package storage selects a concrete backend behind the core capability
// interfaces.
package storage

import (
	"context"
	"fmt"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/storage/memdb"
	"github.com/sandevgo/recall/internal/storage/postgres"
	"github.com/sandevgo/recall/internal/storage/sqlite"
	"github.com/sandevgo/recall/pkg/log"
)

// New picks the backend: DATABASE_URL wins, then STORAGE_BACKEND, default
// sqlite at the runtime path. The returned cleanup releases the backend.
func New(ctx context.Context, cfg *config.AppConfig, pgCfg *config.PostgresConfig) (core.Stores, func() error, error) {
	logger := log.FromCtx(ctx)

	if pgCfg != nil && pgCfg.DatabaseURL != "" {
		db, err := postgres.NewDB(ctx, pgCfg.DatabaseURL)
		if err != nil {
			return core.Stores{}, nil, err
		}
		logger.Info().Msg("using postgres storage backend")
		return db.Stores(cfg.ContextWindow), db.Close, nil
	}

	switch cfg.StorageBackend {
	case "memory":
		logger.Info().Msg("using in-memory storage backend")
		return memdb.New(cfg.ContextWindow), func() error { return nil }, nil
	case "sqlite", "":
		db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
		if err != nil {
			return core.Stores{}, nil, err
		}
		logger.Info().Str("path", cfg.GetDatabasePath()).Msg("using sqlite storage backend")
		return sqlite.NewStores(db, cfg.ContextWindow), db.Close, nil
	default:
		return core.Stores{}, nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}
