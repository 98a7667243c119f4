package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/splitwiser/internal/config"
	"github.com/mmynk/splitwiser/internal/storage"
	"github.com/mmynk/splitwiser/internal/storage/memory"
	"github.com/mmynk/splitwiser/internal/storage/postgres"
	"github.com/mmynk/splitwiser/internal/storage/sqlite"
)

// openStore opens the storage backend selected by DB_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMemory:
		slog.Warn("Using in-memory storage; data is lost on exit")
		return memory.New(), nil
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:     cfg.DBMaxOpenConns,
			MaxIdleConns:     cfg.DBMaxIdleConns,
			ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "driver", cfg.DBDriver)
		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "driver", cfg.DBDriver, "database", cfg.DBPath)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}
