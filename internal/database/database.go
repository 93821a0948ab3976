// Package database opens the store selected by the database config.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/liftguard/internal/advisor"
	"github.com/claude/liftguard/internal/config"
	"github.com/claude/liftguard/internal/ingest/alpha"
	"github.com/claude/liftguard/internal/localstore"
	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/storage"
)

// Store is everything the binaries need from persistence. Both
// storage.DB and localstore.Store satisfy it.
type Store interface {
	advisor.Store
	alpha.Store
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]models.ImportLog, error)
}

var (
	_ Store = (*storage.DB)(nil)
	_ Store = (*localstore.Store)(nil)
)

// Open connects to the configured database. Postgres migrations are applied
// from migrationsPath first. The returned func releases the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig, migrationsPath string, log *slog.Logger) (Store, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := localstore.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		log.Info("database opened", "driver", cfg.Driver, "path", cfg.Path)
		return s, func() {
			if err := s.Close(); err != nil {
				log.Warn("closing sqlite store", "error", err)
			}
		}, nil

	case config.DriverPostgres, "":
		dsn := cfg.DSN()
		if err := storage.RunMigrations(dsn, migrationsPath); err != nil {
			return nil, nil, fmt.Errorf("migrating: %w", err)
		}
		log.Info("migrations applied")
		db, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting database: %w", err)
		}
		log.Info("database connected", "driver", config.DriverPostgres, "host", cfg.Host)
		return db, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("database driver %q is not supported", cfg.Driver)
	}
}
