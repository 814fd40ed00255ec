package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/githubpalak/gas-utility-portal/internal/config"
	"github.com/githubpalak/gas-utility-portal/internal/repository"
	"github.com/githubpalak/gas-utility-portal/internal/repository/memory"
)

// OpenStore returns the Postgres-backed store when a DSN is configured,
// running migrations first if enabled, and the in-memory store otherwise.
// The returned Postgres is never nil; Close it when done.
func OpenStore(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*repository.Store, *Postgres, error) {
	pg, err := NewPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if !pg.Enabled() {
		return memory.NewStore(), pg, nil
	}
	if cfg.RunMigrations {
		if err := RunMigrations(ctx, pg.Pool, cfg.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return repository.NewPostgresStore(pg.Pool), pg, nil
}
