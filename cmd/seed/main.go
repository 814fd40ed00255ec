// seed loads sample identities, categories and service requests into the
// configured store. Rows that already exist are skipped, so it is safe to run
// repeatedly. Without POSTGRES_DSN it seeds a throwaway in-memory store,
// which is only useful together with --dry-run or to validate a fixture.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/githubpalak/gas-utility-portal/internal/config"
	"github.com/githubpalak/gas-utility-portal/internal/observability"
	"github.com/githubpalak/gas-utility-portal/internal/persistence"
	"github.com/githubpalak/gas-utility-portal/internal/seed"
	"github.com/githubpalak/gas-utility-portal/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var filePath string
	var dryRun bool

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&filePath, "file", "", "YAML fixture to load (default: built-in sample data)")
	flagSet.BoolVar(&dryRun, "dry-run", false, "report what would be created without writing")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	fixture, err := loadFixture(filePath)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	store, pg, err := persistence.OpenStore(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	if !pg.Enabled() {
		logger.Warn("POSTGRES_DSN not set; seeding an in-memory store that is discarded on exit")
	}

	accounts := service.NewAccountService(service.AccountDependencies{
		IdentityRepo: store.Identities,
		BcryptCost:   cfg.Auth.BcryptCost,
		Logger:       logger,
	})
	requests := service.NewRequestService(service.RequestDependencies{
		RequestRepo:  store.Requests,
		IdentityRepo: store.Identities,
		CategoryRepo: store.Categories,
		HistoryRepo:  store.History,
		Logger:       logger,
	})

	seeder := seed.NewSeeder(store, accounts, requests, seed.WithDryRun(dryRun), seed.WithLogger(logger))
	report, err := seeder.Load(ctx, fixture)
	if err != nil {
		return err
	}

	logger.Info("seed complete",
		zap.Bool("dry_run", dryRun),
		zap.Int("identities_created", report.IdentitiesCreated),
		zap.Int("identities_skipped", report.IdentitiesSkipped),
		zap.Int("categories_created", report.CategoriesCreated),
		zap.Int("categories_skipped", report.CategoriesSkipped),
		zap.Int("requests_created", report.RequestsCreated),
		zap.Int("requests_skipped", report.RequestsSkipped))
	return nil
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Sample()
	}
	return seed.LoadFile(path)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `seed loads sample data into the gas utility portal store.

Configuration (database, bcrypt cost, logging) is read from the same
environment variables as the API server.

Usage:
  seed [flags]

Flags:
`)
	flagSet.PrintDefaults()
}
