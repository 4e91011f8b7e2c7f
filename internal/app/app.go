// Package app wires configuration, storage and use cases for the binaries
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/portfolio-ledger/internal/adapter/category"
	"github.com/simaogato/portfolio-ledger/internal/adapter/repository/memory"
	"github.com/simaogato/portfolio-ledger/internal/adapter/repository/postgres"
	"github.com/simaogato/portfolio-ledger/internal/config"
	"github.com/simaogato/portfolio-ledger/internal/domain"
	"github.com/simaogato/portfolio-ledger/internal/usecase/classifier"
	"github.com/simaogato/portfolio-ledger/internal/usecase/dashboard"
	"github.com/simaogato/portfolio-ledger/internal/usecase/ingest"
	"github.com/simaogato/portfolio-ledger/internal/usecase/lot"
	"github.com/simaogato/portfolio-ledger/internal/usecase/seeder"
	"github.com/simaogato/portfolio-ledger/internal/usecase/txfactory"
)

const (
	connectAttempts = 5
	connectDelay    = 2 * time.Second
)

// App holds the wired services
type App struct {
	Store     domain.Store
	DB        *postgres.DB // nil for the memory store
	Ingest    *ingest.Service
	Dashboard *dashboard.DashboardService
	Seeder    *seeder.PortfolioSeeder
	Log       zerolog.Logger
}

// New builds the application from cfg.
// The postgres schema is applied when migrate is true.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, migrate bool) (*App, error) {
	a := &App{Log: log}

	switch cfg.Storage {
	case config.StorageMemory:
		a.Store = memory.NewStore()
		log.Warn().Msg("Using in-memory storage, data is lost on exit")
	default:
		db, err := connect(ctx, cfg.DBConnStr, log)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, err
			}
		}
		a.DB = db
		a.Store = postgres.NewStore(db)
	}

	var categories lot.CategoryClassifier = category.NewStatic(category.DefaultCategories)
	if cfg.CategoryServiceURL != "" {
		categories = category.NewClient(category.ClientConfig{
			BaseURL:       cfg.CategoryServiceURL,
			Timeout:       cfg.CategoryTimeout,
			RatePerSecond: cfg.CategoryRatePerSec,
			CacheTTL:      cfg.CategoryCacheTTL,
		}, log)
	}

	transactions := txfactory.NewFactory(
		classifier.NewMovementClassifier(classifier.DefaultMovementTable()),
		classifier.NewTransactionTypeClassifier(classifier.DefaultTypeTable()),
	)
	lots := lot.NewFactory(categories, cfg.CategoryTimeout, log)

	repos := a.Store.Repositories()
	a.Ingest = ingest.NewService(a.Store, transactions, lots, cfg.IngestWorkers, log)
	a.Dashboard = dashboard.NewDashboardService(repos.Portfolios, repos.Assets, repos.Transactions, repos.Lots)
	a.Seeder = seeder.NewPortfolioSeeder(repos.Portfolios)

	return a, nil
}

// Close releases the database connection, if any
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// connect retries while the database is still starting up
func connect(ctx context.Context, connStr string, log zerolog.Logger) (*postgres.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := postgres.NewDB(connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("Database not ready")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, lastErr)
}
