// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	router "tradesim-ledger/internal/api"
	"tradesim-ledger/internal/api/handler"
	"tradesim-ledger/internal/config"
	"tradesim-ledger/internal/pricing"
	"tradesim-ledger/internal/repository"
	"tradesim-ledger/internal/repository/memory"
	"tradesim-ledger/internal/repository/postgres"
	"tradesim-ledger/internal/service"
	"tradesim-ledger/internal/util"
	"tradesim-ledger/pkg/db"
	"tradesim-ledger/pkg/metrics"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB // nil with the memory store

	AccountRepository repository.AccountRepository
	Oracle            pricing.PriceOracle
	Metrics           *metrics.Collector
	LedgerService     service.LedgerService

	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	util.InitLogger()
	app.Logger = util.GetLogger()
	app.Logger.Info("configuration loaded", "store", cfg.Store)

	switch cfg.Store {
	case config.StorePostgres:
		database, err := db.NewPostgresDB(cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		app.DB = database
		app.AccountRepository = postgres.NewAccountRepository(database)
		app.Logger.Info("postgres account registry initialized")
	default:
		app.AccountRepository = memory.NewAccountRepository()
		app.Logger.Info("in-memory account registry initialized")
	}

	app.Oracle = pricing.DefaultOracle()
	app.Metrics = metrics.NewCollector()

	app.LedgerService = service.NewLedgerService(
		app.AccountRepository,
		app.Oracle,
		app.Metrics,
		app.Logger,
		service.Options{RequireInitialDeposit: cfg.RequireInitialDeposit},
	)
	app.Logger.Info("ledger service initialized")

	accountHandler := handler.NewAccountHandler(app.LedgerService, app.Logger)
	app.HTTPHandler = router.NewRouter(accountHandler, app.Metrics.Handler(), app.Logger)
	app.Logger.Info("HTTP router and handlers initialized")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("shutting down application")
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}
	app.Logger.Info("application shut down gracefully")
	return nil
}
