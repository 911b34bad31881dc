package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mnemohq/mnemo/internal/auth"
	"github.com/mnemohq/mnemo/internal/config"
	"github.com/mnemohq/mnemo/internal/domain"
	"github.com/mnemohq/mnemo/internal/platform/postgres"
	"github.com/mnemohq/mnemo/internal/sched"
)

// application holds the shared dependencies so startup and shutdown
// manage them in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	stores    sched.Stores
	scheduler *sched.Scheduler
	tokens    auth.TokenService
	verifier  auth.PasswordVerifier
}

// newApplication opens the database, runs migrations, and wires the
// stores, scheduler and auth services.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	app.db = db

	if err := runMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app.stores = sched.Stores{
		DB:         db,
		Cards:      postgres.NewPostgresCardStore(db, logger),
		Facts:      postgres.NewPostgresFactStore(db, logger),
		Models:     postgres.NewPostgresModelStore(db, logger),
		Stats:      postgres.NewPostgresStatsStore(db, logger),
		Revlog:     postgres.NewPostgresRevlogStore(db, logger),
		Tombstones: postgres.NewPostgresTombstoneStore(db, logger),
		Deck:       postgres.NewPostgresDeckStore(db, logger),
		Tags:       postgres.NewPostgresTagStore(db, logger),
		Rows:       postgres.NewPostgresRowStore(db, logger),
	}

	app.scheduler, err = sched.New(ctx, app.stores, deckDefaults(cfg.Sched), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	app.tokens, err = auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.verifier = auth.NewBcryptVerifier()

	logger.Info("Application initialized successfully")
	return app, nil
}

// deckDefaults applies the configured scheduling defaults to a fresh
// deck row. Once the row exists in the store it is authoritative.
func deckDefaults(cfg config.SchedConfig) *domain.Deck {
	deck := domain.NewDeck()
	if cfg.NewCardsPerDay > 0 {
		deck.NewCardsPerDay = cfg.NewCardsPerDay
	}
	if cfg.LeechThreshold > 0 {
		deck.LeechThreshold = cfg.LeechThreshold
	}
	deck.LeechAutoSuspend = cfg.LeechAutoSuspend
	return deck
}

// Run starts the HTTP server and blocks until shutdown.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}
