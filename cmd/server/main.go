/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cash-flow planner server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse flags and environment (config.go)
  2. Build the zap logger
  3. Open PostgreSQL (DATABASE_URL) or SQLite
  4. Create API handler and router
  5. Start the month scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port                HTTP server port (default: 8080)
  -db                  SQLite database path (default: planner.db)
                       Use ":memory:" for in-memory database
  -database-url        PostgreSQL DSN (default: $DATABASE_URL)
  -log-level           debug|info|warn|error (default: $LOG_LEVEL or info)
  -log-format          json|console (default: $LOG_FORMAT or json)
  -scheduler           Run the month scheduler (default: true)
  -scheduler-interval  Scheduler check interval (default: 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/planner.db"
  ./server -db=":memory:" -log-format=console
  DATABASE_URL=postgres://planner@localhost/planner ./server

SEE ALSO:
  - config.go: Flags and environment
  - api/server.go: Router configuration
  - store/sqlite, store/postgres: Database implementations
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/cashflow-planner/api"
	"github.com/warp/cashflow-planner/store/postgres"
	"github.com/warp/cashflow-planner/store/sqlite"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	handler := api.NewHandler(store, logger)
	router := api.NewRouter(handler)

	scheduler := api.NewMonthScheduler(handler.Ledger, logger)
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.CheckInterval = cfg.SchedulerInterval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// openStore selects PostgreSQL when a DSN is configured, SQLite otherwise.
func openStore(ctx context.Context, cfg Config, logger *zap.Logger) (api.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, fmt.Errorf("failed to migrate postgres: %w", err)
		}
		logger.Info("using postgres store")
		return pg, func() { pg.Close() }, nil
	}

	lite, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("using sqlite store", zap.String("path", cfg.DBPath))
	return lite, func() { lite.Close() }, nil
}
