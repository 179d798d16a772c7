/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the pool engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional), config file (optional), POOL_ENGINE_* variables,
     then apply command-line flags
  2. Initialize structured logger
  3. Initialize SQLite store
  4. Wire settings cache, booking client, reconciler and services
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  --env-file         dotenv file loaded into the environment (default .env)
  --config           YAML config file (or POOL_ENGINE_CONFIG)
  --addr             HTTP listen address
  --db               SQLite database path (":memory:" for in-memory)
  --booking-url      Booking service endpoint
  --booking-timeout  Booking check timeout
  --log-level        debug, info, warn or error

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (http.shutdown_timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server --config=/etc/pool-engine/config.yaml
  ./server --db=":memory:" --booking-url=http://localhost:9090/check

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/warp/pool-engine/api"
	"github.com/warp/pool-engine/availability"
	"github.com/warp/pool-engine/bookings"
	"github.com/warp/pool-engine/config"
	"github.com/warp/pool-engine/events"
	"github.com/warp/pool-engine/pooling"
	"github.com/warp/pool-engine/settings"
	"github.com/warp/pool-engine/store/sqlite"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	// Wire services
	orgs := settings.NewCache(store, cfg.Cache.Capacity, cfg.Cache.TTL)
	oracle := bookings.NewClient(cfg.Booking.URL, cfg.Booking.Timeout, bookings.WithLogger(logger))
	reconciler := pooling.NewReconciler(oracle, time.Now)
	pools := pooling.NewServiceWithLogger(store, reconciler, orgs, events.NewLogPublisher(logger), logger)
	expander := availability.NewExpander(store, availability.BasicRecurrence{}, logger)

	handler := api.NewHandler(pools, expander, store, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestLogging: level <= slog.LevelDebug,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + cfg.Booking.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.HTTP.Addr, "database", cfg.Database.Path, "booking_url", cfg.Booking.URL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// loadConfig reads the config file, then lets flags override it.
func loadConfig(args []string) (*config.Config, error) {
	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "dotenv file loaded into the environment")
	configPath := flags.String("config", "", "YAML config file (default $"+config.EnvConfigPath+")")
	addr := flags.String("addr", "", "HTTP listen address")
	dbPath := flags.String("db", "", `SQLite database path (":memory:" for in-memory)`)
	bookingURL := flags.String("booking-url", "", "booking service endpoint")
	bookingTimeout := flags.Duration("booking-timeout", 0, "booking check timeout")
	logLevel := flags.String("log-level", "", "debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	// Variables already set win over the file.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if flags.Changed("addr") {
		cfg.HTTP.Addr = *addr
	}
	if flags.Changed("db") {
		cfg.Database.Path = *dbPath
	}
	if flags.Changed("booking-url") {
		cfg.Booking.URL = *bookingURL
	}
	if flags.Changed("booking-timeout") {
		cfg.Booking.Timeout = *bookingTimeout
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}
