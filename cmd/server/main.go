/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the rent billing server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, YAML, environment) and apply flags
  2. Build the zap logger
  3. Initialize SQLite store
  4. Choose the event publisher (kafka when brokers are configured)
  5. Register metrics, create handler and router
  6. Start the drift audit scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS (override configuration):
  -port      HTTP server port
  -db        SQLite database path, ":memory:" for an in-memory database
  -horizon   advance forecast horizon in months
  -brokers   comma separated kafka brokers

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the drift audit, close publisher and database
  4. Exit

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/rent-billing/api"
	"github.com/warp/rent-billing/config"
	"github.com/warp/rent-billing/events"
	"github.com/warp/rent-billing/export"
	"github.com/warp/rent-billing/metrics"
	"github.com/warp/rent-billing/store/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	horizon := flag.Int("horizon", cfg.HorizonMonths, "advance forecast horizon in months")
	brokers := flag.String("brokers", "", "comma separated kafka brokers")
	flag.Parse()

	cfg.Port = *port
	cfg.DBPath = *dbPath
	cfg.HorizonMonths = *horizon
	if *brokers != "" {
		cfg.Kafka.Brokers = config.SplitCSV(*brokers)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("db", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()

	var publisher events.Publisher = &events.LogPublisher{Logger: logger}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
		logger.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers))
	}
	defer publisher.Close()

	metrics.Init(nil)

	handler := api.NewHandler(store, logger)
	handler.Builder.HorizonMonths = cfg.HorizonMonths
	handler.Publisher = publisher
	handler.Documents = export.Renderer{Options: export.Options{Currency: cfg.Currency}}

	scheduler := api.NewDriftScheduler(store, logger)
	scheduler.CheckInterval = cfg.AuditInterval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port), zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
