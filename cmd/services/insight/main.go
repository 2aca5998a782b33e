package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soltixdb/insight/internal/analytics/anomaly"
	"github.com/soltixdb/insight/internal/config"
	"github.com/soltixdb/insight/internal/handlers"
	"github.com/soltixdb/insight/internal/logging"
	"github.com/soltixdb/insight/internal/metrics"
	"github.com/soltixdb/insight/internal/queue"
	"github.com/soltixdb/insight/internal/router"
	"github.com/soltixdb/insight/internal/services"
	"github.com/soltixdb/insight/internal/utils"
	"github.com/soltixdb/insight/internal/worker"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	handlers.Version = Version
	logger.Info("Insight service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	// Analysis engine
	m := metrics.New()
	analysis := services.NewAnalysisService(
		logger,
		cfg.Analysis.Parameterizer(),
		anomaly.NewDetector(cfg.Analysis.Thresholds),
		m,
	)
	logger.Info("Analysis engine initialized",
		"dialect", cfg.Analysis.Dialect,
		"standard_row_limit", cfg.Analysis.StandardRowLimit,
		"anomaly_row_limit", cfg.Analysis.AnomalyRowLimit)

	// Queue and worker are only needed for asynchronous analysis
	var (
		queueClient queue.Queue
		jobWorker   *worker.Worker
		submitter   handlers.JobSubmitter
	)
	if cfg.Worker.Enabled {
		logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
		queueClient, err = queue.NewQueue(cfg.Queue, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Queue", "error", err)
		}
		defer func() { _ = queueClient.Close() }()
		logger.Info("Queue connection established")

		jobWorker = worker.New(logger, queueClient, analysis, m, cfg.Worker)
		if err := jobWorker.Start(); err != nil {
			logger.Fatal("Failed to start worker", "error", err)
		}
		submitter = jobWorker
	} else {
		logger.Info("Asynchronous analysis worker disabled")
	}

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	// Initialize router
	app := router.New(logger, analysis, submitter, m, *cfg)

	// Start server in goroutine
	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if jobWorker != nil {
		if err := jobWorker.Stop(); err != nil {
			logger.Error("Failed to stop worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
