package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dicdwatch/dicdwatch/internal/cache"
	"github.com/dicdwatch/dicdwatch/internal/config"
	"github.com/dicdwatch/dicdwatch/internal/logging"
	"github.com/dicdwatch/dicdwatch/internal/queue"
	"github.com/dicdwatch/dicdwatch/internal/router"
	"github.com/dicdwatch/dicdwatch/internal/services"
	"github.com/dicdwatch/dicdwatch/internal/source"
	"github.com/dicdwatch/dicdwatch/internal/subscriber"
	"github.com/dicdwatch/dicdwatch/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	nodeID := subscriber.NodeID(cfg.Invalidation)
	if cfg.Logging.NodeID == "" {
		cfg.Logging.NodeID = nodeID
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("SPC API starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	// Measurement store
	logger.Info("Connecting to measurement source", "type", cfg.Source.Type, "compression", cfg.Source.Compression)
	src, closeSource, err := source.NewFromConfig(cfg.Source, logger)
	if err != nil {
		logger.Fatal("Failed to open measurement source", "error", err)
	}
	defer func() { _ = closeSource() }()

	cached := source.NewCachedSource(src, logger, cache.WithTTL(cfg.Cache.TTL))
	logger.Info("Temporal cache enabled", "ttl", cfg.Cache.TTL.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cross-instance invalidation
	var publisher queue.Publisher
	var invalidator *subscriber.Invalidator
	if cfg.Invalidation.Enabled() {
		logger.Info("Connecting to invalidation bus",
			"type", cfg.Invalidation.Type, "subject", cfg.Invalidation.Subject, "node_id", nodeID)

		sub, err := subscriber.NewSubscriber(cfg.Invalidation)
		if err != nil {
			logger.Fatal("Failed to create invalidation subscriber", "error", err)
		}
		invalidator = subscriber.NewInvalidator(sub, cfg.Invalidation.Subject, cached, logger)
		if err := invalidator.Start(ctx); err != nil {
			logger.Fatal("Failed to start invalidator", "error", err)
		}

		publisher, err = queue.NewPublisher(cfg.Invalidation)
		if err != nil {
			logger.Fatal("Failed to create invalidation publisher", "error", err)
		}
		defer func() { _ = publisher.Close() }()
	} else {
		logger.Warn("Invalidation bus disabled - cache entries on other instances expire by TTL only")
	}

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	analysisService := services.NewAnalysisService(logger, cached, cfg.Analysis)
	cacheService := services.NewCacheService(logger, cached, publisher, cfg.Invalidation.Subject, nodeID)

	app := router.New(logger, analysisService, cacheService, *cfg)

	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if invalidator != nil {
		if err := invalidator.Stop(); err != nil {
			logger.Warn("Failed to stop invalidator", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
