package main

import (
	"context"
	"flatwatch/internal/api"
	"flatwatch/internal/config"
	"flatwatch/internal/discovery"
	"flatwatch/internal/extractor"
	"flatwatch/internal/monitoring"
	"flatwatch/internal/storage"
	"flatwatch/internal/validator"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	ctx := context.Background()

	// Initialize Storage Layer
	pgStore, err := storage.NewPostgresStore(ctx, cfg.PostgresURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	if err := pgStore.InitSchema(ctx); err != nil {
		logger.Fatal("failed to initialize schema", zap.Error(err))
	}
	redisStore := storage.NewRedisStore(cfg.RedisAddr)

	// Initialize Monitoring
	metrics := monitoring.NewMetrics()

	// Initialize Discovery Pipeline
	ext := extractor.New(extractor.NewHTTPFetcher(), logger)

	val := validator.New(validator.Options{
		Limiter:     rate.NewLimiter(rate.Every(cfg.RateLimitInterval()), 1),
		SMTPEnabled: cfg.SMTPEnabled,
		Timeout:     cfg.ProbeTimeout(),
	}, logger)

	service := discovery.NewService(ext, val, pgStore, metrics, discovery.Settings{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		ValidationEnabled:   cfg.ValidationEnabled,
		MaxCrawlDepth:       cfg.MaxCrawlDepth,
		CrawlTimeout:        cfg.CrawlTimeout(),
		BlockedDomains:      cfg.BlockedDomainList(),
		CleanupDays:         cfg.CleanupDays,
	}, logger)

	runner := discovery.NewRunner(service, redisStore, discovery.RunnerConfig{
		Workers:      cfg.DiscoveryWorkers,
		MaxRetries:   cfg.MaxRetries,
		ReprocessTTL: cfg.ReprocessTTL(),
	}, logger)

	if cfg.DiscoveryEnabled {
		runner.Start()
	} else {
		logger.Warn("contact discovery disabled, API will reject discover requests")
	}

	// Initialize API Server
	server := api.NewServer(cfg, runner, service, pgStore, redisStore, logger)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.DiscoveryEnabled {
		runner.Stop()
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	pgStore.Close()
	if err := redisStore.Close(); err != nil {
		logger.Warn("redis close failed", zap.Error(err))
	}

	logger.Info("server exiting")
}
