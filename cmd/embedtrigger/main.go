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

	"github.com/kailas-cloud/vecmigrate/internal/bootstrap"
	"github.com/kailas-cloud/vecmigrate/internal/config"
	logpkg "github.com/kailas-cloud/vecmigrate/internal/logger"
	"github.com/kailas-cloud/vecmigrate/internal/metrics"
	chiTransport "github.com/kailas-cloud/vecmigrate/internal/transport/chi"
	healthuc "github.com/kailas-cloud/vecmigrate/internal/usecase/health"
	skilluc "github.com/kailas-cloud/vecmigrate/internal/usecase/skill"
	"github.com/kailas-cloud/vecmigrate/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(config.Options{Env: env, Path: os.Getenv("CONFIG_PATH")})
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, logpkg.WithLevel(cfg.Logging.Level))
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.ValidateTrigger(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Starting embedding trigger",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_variant", string(cfg.Embedding.Variant)),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Bool("auth", !cfg.Auth.Disabled),
	)
	if cfg.Auth.Disabled {
		logger.Warn("Function key auth is disabled, the trigger accepts unauthenticated calls")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterMigrationMetrics()

	ctx := context.Background()

	// Optional embedding cache. Pass a nil interface, not a typed nil pointer,
	// when it is disabled.
	var (
		cache   bootstrap.Cache
		cachePg healthuc.CachePinger
	)
	if cfg.Cache.Enabled {
		store, err := bootstrap.OpenRedis(ctx, cfg.Cache.Redis)
		if err != nil {
			logger.Fatal("Embedding cache not ready", zap.Error(err))
		}
		defer store.Close()
		cache, cachePg = store, store
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Redis.Addrs))
	}

	embedder, err := bootstrap.Embedder(cfg.Embedding, cache, cfg.Cache.Redis.KeyPrefix, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}

	skillSvc := skilluc.New(embedder, logger)
	healthSvc := healthuc.New(embedder, cachePg)

	server := chiTransport.NewServer(skillSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.Keys()),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr), zap.String("route", chiTransport.TriggerPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
