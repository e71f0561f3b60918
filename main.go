// Package main provides the entry point for the PromoReel API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promoreel/promoreel-api/internal/assets"
	"github.com/promoreel/promoreel-api/internal/config"
	"github.com/promoreel/promoreel-api/internal/did"
	"github.com/promoreel/promoreel-api/internal/job"
	"github.com/promoreel/promoreel-api/internal/pixelmotion"
	"github.com/promoreel/promoreel-api/internal/provider"
	"github.com/promoreel/promoreel-api/internal/retention"
	"github.com/promoreel/promoreel-api/internal/server"
	"github.com/promoreel/promoreel-api/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting PromoReel API",
		slog.Int("port", cfg.Port),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
		slog.Bool("postgres_enabled", cfg.PostgresEnabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var store storage.ObjectStore
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("create S3 storage: %w", err)
		}
		store = s3Store
		logger.Info("S3 storage configured",
			slog.String("region", cfg.S3Region),
		)
	} else {
		store = storage.NewMemoryStore()
		logger.Warn("no S3 configuration, using in-memory object store")
	}

	// Initialize job repository
	var repo job.Repository
	if cfg.PostgresEnabled() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("create postgres pool: %w", err)
		}
		defer pool.Close()
		pgRepo, err := job.NewPostgresRepository(ctx, pool)
		if err != nil {
			return fmt.Errorf("create postgres job store: %w", err)
		}
		repo = pgRepo
		logger.Info("postgres job store configured")
	} else {
		repo = job.NewMemoryRepository()
		logger.Warn("no DATABASE_URL, using in-memory job store")
	}

	// Initialize provider clients
	didClient, err := did.NewClient(
		did.WithAPIKey(cfg.DIDAPIKey),
		did.WithBaseURL(cfg.DIDBaseURL),
	)
	if err != nil {
		return fmt.Errorf("create D-ID client: %w", err)
	}

	pmClient, err := pixelmotion.NewClient(
		pixelmotion.WithAPIKey(cfg.PixelMotionAPIKey),
		pixelmotion.WithBaseURL(cfg.PixelMotionBaseURL),
	)
	if err != nil {
		return fmt.Errorf("create PixelMotion client: %w", err)
	}

	buckets := storage.Buckets{
		Inputs: cfg.InputsBucket,
		Scenes: cfg.ScenesBucket,
		Videos: cfg.VideosBucket,
	}

	// Wire adapters, materializer and orchestrator
	providers := map[job.Kind]provider.Provider{
		job.KindLipSync:         provider.NewDIDAdapter(didClient, store, buckets.Inputs, cfg.DIDDefaultVoice),
		job.KindSceneGeneration: provider.NewPixelMotionAdapter(pmClient, store, buckets, cfg.PixelMotionModel),
	}
	materializer := assets.NewMaterializer(store, buckets.Videos)
	svc := job.NewService(repo, providers, materializer, store, buckets.Videos, logger)

	// Run the retention sweeper alongside the server
	cleaner := retention.NewCleaner(repo, store, buckets,
		retention.WithMaxAge(cfg.RetentionMaxAge),
		retention.WithBatchSize(cfg.RetentionBatchSize),
		retention.WithLogger(logger),
	)
	go cleaner.RunPeriodically(ctx, cfg.RetentionInterval)

	// Initialize HTTP handlers and router
	handlers := server.NewHandlers(svc, logger)
	router := server.NewRouter(handlers, logger, server.DefaultConfig())

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		return err
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
