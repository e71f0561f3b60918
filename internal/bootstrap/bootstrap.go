// Package bootstrap provides dependency initialization for the PromoReel API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promoreel/promoreel-api/internal/assets"
	"github.com/promoreel/promoreel-api/internal/config"
	"github.com/promoreel/promoreel-api/internal/did"
	"github.com/promoreel/promoreel-api/internal/job"
	"github.com/promoreel/promoreel-api/internal/pixelmotion"
	"github.com/promoreel/promoreel-api/internal/provider"
	"github.com/promoreel/promoreel-api/internal/retention"
	"github.com/promoreel/promoreel-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the application.
type Dependencies struct {
	JobService *job.Service
	Cleaner    *retention.Cleaner

	pool *pgxpool.Pool
}

// Close releases pooled resources. Safe to call on a partially built set.
func (d *Dependencies) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	repo, err := initRepository(ctx, cfg, logger, deps)
	if err != nil {
		return nil, err
	}

	didClient, err := did.NewClient(
		did.WithAPIKey(cfg.DIDAPIKey),
		did.WithBaseURL(cfg.DIDBaseURL),
	)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("create D-ID client: %w", err)
	}

	pmClient, err := pixelmotion.NewClient(
		pixelmotion.WithAPIKey(cfg.PixelMotionAPIKey),
		pixelmotion.WithBaseURL(cfg.PixelMotionBaseURL),
	)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("create PixelMotion client: %w", err)
	}

	buckets := storage.Buckets{
		Inputs: cfg.InputsBucket,
		Scenes: cfg.ScenesBucket,
		Videos: cfg.VideosBucket,
	}

	providers := map[job.Kind]provider.Provider{
		job.KindLipSync:         provider.NewDIDAdapter(didClient, store, buckets.Inputs, cfg.DIDDefaultVoice),
		job.KindSceneGeneration: provider.NewPixelMotionAdapter(pmClient, store, buckets, cfg.PixelMotionModel),
	}

	materializer := assets.NewMaterializer(store, buckets.Videos)

	deps.JobService = job.NewService(repo, providers, materializer, store, buckets.Videos, logger)
	deps.Cleaner = retention.NewCleaner(repo, store, buckets,
		retention.WithMaxAge(cfg.RetentionMaxAge),
		retention.WithBatchSize(cfg.RetentionBatchSize),
		retention.WithLogger(logger),
	)

	return deps, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ObjectStore, error) {
	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("region", cfg.S3Region),
			slog.String("endpoint", cfg.S3Endpoint),
		)
		return s3Store, nil
	}

	logger.Warn("no S3 configuration, using in-memory object store")
	return storage.NewMemoryStore(), nil
}

// initRepository creates the job store: Postgres when DATABASE_URL is set,
// in-memory otherwise.
func initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Dependencies) (job.Repository, error) {
	if !cfg.PostgresEnabled() {
		logger.Warn("no DATABASE_URL, using in-memory job store")
		return job.NewMemoryRepository(), nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	deps.pool = pool

	repo, err := job.NewPostgresRepository(ctx, pool)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("create postgres job store: %w", err)
	}
	logger.Info("postgres job store configured")
	return repo, nil
}
