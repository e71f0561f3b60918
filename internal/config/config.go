// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrDIDAPIKeyRequired is returned when DID_API_KEY is not set.
	ErrDIDAPIKeyRequired = errors.New("config: DID_API_KEY is required")
	// ErrPixelMotionAPIKeyRequired is returned when PIXELMOTION_API_KEY is not set.
	ErrPixelMotionAPIKeyRequired = errors.New("config: PIXELMOTION_API_KEY is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Database settings. When DATABASE_URL is empty the service falls back
	// to the in-memory job store (development only).
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// D-ID settings (lip-sync provider)
	DIDBaseURL      string `env:"DID_BASE_URL, default=https://api.d-id.com" json:"did_base_url"`
	DIDAPIKey       string `env:"DID_API_KEY, required" json:"-"` // Masked in JSON
	DIDDefaultVoice string `env:"DID_DEFAULT_VOICE, default=en-US-JennyNeural" json:"did_default_voice"`

	// PixelMotion settings (generative-scene provider)
	PixelMotionBaseURL string `env:"PIXELMOTION_BASE_URL, default=https://api.pixelmotion.ai" json:"pixelmotion_base_url"`
	PixelMotionAPIKey  string `env:"PIXELMOTION_API_KEY, required" json:"-"` // Masked in JSON
	PixelMotionModel   string `env:"PIXELMOTION_MODEL, default=pixelmotion-1.5" json:"pixelmotion_model"`

	// Optional S3 settings. When unset the in-memory object store is used.
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Bucket names
	InputsBucket string `env:"INPUTS_BUCKET, default=promoreel-inputs" json:"inputs_bucket"`
	ScenesBucket string `env:"SCENES_BUCKET, default=promoreel-scenes" json:"scenes_bucket"`
	VideosBucket string `env:"VIDEOS_BUCKET, default=promoreel-videos" json:"videos_bucket"`

	// Retention settings
	RetentionMaxAge    time.Duration `env:"RETENTION_MAX_AGE, default=72h" json:"retention_max_age"`
	RetentionBatchSize int           `env:"RETENTION_BATCH_SIZE, default=100" json:"retention_batch_size"`
	RetentionInterval  time.Duration `env:"RETENTION_INTERVAL, default=1h" json:"retention_interval"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Region != ""
}

// PostgresEnabled returns true if a database connection string is provided.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "DID_API_KEY") {
			return nil, ErrDIDAPIKeyRequired
		}
		if strings.Contains(err.Error(), "PIXELMOTION_API_KEY") {
			return nil, ErrPixelMotionAPIKeyRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.DIDAPIKey == "" {
		return ErrDIDAPIKeyRequired
	}
	if c.PixelMotionAPIKey == "" {
		return ErrPixelMotionAPIKeyRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DIDBaseURL: %s, PixelMotionBaseURL: %s, PixelMotionModel: %s, S3Region: %s, InputsBucket: %s, ScenesBucket: %s, VideosBucket: %s, RetentionMaxAge: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DIDBaseURL,
		c.PixelMotionBaseURL,
		c.PixelMotionModel,
		c.S3Region,
		c.InputsBucket,
		c.ScenesBucket,
		c.VideosBucket,
		c.RetentionMaxAge,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
