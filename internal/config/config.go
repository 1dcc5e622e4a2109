package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the watermark service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"watermark-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"WATERMARK_API_PORT" envDefault:"8290"`
	LogLevel        string        `env:"WATERMARK_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Public URL Configuration
	// PublicBaseURL is prepended to /api/media/{id} when building the URL
	// handed back to generation callers.
	PublicBaseURL string `env:"WATERMARK_PUBLIC_BASE_URL" envDefault:"http://localhost:8290"`

	// Storage Configuration
	StoragePath string `env:"WATERMARK_STORAGE_PATH" envDefault:"./media-store"`

	// Watermark Configuration
	AssetPath string `env:"WATERMARK_ASSET_PATH" envDefault:"./assets/watermark.png"`

	// FFmpeg Configuration
	FFmpegPath    string        `env:"FFMPEG_PATH"` // explicit override; otherwise vendored paths then PATH
	FFmpegTimeout time.Duration `env:"FFMPEG_TIMEOUT" envDefault:"60s"`
	WorkspaceRoot string        `env:"WATERMARK_WORKSPACE_ROOT"` // defaults to the OS temp dir

	// Media Configuration
	MaxMediaBytes      int64         `env:"WATERMARK_MAX_BYTES" envDefault:"104857600"`
	RemoteFetchTimeout time.Duration `env:"WATERMARK_REMOTE_FETCH_TIMEOUT" envDefault:"15s"`

	// FallbackToOriginal controls the compositing failure policy: when true a
	// failed video/image composite serves the original unwatermarked URL
	// instead of failing the generation request. Availability over watermark
	// guarantee; flip off to make compositing failures hard errors.
	FallbackToOriginal bool `env:"WATERMARK_FALLBACK_TO_ORIGINAL" envDefault:"true"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.StoragePath = strings.TrimSpace(cfg.StoragePath)
	cfg.AssetPath = strings.TrimSpace(cfg.AssetPath)
	cfg.PublicBaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if cfg.StoragePath == "" {
		return nil, fmt.Errorf("WATERMARK_STORAGE_PATH must not be empty")
	}
	if cfg.AssetPath == "" {
		return nil, fmt.Errorf("WATERMARK_ASSET_PATH must not be empty")
	}
	if cfg.MaxMediaBytes <= 0 {
		cfg.MaxMediaBytes = 100 * 1024 * 1024
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// MediaURL builds the public watermarked-media URL for an id.
func (c *Config) MediaURL(id string) string {
	return fmt.Sprintf("%s/api/media/%s", c.PublicBaseURL, id)
}
