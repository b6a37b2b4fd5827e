package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ListenHost string `env:"LISTEN_HOST" envDefault:"localhost"`
	Port       int    `env:"PORT" envDefault:"8000"`

	ArtifactDir      string `env:"ARTIFACT_DIR" envDefault:"./models"`
	ManifestPath     string `env:"MANIFEST_PATH"`
	OnnxRuntimeDylib string `env:"ONNX_RUNTIME_DYLIB,required,notEmpty"`
	MaxUploadMemory  int64  `env:"MAX_UPLOAD_MEMORY" envDefault:"33554432"`

	CorsAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	Store StoreConfig
}

// StoreConfig describes where artifacts are synced from. Syncing is disabled
// when Bucket is empty.
type StoreConfig struct {
	Kind          string `env:"ARTIFACT_STORE" envDefault:"s3"`
	LocalDir      string `env:"ARTIFACT_STORE_DIR" envDefault:"./artifact-store"`
	Bucket        string `env:"ARTIFACT_BUCKET"`
	Prefix        string `env:"ARTIFACT_PREFIX" envDefault:"models"`
	SyncOverwrite bool   `env:"ARTIFACT_SYNC_OVERWRITE" envDefault:"false"`

	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadStore parses only the artifact store settings, for tools that do not
// serve models.
func LoadStore() (*StoreConfig, error) {
	var cfg StoreConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *StoreConfig) validate() error {
	switch c.Kind {
	case "s3", "local":
		return nil
	default:
		return fmt.Errorf("invalid ARTIFACT_STORE '%s': must be s3 or local", c.Kind)
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT '%s': must be text or json", c.LogFormat)
	}
	return c.Store.validate()
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.Port)
}

// Manifest returns the configured manifest path, defaulting to manifest.yaml in
// the artifact directory.
func (c *Config) Manifest() string {
	if c.ManifestPath != "" {
		return c.ManifestPath
	}
	return filepath.Join(c.ArtifactDir, "manifest.yaml")
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("invalid LOG_LEVEL '%s': %w", c.LogLevel, err)
	}
	return level, nil
}
