package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the process configuration, read from environment variables.
type Config struct {
	// ServerListenAddr specifies the network address that the HTTP server will listen on.
	ServerListenAddr string `env:"SERVER_LISTEN_ADDR" envDefault:":3593"`

	// CatalogBaseURL is where list.json and the details documents live.
	CatalogBaseURL string        `env:"CATALOG_BASE_URL" envDefault:"https://raw.githubusercontent.com/p0werserg17/tr-ios-challenge/master"`
	CatalogTimeout time.Duration `env:"CATALOG_TIMEOUT" envDefault:"15s"`
	ImageTimeout   time.Duration `env:"IMAGE_TIMEOUT" envDefault:"8s"`

	ResponseCacheBytes int64 `env:"RESPONSE_CACHE_BYTES" envDefault:"4194304"`
	ImageCacheBytes    int64 `env:"IMAGE_CACHE_BYTES" envDefault:"67108864"`

	// ImageStoreDir keeps downloaded posters on disk. Empty keeps them in memory.
	ImageStoreDir string        `env:"IMAGE_STORE_DIR"`
	ImageStoreTTL time.Duration `env:"IMAGE_STORE_TTL" envDefault:"168h"`

	// RatingsConcurrency caps detail requests in flight while fetching ratings. Zero means no cap.
	RatingsConcurrency int `env:"RATINGS_CONCURRENCY" envDefault:"0"`
	// RequestsPerSecond caps outgoing catalog requests. Zero means no cap.
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND" envDefault:"0"`

	ServiceName          string `env:"SERVICE_NAME" envDefault:"moviebrowser"`
	ServiceVersion       string `env:"SERVICE_VERSION" envDefault:"0.0.1"`
	ServiceEnvironment   string `env:"SERVICE_ENVIRONMENT" envDefault:"lcl"`
	OtelExporterEndpoint string `env:"OTEL_EXPORTER_ENDPOINT"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables instead of the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to env.Parse: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.CatalogBaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse CATALOG_BASE_URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid CATALOG_BASE_URL: %q", c.CatalogBaseURL)
	}

	if c.ResponseCacheBytes <= 0 {
		return fmt.Errorf("invalid RESPONSE_CACHE_BYTES: %d", c.ResponseCacheBytes)
	}
	if c.ImageCacheBytes <= 0 {
		return fmt.Errorf("invalid IMAGE_CACHE_BYTES: %d", c.ImageCacheBytes)
	}
	if c.CatalogTimeout <= 0 || c.ImageTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}

	return nil
}
