package config

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/utils"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Capture   CaptureConfig
	Formatter FormatterConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

// ServerConfig holds the local sidebar server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// BackendConfig holds FaultMaven backend connection settings.
type BackendConfig struct {
	URL               string        `envconfig:"BACKEND_URL" default:"http://127.0.0.1:8000"`
	Timeout           time.Duration `envconfig:"BACKEND_TIMEOUT" default:"30s"`
	RetryCount        int           `envconfig:"BACKEND_RETRY_COUNT" default:"0"`
	RequestsPerSecond float64       `envconfig:"BACKEND_RPS" default:"0"`
	UserAgent         string        `envconfig:"BACKEND_USER_AGENT" default:"FaultMaven-Sidebar/1.0"`
	BreakerFailures   int           `envconfig:"BACKEND_BREAKER_FAILURES" default:"5"`
	BreakerCooldown   time.Duration `envconfig:"BACKEND_BREAKER_COOLDOWN" default:"30s"`
}

// CaptureConfig holds page capture settings.
type CaptureConfig struct {
	Timeout  time.Duration `envconfig:"CAPTURE_TIMEOUT" default:"15s"`
	MaxBytes int64         `envconfig:"CAPTURE_MAX_BYTES" default:"10485760"`
}

// FormatterConfig holds response formatting settings.
type FormatterConfig struct {
	Sanitize bool `envconfig:"FORMAT_SANITIZE" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration for the sidebar API.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// CORSConfig holds the origins allowed to call the sidebar API.
type CORSConfig struct {
	AllowOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "127.0.0.1",
		},
		Backend: BackendConfig{
			URL:        "http://127.0.0.1:8000",
			Timeout:    30 * time.Second,
			RetryCount: 0,
			UserAgent:  "FaultMaven-Sidebar/1.0",

			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Capture: CaptureConfig{
			Timeout:  15 * time.Second,
			MaxBytes: utils.MaxHTMLSize,
		},
		Formatter: FormatterConfig{
			Sanitize: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
		},
	}
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if err := utils.ValidateURL(c.Backend.URL); err != nil {
		return fmt.Errorf("invalid BACKEND_URL: %w", err)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive, got %s", c.Backend.Timeout)
	}
	if c.Backend.RetryCount < 0 {
		return fmt.Errorf("BACKEND_RETRY_COUNT must not be negative, got %d", c.Backend.RetryCount)
	}
	if c.Backend.BreakerFailures < 0 {
		return fmt.Errorf("BACKEND_BREAKER_FAILURES must not be negative, got %d", c.Backend.BreakerFailures)
	}
	if c.Capture.MaxBytes <= 0 {
		return fmt.Errorf("CAPTURE_MAX_BYTES must be positive, got %d", c.Capture.MaxBytes)
	}
	return nil
}

// Addr returns the host:port the sidebar server listens on.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
