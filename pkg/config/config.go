package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENV" envDefault:"development"`

	// Scoring configuration
	CalibrationFile    string `env:"FUNNEL_CALIBRATION_FILE"`
	DefaultCalibration string `env:"FUNNEL_DEFAULT_CALIBRATION" envDefault:"baseline-70"`
	WatchCalibration   bool   `env:"FUNNEL_WATCH_CALIBRATION" envDefault:"true"`
	Workers            int    `env:"FUNNEL_WORKERS" envDefault:"4"`
	RequireOwner       bool   `env:"FUNNEL_REQUIRE_OWNER" envDefault:"false"`

	// Security configuration
	JWTSecret       string `env:"JWT_SECRET"`
	AllowedOrigins  string `env:"ALLOWED_ORIGINS"`
	TrustedProxies  string `env:"TRUSTED_PROXIES"`
	EnableRateLimit bool   `env:"ENABLE_RATE_LIMIT" envDefault:"true"`
	RateLimitPerMin int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"100"`
	MaxRequestSize  int64  `env:"MAX_REQUEST_SIZE" envDefault:"10485760"`
}

// New creates a new configuration instance from environment variables
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AuthEnabled reports whether API requests must carry a bearer token
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// GetAllowedOrigins returns a slice of allowed CORS origins
func (c *Config) GetAllowedOrigins() []string {
	return splitList(c.AllowedOrigins)
}

// GetTrustedProxies returns a slice of trusted proxy IPs
func (c *Config) GetTrustedProxies() []string {
	return splitList(c.TrustedProxies)
}

func splitList(value string) []string {
	if value == "" {
		return []string{}
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
