package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig contains HTTP listener parameters
type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig contains persistence parameters
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// WebhookConfig contains the ingestion pipeline parameters
type WebhookConfig struct {
	ResponseCacheTTL   string  `yaml:"response_cache_ttl"`   // e.g. "5s"
	SweepThreshold     int     `yaml:"sweep_threshold"`      // entries before a sweep
	CredentialCacheTTL string  `yaml:"credential_cache_ttl"` // e.g. "60m"
	RatePerMinute      float64 `yaml:"rate_per_minute"`
	RateBurst          int     `yaml:"rate_burst"`
}

// AuthConfig contains management-surface authentication parameters
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// Default returns the configuration used when no file is provided
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{Path: "journal.db"},
		Webhook: WebhookConfig{
			ResponseCacheTTL:   "5s",
			SweepThreshold:     1000,
			CredentialCacheTTL: "60m",
			RatePerMinute:      60,
			RateBurst:          10,
		},
		Auth: AuthConfig{JWTSecret: "journal-secret-key"},
	}
}

// Load reads configuration from a YAML file and applies environment
// overrides. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment overrides
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.ResponseCacheTTL(); err != nil {
		return fmt.Errorf("invalid response_cache_ttl: %w", err)
	}
	if _, err := c.CredentialCacheTTL(); err != nil {
		return fmt.Errorf("invalid credential_cache_ttl: %w", err)
	}
	if c.Webhook.RatePerMinute <= 0 {
		return fmt.Errorf("rate_per_minute must be positive")
	}
	if c.Webhook.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1")
	}
	return nil
}

// ResponseCacheTTL parses the duplicate-delivery window
func (c *Config) ResponseCacheTTL() (time.Duration, error) {
	return time.ParseDuration(c.Webhook.ResponseCacheTTL)
}

// CredentialCacheTTL parses the verified-secret cache lifetime
func (c *Config) CredentialCacheTTL() (time.Duration, error) {
	return time.ParseDuration(c.Webhook.CredentialCacheTTL)
}
