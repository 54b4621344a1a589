// config.go - Configuration for the shieldd proving service.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration, loaded from YAML over defaults.
type Config struct {
	// Listen is the HTTP bind address.
	Listen string `yaml:"listen"`

	// KeyDir holds the Groth16 proving/verifying keys. Keys are generated
	// on first start when the directory is empty.
	KeyDir string `yaml:"key_dir"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// MaxProvers bounds concurrent proving runs.
	MaxProvers int `yaml:"max_provers"`

	// ProveTimeout caps a single proving run, queue time included.
	ProveTimeout time.Duration `yaml:"prove_timeout"`

	// RateBurst and RateRefillPerSec shape the per-client token bucket on
	// the prove endpoint.
	RateBurst        int `yaml:"rate_burst"`
	RateRefillPerSec int `yaml:"rate_refill_per_sec"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:           ":8480",
		KeyDir:           "keys",
		LogLevel:         "info",
		MaxProvers:       2,
		ProveTimeout:     5 * time.Minute,
		RateBurst:        4,
		RateRefillPerSec: 1,
	}
}

// LoadConfig reads path over the defaults. An empty path returns defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is empty")
	}
	if c.MaxProvers < 1 {
		return fmt.Errorf("config: max_provers must be at least 1, got %d", c.MaxProvers)
	}
	if c.ProveTimeout <= 0 {
		return fmt.Errorf("config: prove_timeout must be positive, got %s", c.ProveTimeout)
	}
	if c.RateBurst < 1 || c.RateRefillPerSec < 1 {
		return fmt.Errorf("config: rate limit parameters must be at least 1")
	}
	return nil
}
