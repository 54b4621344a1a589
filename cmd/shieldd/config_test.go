package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Run("empty path yields defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if *cfg != *DefaultConfig() {
			t.Errorf("got %+v, want defaults", cfg)
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "shieldd.yaml")
		doc := "listen: \"127.0.0.1:9000\"\nmax_provers: 8\nprove_timeout: 30s\n"
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Listen != "127.0.0.1:9000" || cfg.MaxProvers != 8 || cfg.ProveTimeout != 30*time.Second {
			t.Errorf("overrides not applied: %+v", cfg)
		}
		if cfg.KeyDir != DefaultConfig().KeyDir {
			t.Error("unset field lost its default")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("want error for missing file")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty listen", func(c *Config) { c.Listen = "" }, "listen"},
		{"zero provers", func(c *Config) { c.MaxProvers = 0 }, "max_provers"},
		{"negative timeout", func(c *Config) { c.ProveTimeout = -time.Second }, "prove_timeout"},
		{"zero burst", func(c *Config) { c.RateBurst = 0 }, "rate limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("want error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}
