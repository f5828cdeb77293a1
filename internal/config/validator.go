package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	EnvValidatorBaseURL       = "PREFLIGHT_VALIDATOR_BASE_URL"
	EnvValidatorBarcodePath   = "PREFLIGHT_VALIDATOR_BARCODE_PATH"
	EnvValidatorTimeout       = "PREFLIGHT_VALIDATOR_TIMEOUT"
	EnvValidatorMaxConcurrent = "PREFLIGHT_VALIDATOR_MAX_CONCURRENT"
)

// ValidatorConfig addresses the remote validation service and bounds calls
// made to it.
type ValidatorConfig struct {
	BaseURL       string `toml:"base_url"`
	BarcodePath   string `toml:"barcode_path"`
	Timeout       string `toml:"timeout"`
	MaxConcurrent int    `toml:"max_concurrent"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *ValidatorConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ValidatorConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ValidatorConfig) Merge(overlay *ValidatorConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.BarcodePath != "" {
		c.BarcodePath = overlay.BarcodePath
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxConcurrent != 0 {
		c.MaxConcurrent = overlay.MaxConcurrent
	}
}

func (c *ValidatorConfig) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8000"
	}
	if c.BarcodePath == "" {
		c.BarcodePath = "/validate_barcodes"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 3
	}
}

func (c *ValidatorConfig) loadEnv() {
	if v := os.Getenv(EnvValidatorBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvValidatorBarcodePath); v != "" {
		c.BarcodePath = v
	}
	if v := os.Getenv(EnvValidatorTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvValidatorMaxConcurrent); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrent = n
		}
	}
}

func (c *ValidatorConfig) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url: %q", c.BaseURL)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("invalid max_concurrent: %d", c.MaxConcurrent)
	}
	return nil
}
