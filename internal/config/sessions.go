package config

import (
	"fmt"
	"os"
	"time"
)

const (
	EnvSessionsIdleTimeout   = "PREFLIGHT_SESSIONS_IDLE_TIMEOUT"
	EnvSessionsSweepInterval = "PREFLIGHT_SESSIONS_SWEEP_INTERVAL"
)

// SessionsConfig controls how long idle sessions live.
type SessionsConfig struct {
	IdleTimeout   string `toml:"idle_timeout"`
	SweepInterval string `toml:"sweep_interval"`
}

// IdleTimeoutDuration returns IdleTimeout as a time.Duration.
func (c *SessionsConfig) IdleTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	return d
}

// SweepIntervalDuration returns SweepInterval as a time.Duration.
func (c *SessionsConfig) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *SessionsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *SessionsConfig) Merge(overlay *SessionsConfig) {
	if overlay.IdleTimeout != "" {
		c.IdleTimeout = overlay.IdleTimeout
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
}

func (c *SessionsConfig) loadDefaults() {
	if c.IdleTimeout == "" {
		c.IdleTimeout = "30m"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "1m"
	}
}

func (c *SessionsConfig) loadEnv() {
	if v := os.Getenv(EnvSessionsIdleTimeout); v != "" {
		c.IdleTimeout = v
	}
	if v := os.Getenv(EnvSessionsSweepInterval); v != "" {
		c.SweepInterval = v
	}
}

func (c *SessionsConfig) validate() error {
	idle, err := time.ParseDuration(c.IdleTimeout)
	if err != nil {
		return fmt.Errorf("invalid idle_timeout: %w", err)
	}
	sweep, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return fmt.Errorf("invalid sweep_interval: %w", err)
	}
	if idle > 0 && sweep <= 0 {
		return fmt.Errorf("sweep_interval must be positive when idle_timeout is set")
	}
	return nil
}
