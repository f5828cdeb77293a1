package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/preflight/pkg/formatting"
)

// Upload modes.
const (
	UploadModeSimulate = "simulate"
	UploadModeStorage  = "storage"
)

const (
	EnvUploadMode      = "PREFLIGHT_UPLOAD_MODE"
	EnvUploadStep      = "PREFLIGHT_UPLOAD_STEP"
	EnvUploadInterval  = "PREFLIGHT_UPLOAD_INTERVAL"
	EnvUploadChunkSize = "PREFLIGHT_UPLOAD_CHUNK_SIZE"
)

// UploadConfig selects how artifact progress is produced: a timed
// simulation, or a chunked transfer into blob storage.
type UploadConfig struct {
	Mode      string `toml:"mode"`
	Step      int    `toml:"step"`
	Interval  string `toml:"interval"`
	ChunkSize string `toml:"chunk_size"`
}

// IntervalDuration returns Interval as a time.Duration.
func (c *UploadConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// ChunkSizeBytes returns ChunkSize in bytes.
func (c *UploadConfig) ChunkSizeBytes() int {
	n, err := formatting.ParseBytes(c.ChunkSize)
	if err != nil {
		return 256 * 1024
	}
	return int(n)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *UploadConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *UploadConfig) Merge(overlay *UploadConfig) {
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.Step != 0 {
		c.Step = overlay.Step
	}
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.ChunkSize != "" {
		c.ChunkSize = overlay.ChunkSize
	}
}

func (c *UploadConfig) loadDefaults() {
	if c.Mode == "" {
		c.Mode = UploadModeSimulate
	}
	if c.Step == 0 {
		c.Step = 10
	}
	if c.Interval == "" {
		c.Interval = "100ms"
	}
	if c.ChunkSize == "" {
		c.ChunkSize = "256KB"
	}
}

func (c *UploadConfig) loadEnv() {
	if v := os.Getenv(EnvUploadMode); v != "" {
		c.Mode = v
	}
	if v := os.Getenv(EnvUploadStep); v != "" {
		if step, err := strconv.Atoi(v); err == nil {
			c.Step = step
		}
	}
	if v := os.Getenv(EnvUploadInterval); v != "" {
		c.Interval = v
	}
	if v := os.Getenv(EnvUploadChunkSize); v != "" {
		c.ChunkSize = v
	}
}

func (c *UploadConfig) validate() error {
	switch c.Mode {
	case UploadModeSimulate, UploadModeStorage:
	default:
		return fmt.Errorf("invalid mode %q: want %s or %s", c.Mode, UploadModeSimulate, UploadModeStorage)
	}
	if c.Step < 1 || c.Step > 100 {
		return fmt.Errorf("invalid step: %d", c.Step)
	}
	if _, err := time.ParseDuration(c.Interval); err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	n, err := formatting.ParseBytes(c.ChunkSize)
	if err != nil {
		return fmt.Errorf("invalid chunk_size: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("invalid chunk_size: %s", c.ChunkSize)
	}
	return nil
}
