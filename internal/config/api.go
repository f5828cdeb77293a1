package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/preflight/pkg/formatting"
	"github.com/JaimeStill/preflight/pkg/middleware"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "PREFLIGHT_CORS_ENABLED",
	Origins:          "PREFLIGHT_CORS_ORIGINS",
	AllowedMethods:   "PREFLIGHT_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "PREFLIGHT_CORS_ALLOWED_HEADERS",
	AllowCredentials: "PREFLIGHT_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "PREFLIGHT_CORS_MAX_AGE",
}

// APIConfig holds API routing, upload limits, and CORS settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
}

// MaxUploadSizeBytes returns MaxUploadSize in bytes.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return 25 * 1024 * 1024 // 25MB fallback
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS config.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("base_path must start with /: %q", c.BasePath)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "25MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("PREFLIGHT_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("PREFLIGHT_API_MAX_UPLOAD_SIZE"); v != "" {
		c.MaxUploadSize = v
	}
}
