package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "PREFLIGHT_SERVER_HOST"
	EnvServerPort              = "PREFLIGHT_SERVER_PORT"
	EnvServerReadHeaderTimeout = "PREFLIGHT_SERVER_READ_HEADER_TIMEOUT"
	EnvServerReadTimeout       = "PREFLIGHT_SERVER_READ_TIMEOUT"
	EnvServerWriteTimeout      = "PREFLIGHT_SERVER_WRITE_TIMEOUT"
	EnvServerIdleTimeout       = "PREFLIGHT_SERVER_IDLE_TIMEOUT"
	EnvServerShutdownTimeout   = "PREFLIGHT_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP server parameters. A zero write_timeout leaves
// responses unbounded, which event streams and ?wait=true requests rely on.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	ReadTimeout       string `toml:"read_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return mustDuration(c.ReadHeaderTimeout)
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return mustDuration(c.ReadTimeout)
}

func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return mustDuration(c.WriteTimeout)
}

func (c *ServerConfig) IdleTimeoutDuration() time.Duration {
	return mustDuration(c.IdleTimeout)
}

func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return mustDuration(c.ShutdownTimeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	ours, theirs := c.durations(), overlay.durations()
	for i := range ours {
		if v := *theirs[i].ptr; v != "" {
			*ours[i].ptr = v
		}
	}
}

type durationField struct {
	name string
	env  string
	def  string
	ptr  *string
}

func (c *ServerConfig) durations() []durationField {
	return []durationField{
		{"read_header_timeout", EnvServerReadHeaderTimeout, "10s", &c.ReadHeaderTimeout},
		{"read_timeout", EnvServerReadTimeout, "2m", &c.ReadTimeout},
		{"write_timeout", EnvServerWriteTimeout, "0s", &c.WriteTimeout},
		{"idle_timeout", EnvServerIdleTimeout, "2m", &c.IdleTimeout},
		{"shutdown_timeout", EnvServerShutdownTimeout, "30s", &c.ShutdownTimeout},
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	for _, f := range c.durations() {
		if *f.ptr == "" {
			*f.ptr = f.def
		}
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	for _, f := range c.durations() {
		if v := os.Getenv(f.env); v != "" {
			*f.ptr = v
		}
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, f := range c.durations() {
		d, err := time.ParseDuration(*f.ptr)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid %s: must not be negative", f.name)
		}
	}
	return nil
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
