package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/preflight/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "1m"
write_timeout = "0s"
shutdown_timeout = "30s"

[api]
base_path = "/api"
max_upload_size = "10MB"

[api.cors]
enabled = false

[storage]
provider = "memory"
container_name = "artifacts"

[upload]
mode = "simulate"
step = 20
interval = "50ms"

[validator]
base_url = "http://validator:8000"
timeout = "10s"
max_concurrent = 2

[sessions]
idle_timeout = "15m"
sweep_interval = "30s"
`

const overlayConfig = `
[server]
port = 9090

[upload]
mode = "storage"
chunk_size = "64KB"
`

func writeConfig(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	require.NoError(t, err)

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"server port", cfg.Server.Port, 8080},
		{"server read timeout", cfg.Server.ReadTimeoutDuration(), time.Minute},
		{"server write timeout", cfg.Server.WriteTimeoutDuration(), time.Duration(0)},
		{"server header timeout", cfg.Server.ReadHeaderTimeoutDuration(), 10 * time.Second},
		{"api base path", cfg.API.BasePath, "/api"},
		{"max upload size", cfg.API.MaxUploadSizeBytes(), int64(10 * 1024 * 1024)},
		{"storage provider", cfg.Storage.Provider, "memory"},
		{"upload step", cfg.Upload.Step, 20},
		{"upload interval", cfg.Upload.IntervalDuration(), 50 * time.Millisecond},
		{"upload chunk size default", cfg.Upload.ChunkSizeBytes(), 256 * 1024},
		{"validator base url", cfg.Validator.BaseURL, "http://validator:8000"},
		{"validator barcode path default", cfg.Validator.BarcodePath, "/validate_barcodes"},
		{"validator timeout", cfg.Validator.TimeoutDuration(), 10 * time.Second},
		{"validator max concurrent", cfg.Validator.MaxConcurrent, 2},
		{"sessions idle timeout", cfg.Sessions.IdleTimeoutDuration(), 15 * time.Minute},
		{"sessions sweep interval", cfg.Sessions.SweepIntervalDuration(), 30 * time.Second},
		{"shutdown timeout", cfg.ShutdownTimeoutDuration(), 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	base := writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)

	t.Setenv("PREFLIGHT_ENV", "staging")

	cfg, err := config.LoadFile(base)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env())
	assert.Equal(t, 9090, cfg.Server.Port, "from overlay")
	assert.Equal(t, config.UploadModeStorage, cfg.Upload.Mode, "from overlay")
	assert.Equal(t, 64*1024, cfg.Upload.ChunkSizeBytes(), "from overlay")
	assert.Equal(t, 20, cfg.Upload.Step, "from base")
	assert.Equal(t, "http://validator:8000", cfg.Validator.BaseURL, "from base")
}

func TestLoadEnvVarOverrides(t *testing.T) {
	dir := t.TempDir()
	base := writeConfig(t, dir, "config.toml", baseConfig)

	t.Setenv("PREFLIGHT_VERSION", "2.0.0")
	t.Setenv("PREFLIGHT_SERVER_PORT", "3000")
	t.Setenv("PREFLIGHT_VALIDATOR_BASE_URL", "https://validate.example.com")
	t.Setenv("PREFLIGHT_VALIDATOR_MAX_CONCURRENT", "6")
	t.Setenv("PREFLIGHT_UPLOAD_MODE", "storage")
	t.Setenv("PREFLIGHT_SESSIONS_IDLE_TIMEOUT", "1h")

	cfg, err := config.LoadFile(base)
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", cfg.Version)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "https://validate.example.com", cfg.Validator.BaseURL)
	assert.Equal(t, 6, cfg.Validator.MaxConcurrent)
	assert.Equal(t, config.UploadModeStorage, cfg.Upload.Mode)
	assert.Equal(t, time.Hour, cfg.Sessions.IdleTimeoutDuration())
}

func TestLoadNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/api", cfg.API.BasePath)
	assert.Equal(t, config.UploadModeSimulate, cfg.Upload.Mode)
	assert.Equal(t, 10, cfg.Upload.Step)
	assert.Equal(t, "http://localhost:8000", cfg.Validator.BaseURL)
	assert.Equal(t, 3, cfg.Validator.MaxConcurrent)
	assert.Equal(t, "memory", cfg.Storage.Provider)
	assert.Equal(t, "0.1.0", cfg.Version)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := map[string]string{
		"bad port":           "[server]\nport = 70000\n",
		"negative timeout":   "[server]\nidle_timeout = \"-1s\"\n",
		"bad upload mode":    "[upload]\nmode = \"ftp\"\n",
		"bad upload step":    "[upload]\nstep = 150\n",
		"bad chunk size":     "[upload]\nchunk_size = \"lots\"\n",
		"bad validator url":  "[validator]\nbase_url = \"localhost\"\n",
		"bad timeout":        "[validator]\ntimeout = \"soon\"\n",
		"bad max upload":     "[api]\nmax_upload_size = \"big\"\n",
		"bad base path":      "[api]\nbase_path = \"api\"\n",
		"azure without conn": "[storage]\nprovider = \"azure\"\n",
		"unknown provider":   "[storage]\nprovider = \"s3\"\n",
		"bad idle timeout":   "[sessions]\nidle_timeout = \"forever\"\n",
		"malformed toml":     "[server\nport = 1\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			base := writeConfig(t, t.TempDir(), "config.toml", content)
			_, err := config.LoadFile(base)
			assert.Error(t, err)
		})
	}
}

func TestMerge(t *testing.T) {
	base := &config.Config{
		Version: "1.0.0",
		Validator: config.ValidatorConfig{
			BaseURL: "http://a:8000",
			Timeout: "5s",
		},
	}
	base.Merge(&config.Config{
		Validator: config.ValidatorConfig{Timeout: "20s"},
	})

	assert.Equal(t, "1.0.0", base.Version)
	assert.Equal(t, "http://a:8000", base.Validator.BaseURL)
	assert.Equal(t, "20s", base.Validator.Timeout)
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"", 9000, ":9000"},
		{"::1", 8443, "[::1]:8443"},
	}

	for _, tt := range tests {
		c := config.ServerConfig{Host: tt.host, Port: tt.port}
		assert.Equal(t, tt.want, c.Addr())
	}
}
