// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, blob storage, the outbound HTTP client)
// that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/JaimeStill/preflight/internal/config"
	"github.com/JaimeStill/preflight/pkg/lifecycle"
	"github.com/JaimeStill/preflight/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, artifact blob storage, and calls to the validation service.
type Infrastructure struct {
	Lifecycle  *lifecycle.Coordinator
	Logger     *slog.Logger
	Storage    storage.System
	HTTPClient *http.Client
}

// New creates an Infrastructure that logs text to stderr.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// NewWithLogger creates an Infrastructure from the application configuration
// using logger. It initializes all systems but does not start them; call
// Start separately.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	lc := lifecycle.New()

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = max(cfg.Validator.MaxConcurrent, 2)

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Storage:   store,
		HTTPClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Validator.TimeoutDuration(),
		},
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}

	i.Lifecycle.OnShutdown(func() {
		<-i.Lifecycle.Context().Done()
		i.HTTPClient.CloseIdleConnections()
	})
	return nil
}
