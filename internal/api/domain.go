package api

import (
	"fmt"

	"github.com/JaimeStill/preflight/internal/checks"
	"github.com/JaimeStill/preflight/internal/config"
	"github.com/JaimeStill/preflight/internal/rules"
	"github.com/JaimeStill/preflight/internal/sessions"
	"github.com/JaimeStill/preflight/internal/upload"
	"github.com/JaimeStill/preflight/internal/validation"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Checks   *checks.Registry
	Sessions sessions.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime, cfg *config.Config) (*Domain, error) {
	strategies, err := NewChecks(runtime, &cfg.Validator)
	if err != nil {
		return nil, err
	}

	sessionsSystem := sessions.New(
		runtime.Lifecycle,
		sessions.Options{
			Producer: NewProducer(runtime, &cfg.Upload),
			Storage:  runtime.Storage,
			Checks:   strategies,
			Rules:    rules.Catalog(),
			Validation: validation.Config{
				Timeout:       cfg.Validator.TimeoutDuration(),
				MaxConcurrent: cfg.Validator.MaxConcurrent,
			},
			ShutdownTimeout: cfg.ShutdownTimeoutDuration(),
		},
		sessions.Config{
			IdleTimeout:   cfg.Sessions.IdleTimeoutDuration(),
			SweepInterval: cfg.Sessions.SweepIntervalDuration(),
		},
		runtime.Logger,
	)

	return &Domain{
		Checks:   strategies,
		Sessions: sessionsSystem,
	}, nil
}

// NewChecks binds every rule that has a remote check. Rules left unbound
// resolve through the not-implemented strategy.
func NewChecks(runtime *Runtime, cfg *config.ValidatorConfig) (*checks.Registry, error) {
	barcode, err := checks.NewBarcode(runtime.HTTPClient, cfg.BaseURL, cfg.BarcodePath)
	if err != nil {
		return nil, fmt.Errorf("barcode check: %w", err)
	}

	reg := checks.NewRegistry()
	reg.Register(rules.Barcode, barcode)
	return reg, nil
}

// NewProducer selects the upload progress producer for cfg.Mode.
func NewProducer(runtime *Runtime, cfg *config.UploadConfig) upload.Producer {
	if cfg.Mode == config.UploadModeStorage {
		return upload.NewTransfer(runtime.Storage, cfg.ChunkSizeBytes())
	}
	return upload.NewSimulator(cfg.Step, cfg.IntervalDuration())
}
