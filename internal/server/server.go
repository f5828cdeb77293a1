// Package server assembles the preflight HTTP service: infrastructure, the
// API module, health endpoints, and the listening server.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JaimeStill/preflight/internal/config"
	"github.com/JaimeStill/preflight/internal/infrastructure"
)

// Server owns the service's subsystems from startup to shutdown.
type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	router  chi.Router
	http    *httpServer
}

// New builds a Server with the default stderr logger.
func New(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}
	return assemble(cfg, infra)
}

// NewWithLogger builds a Server that logs through logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	infra, err := infrastructure.NewWithLogger(cfg, logger)
	if err != nil {
		return nil, err
	}
	return assemble(cfg, infra)
}

func assemble(cfg *config.Config, infra *infrastructure.Infrastructure) (*Server, error) {
	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"upload_mode", cfg.Upload.Mode,
		"validator", cfg.Validator.BaseURL,
	)

	return &Server{
		infra:   infra,
		modules: modules,
		router:  router,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts every subsystem and begins listening.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.modules.Start(s.infra); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown cancels all work and waits up to timeout for it to drain.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
