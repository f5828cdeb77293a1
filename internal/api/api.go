// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JaimeStill/preflight/internal/config"
	"github.com/JaimeStill/preflight/internal/infrastructure"
	"github.com/JaimeStill/preflight/pkg/lifecycle"
	"github.com/JaimeStill/preflight/pkg/middleware"
)

// Module is the API mounted under its base path.
type Module struct {
	Prefix string
	Domain *Domain
	router chi.Router
}

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain, err := NewDomain(runtime, cfg)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(runtime.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(&cfg.API.CORS))

	registerRoutes(r, domain, runtime)

	return &Module{
		Prefix: cfg.API.BasePath,
		Domain: domain,
		router: r,
	}, nil
}

// Start registers the domain systems with the lifecycle coordinator.
func (m *Module) Start(lc *lifecycle.Coordinator) error {
	return m.Domain.Sessions.Start(lc)
}

// Handler returns the module's router.
func (m *Module) Handler() http.Handler {
	return m.router
}

// Mount attaches the module to a parent router at its prefix.
func (m *Module) Mount(parent chi.Router) {
	parent.Mount(m.Prefix, m.router)
}
