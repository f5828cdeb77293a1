package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JaimeStill/preflight/internal/api"
	"github.com/JaimeStill/preflight/internal/config"
	"github.com/JaimeStill/preflight/internal/infrastructure"
)

// Modules groups the mounted API modules.
type Modules struct {
	API *api.Module
}

// NewModules builds every module from cfg.
func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: apiModule,
	}, nil
}

func (m *Modules) Start(infra *infrastructure.Infrastructure) error {
	return m.API.Start(infra.Lifecycle)
}

func (m *Modules) Mount(router chi.Router) {
	m.API.Mount(router)
}

func buildRouter(infra *infrastructure.Infrastructure) chi.Router {
	router := chi.NewRouter()

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	return router
}
