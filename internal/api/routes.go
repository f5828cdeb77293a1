package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/JaimeStill/preflight/pkg/routes"
)

func registerRoutes(r chi.Router, domain *Domain, runtime *Runtime) {
	h := domain.Sessions.Handler(runtime.MaxUploadSize)

	routes.Register(
		r,
		h.RulesGroup(),
		h.Routes(),
	)
}
