package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opx/controlplane/internal/api/middleware"
	"github.com/opx/controlplane/pkg/domain"
	"github.com/opx/controlplane/pkg/incident"
)

// NewRouter builds the full HTTP surface spec.md §6 describes: automation
// triggers, kill-switch admin, and incident lifecycle transitions.
func NewRouter(deps AutomationDeps, incidents *incident.Service, lister IncidentLister) *chi.Mux {
	s := &Server{Deps: deps, Incidents: incidents, Lister: lister}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Opx-Principal", "X-Opx-Authority"},
	}))
	r.Use(middleware.HeaderPrincipalExtractor)

	r.Route("/automation", func(r chi.Router) {
		r.Post("/extract-patterns", s.handleExtractPatterns)
		r.Post("/calibrate", s.handleCalibrate)
		r.Post("/create-snapshot", s.handleCreateSnapshot)
		r.Route("/kill-switch", func(r chi.Router) {
			r.Post("/disable", s.handleKillSwitchDisable)
			r.Post("/enable", s.handleKillSwitchEnable)
			r.Get("/status", s.handleKillSwitchStatus)
		})
	})

	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", s.handleListIncidents)
		r.Post("/{id}/open", s.handleIncidentTransition(domain.StatusOpen))
		r.Post("/{id}/mitigate", s.handleIncidentTransition(domain.StatusMitigating))
		r.Post("/{id}/resolve", s.handleIncidentTransition(domain.StatusResolved))
		r.Post("/{id}/close", s.handleIncidentTransition(domain.StatusClosed))
	})

	return r
}
