package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/cimex/cimex-console/internal/apiclient"
	"github.com/cimex/cimex-console/internal/domain"
	"github.com/cimex/cimex-console/internal/middleware"
	"github.com/cimex/cimex-console/internal/navigation"
	"github.com/cimex/cimex-console/internal/views"
)

// RegisterRoutes mounts the console API under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	sessions := NewSessionHandler(h)
	resources := NewResourceHandler(h)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", sessions.Get)
		r.Post("/session/login", sessions.Login)
		r.Post("/session/logout", sessions.Logout)
		r.Post("/session/check", sessions.Check)
		r.Get("/version", sessions.Version)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(h.sessions, navigation.LoginPath))

			r.Route("/nodes", resources.peerRoutes(views.NodesName, domain.RoleIran))
			r.Route("/servers", resources.peerRoutes(views.ServersName, domain.RoleForeign))

			r.Get("/settings", resources.GetSettings)
			r.Put("/settings", resources.PutSettings)

			r.Post("/core-health/reset/{core}", resources.ResetCore)
			r.Put("/core-health/reset-config/{core}", resources.UpdateResetConfig)

			r.Get("/ca", resources.CA(apiclient.CAPanel))
			r.Get("/ca/server", resources.CA(apiclient.CAServer))

			r.Get("/logs/export", resources.ExportLogs)
		})
	})
}
