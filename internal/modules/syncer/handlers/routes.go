package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers sync and connectivity routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sync", func(r chi.Router) {
		r.Post("/", h.HandleSyncAll)
		r.Get("/status", h.HandleGetStatus)
	})

	r.Get("/connectivity", h.HandleGetConnectivity)
	r.Put("/connectivity", h.HandleSetConnectivity)
}
