package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all transaction routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.HandleGetTransactions)
		r.Post("/", h.HandleCreateTransaction)
		r.Get("/summary", h.HandleGetSummary)
		r.Get("/{id}", h.HandleGetTransaction)
	})

	r.Get("/categories", h.HandleGetCategories)
}
