package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Sessions
		r.Post("/sessions/{id}/turns", h.HandleTurn)
		r.Post("/sessions/{id}/confirm", h.ConfirmSession)
		r.Get("/sessions/{id}", h.GetSession)

		// Traveller profiles
		r.Get("/profiles/{id}", h.GetProfile)
		r.Put("/profiles/{id}", h.UpsertProfile)
	})
}
