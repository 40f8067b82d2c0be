package actionshttp

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the action endpoints under /api.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/pricing/analyze", h.analyzePricing)
		r.Post("/pricing/apply", h.applyPricing)
		r.Group(func(r chi.Router) {
			// Market analysis scans the whole dataset; cap it harder than
			// the global limit.
			r.Use(httprate.LimitByIP(10, time.Minute))
			r.Post("/market/analyze", h.analyzeMarket)
		})
		r.Post("/review/analyze", h.analyzeReviews)
		r.Get("/action-codes", h.actionCodes)
		r.Post("/reviews/flag", h.flagReviews)
	})
}
