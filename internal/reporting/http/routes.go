package reportinghttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the reporting read surface.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Report)
	r.Get("/available-dates", h.AvailableDates)
	r.Get("/daily", h.DailyStats)
}
