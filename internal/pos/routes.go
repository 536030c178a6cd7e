package pos

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes attaches the terminal API routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales", h.CreateSale)
	r.Get("/sales/unsynced-count", h.UnsyncedCount)

	r.Get("/products", h.ListProducts)
	r.Get("/products/code/{code}", h.ProductByCode)

	r.Get("/sync/progress", h.SyncProgress)
	r.Group(func(r chi.Router) {
		// Manual triggers stay cheap for the backend even if the UI
		// hammers the button.
		r.Use(httprate.Limit(6, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/sync/trigger", h.TriggerSync)
		r.Post("/sync/reset", h.ResetCatalogSync)
	})

	r.Get("/config", h.Config)
}
