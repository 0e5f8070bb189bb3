package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"shelf/internal/vaultservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth
// group.
func NewRouter(svc *vaultservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Records CRUD.
	r.Get("/records", h.ListRecords)
	r.Post("/records", h.CreateRecord)
	r.Delete("/records", h.DeleteAllRecords)
	r.Get("/records/{id}", h.GetRecord)
	r.Put("/records/{id}", h.UpdateRecord)
	r.Delete("/records/{id}", h.DeleteRecord)

	// Queries.
	r.Get("/search", h.Search)
	r.Get("/tags", h.Tags)
	r.Get("/stats", h.Stats)

	// Validation entry point for form data.
	r.Post("/validate", h.Validate)

	// Import/export.
	r.Get("/export", h.Export)
	r.Post("/export", h.ExportToFile)
	r.Post("/import", h.Import)

	// Settings.
	r.Get("/settings", h.Settings)
	r.Put("/settings/theme", h.SetTheme)
	r.Put("/settings/cap", h.SetCap)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
