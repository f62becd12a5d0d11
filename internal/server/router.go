package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stackpile/noteforge/internal/api"
	"github.com/stackpile/noteforge/internal/api/handlers"
	"github.com/stackpile/noteforge/internal/api/middleware"
)

type RouterConfig struct {
	APIKey           string
	MigrationHandler *handlers.MigrationHandler
	SearchHandler    *handlers.SearchHandler
	DocumentHandler  *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Exports with attachments get large; the cap matches what one import
	// request may reasonably carry.
	const maxBodyBytes int64 = 100 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))

		r.Route("/migrations", func(r chi.Router) {
			r.Post("/", cfg.MigrationHandler.Start)
			r.Get("/{id}", cfg.MigrationHandler.Get)
		})

		r.Post("/search", cfg.SearchHandler.Search)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Get("/{id}/attachments", cfg.DocumentHandler.Attachments)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
		})
	})

	return r
}
