package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nyayatech/nyaya/internal/api"
	"github.com/nyayatech/nyaya/internal/api/handlers"
	"github.com/nyayatech/nyaya/internal/api/middleware"
)

type RouterConfig struct {
	SearchHandler    *handlers.SearchHandler
	AskHandler       *handlers.AskHandler
	AuthorityHandler *handlers.AuthorityHandler
	WeightsHandler   *handlers.WeightsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/search", cfg.SearchHandler.Search)
	r.Post("/ask", cfg.AskHandler.Ask)

	r.Route("/authorities", func(r chi.Router) {
		r.Post("/", cfg.AuthorityHandler.Create)
		r.Get("/", cfg.AuthorityHandler.List)
		r.Get("/{id}", cfg.AuthorityHandler.Get)
	})

	r.Get("/weights", cfg.WeightsHandler.Get)

	return r
}
