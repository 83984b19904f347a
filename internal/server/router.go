package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/notedex/notedex/internal/api"
	"github.com/notedex/notedex/internal/api/handlers"
	"github.com/notedex/notedex/internal/api/middleware"
)

type RouterConfig struct {
	SearchHandler *handlers.SearchHandler
	FacetHandler  *handlers.FacetHandler
	AnswerHandler *handlers.AnswerHandler
	SyncHandler   *handlers.SyncHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/search", cfg.SearchHandler.Search)
	r.Get("/facets", cfg.FacetHandler.Facets)
	r.Get("/answer", cfg.AnswerHandler.Answer)
	r.Post("/sync", cfg.SyncHandler.Trigger)

	return r
}
