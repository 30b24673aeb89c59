package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/content-catalog/pkg/catalog"
	"github.com/tendant/content-catalog/pkg/catalog/discovery"
)

// NewRouter assembles the full HTTP surface: content management under
// /api/v1/contents and the public discovery read side under /api/v1/discovery.
func NewRouter(svc catalog.Service, disc *discovery.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/contents", NewContentHandler(svc).Routes())
		r.Mount("/discovery", NewDiscoveryHandler(disc).Routes())
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}
