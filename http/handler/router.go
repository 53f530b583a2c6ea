package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/leeforge/imageflow/http/middleware"
)

// NewRouter assembles the service router: recovery, trace IDs and timing
// around the image routes.
func NewRouter(images *Images) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.TraceID())
	r.Use(middleware.Timing())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		images.Routes(r)
	})

	return r
}
