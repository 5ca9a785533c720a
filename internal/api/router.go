package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	ChiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the diagnostic surface: health, metrics, and read-only
// lookups over the emitted correlations.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(ChiMiddleware.Recoverer)
	r.Use(ChiMiddleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/correlations/unresolved", h.ListUnresolved)
		r.Get("/correlations/stats", h.GetStats)
		r.Get("/correlations/{mediaID}", h.GetCorrelation)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
