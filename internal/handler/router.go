package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds a chi router with the shared middleware stack and the
// health endpoint, then lets each mount register its routes.
func NewRouter(logger *slog.Logger, origins []string, mounts ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(logger))
	r.Use(SecurityHeaders)
	r.Use(CORS(origins))

	r.Get("/health", HealthCheck)
	for _, mount := range mounts {
		mount(r)
	}
	return r
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
