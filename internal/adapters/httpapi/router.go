package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the API HTTP router.
//
// This is intentionally a thin adapter: handlers decode and validate the
// request shape, then delegate to the reconciliation service.
func NewRouter(s *Server, apiToken string) http.Handler {
	r := chi.NewRouter()

	// Baseline production-safe middleware (minimal but useful).
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(NewTokenAuthMiddleware(apiToken))

	// Health endpoint is unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/users/by-card/{card}", s.handleUserByCard)

		r.Route("/games/{game}/versions/{version}", func(r chi.Router) {
			r.Get("/users/by-refid/{refid}", s.handleUserByRefID)
			r.Get("/users/by-extid/{extid}", s.handleUserByExtID)

			r.Get("/profiles", s.handleAllProfiles)
			r.Post("/profiles/batch", s.handleBatchProfiles)
			r.Get("/profiles/{user}", s.handleProfile)
		})

		// The endpoint sibling servers query; serves local data only.
		r.Post("/federation/profiles", s.handleFederation)
	})

	return r
}
