package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(IdentityMiddleware)
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))

	s.router.Post("/graphql", s.handleGraphQL)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		r.Post("/users", s.handleCreateUser)
		r.Post("/workspaces", s.handleCreateWorkspace)

		r.Route("/me", func(r chi.Router) {
			r.Get("/shell", s.handleGetShell)
			r.Put("/frontend-preference", s.handleSetFrontendPreference)
		})

		r.Put("/workspace/frontend-policy", s.handleSetFrontendPolicy)
	})
}
