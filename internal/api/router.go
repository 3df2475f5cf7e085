package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// System metrics (no auth required for basic monitoring)
		r.Get("/metrics", s.handleMetrics)

		// Token endpoints (no auth required)
		r.Route("/auth/token", func(r chi.Router) {
			r.Post("/", s.handleObtainToken)
			r.Post("/refresh", s.handleRefreshToken)
			r.Post("/verify", s.handleVerifyToken)
		})

		// User endpoints. Registration is open; everything else requires
		// a token.
		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)

				r.Get("/", s.handleListUsers)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetUser)
					r.Patch("/", s.handleUpdateUser)
					r.Delete("/", s.handleDeleteUser)
					r.Get("/sessions", s.handleListUserSessions)
					r.Delete("/sessions", s.handleRevokeUserSessions)
				})
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Profile endpoints (active_conn_id and last_active are
			// registry-owned and read-only here)
			r.Route("/profiles", func(r chi.Router) {
				r.Get("/", s.handleListProfiles)
				r.Get("/{id}", s.handleGetProfile)
				r.Patch("/{id}", s.handleUpdateProfile)
			})

			// Template endpoints
			r.Route("/templates", func(r chi.Router) {
				r.Get("/", s.handleListTemplates)
				r.Post("/", s.handleCreateTemplate)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetTemplate)
					r.Patch("/", s.handleUpdateTemplate)
					r.Delete("/", s.handleDeleteTemplate)
				})
			})
		})
	})

	// Realtime endpoint. Identity comes from the path; an unknown user is
	// refused with 404 before the websocket upgrade.
	r.Get("/realtime/{user_id}", s.handleRealtime)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
