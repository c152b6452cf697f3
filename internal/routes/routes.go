package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/vigilauth/vigil/internal/auth"
	"github.com/vigilauth/vigil/internal/handlers"
	"github.com/vigilauth/vigil/internal/middleware"
)

// RegisterRoutes registers all application routes.
//
// Login carries no middleware rate limit: failed logins feed the anomaly
// engine, which enforces its own per-account and per-origin thresholds.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	sessions auth.SessionValidator,
	users auth.UserFetcher,
) {
	registerLimit := middleware.DefaultRegisterRateLimit()

	// Public routes
	router.Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(registerLimit)).Post("/auth/register", authHandler.Register)

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager, sessions, users))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/me", authHandler.Me)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/admin/users", adminHandler.ListUsers)
			r.Get("/admin/anomalies", adminHandler.ListAnomalies)
			r.Get("/admin/anomaly-stats", adminHandler.AnomalyStats)
		})
	})
}
