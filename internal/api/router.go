package api

import (
	"github.com/civicgrid/civicgrid-be/internal/api/handlers"
	"github.com/civicgrid/civicgrid-be/internal/auth"
	"github.com/civicgrid/civicgrid-be/internal/services"
	"github.com/civicgrid/civicgrid-be/internal/session"
	ws "github.com/civicgrid/civicgrid-be/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	hub *ws.Hub,
	sessions *session.Manager,
	gate *auth.Gate,
	userService services.UserServiceProvider,
	eventService services.EventServiceProvider,
	wasteService services.WasteServiceProvider,
	statsService services.StatsServiceProvider,
	routeResolver services.RouteResolver,
	corsOrigin string,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, eventService, sessions, gate)
	routeHandler := handlers.NewRouteHandler(routeResolver)
	wasteHandler := handlers.NewWasteHandler(wasteService)
	adminHandler := handlers.NewAdminHandler(statsService, eventService)
	wsHandler := handlers.NewWebSocketHandler(hub)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(gate.RequireSession).Get("/me", authHandler.Me)
		})

		// Pages behind the session gate
		r.Group(func(r chi.Router) {
			r.Use(gate.RequireSession)
			r.Get("/routes/resolve", routeHandler.Resolve)
			r.Post("/waste/classify", wasteHandler.Classify)
		})

		// Admin-only pages; the gate fails closed on any lookup error
		r.Group(func(r chi.Router) {
			r.Use(gate.RequireAdmin)
			r.Get("/admin/stats", adminHandler.Stats)
			r.Get("/admin/events", adminHandler.Events)
			r.Get("/admin/system", adminHandler.System)
			r.Get("/ws/stats", wsHandler.ServeStats)
		})
	})

	return r
}
