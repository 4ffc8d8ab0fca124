package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/helpdesk-labs/ticketing/internal/api/http/handlers"
	"github.com/helpdesk-labs/ticketing/internal/auth"
	"github.com/helpdesk-labs/ticketing/internal/observability"
)

// RouteConfig bundles dependencies for the session and ticket service.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Sessions          *handlers.SessionsHandler
	Tickets           *handlers.TicketsHandler
	SessionMiddleware *auth.SessionMiddleware
	LoginLimiter      fiber.Handler
	Metrics           *observability.Metrics
}

// RegisterRoutes wires the session and ticket HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	api := app.Group("", cfg.SessionMiddleware.Handle)

	login := []fiber.Handler{cfg.Sessions.Login}
	if cfg.LoginLimiter != nil {
		login = append([]fiber.Handler{cfg.LoginLimiter}, login...)
	}
	api.Post("/sessions", login...)
	api.Get("/sessions/current", cfg.Sessions.Current)
	api.Delete("/sessions/current", cfg.Sessions.Logout)
	api.Get("/token", auth.RequireSession(), cfg.Sessions.Token)

	api.Get("/tickets", cfg.Tickets.ListTickets)
	api.Post("/tickets", auth.RequireSession(), cfg.Tickets.CreateTicket)
	api.Put("/tickets/:id/close", auth.RequireSession(), cfg.Tickets.CloseTicket)
	api.Put("/tickets/:id/open", auth.RequireAdmin(), cfg.Tickets.ReopenTicket)
	api.Put("/tickets/:id/category", auth.RequireAdmin(), cfg.Tickets.ChangeCategory)
	api.Get("/tickets/:id/comments", auth.RequireSession(), cfg.Tickets.ListComments)
	api.Post("/tickets/:id/comments", auth.RequireSession(), cfg.Tickets.AddComment)
}

// EstimatorRouteConfig bundles dependencies for the estimation service.
type EstimatorRouteConfig struct {
	Health      *handlers.HealthHandler
	Estimations *handlers.EstimationsHandler
	Capability  *auth.CapabilityMiddleware
	Metrics     *observability.Metrics
}

// RegisterEstimatorRoutes wires the stateless estimation routes. Nothing here
// touches sessions or the user store.
func RegisterEstimatorRoutes(app *fiber.App, cfg EstimatorRouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	app.Post("/estimations", cfg.Capability.Handle, cfg.Estimations.Estimate)
}
