package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-automation/internal/api/http/handlers"
	"github.com/spec-kit/ticket-automation/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tasks          *handlers.TasksHandler
	Audience       *handlers.AudienceHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/operator/login", cfg.Auth.Login)

	operator := func(h fiber.Handler) []fiber.Handler {
		return []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireOperator(), h}
	}
	app.Get("/metrics", operator(cfg.Health.Metrics)...)
	app.Get("/tasks", operator(cfg.Tasks.List)...)
	app.Post("/tasks/:name/run", operator(cfg.Tasks.Run)...)
	app.Get("/tickets/:id/audience", operator(cfg.Audience.Get)...)
}
