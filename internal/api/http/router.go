package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-tracker/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-tracker/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Staff          *handlers.StaffTicketsHandler
	Admin          *handlers.AdminTicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/handler/login", cfg.Users.HandlerLogin)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	protected.Get("/departments", cfg.Tickets.ListDepartments)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.SubmitTicket)
	tickets.Get("", cfg.Tickets.ListOwnTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)

	agent := protected.Group("/agent/tickets")
	agent.Get("", cfg.Staff.ListAgentQueue)
	agent.Patch("/:id", cfg.Staff.AgentUpdate)

	handler := protected.Group("/handler/tickets")
	handler.Get("", cfg.Staff.ListHandlerQueue)
	handler.Patch("/:id", cfg.Staff.HandlerUpdate)
	handler.Post("/:id/claim", cfg.Staff.ClaimTicket)

	admin := protected.Group("/admin")
	admin.Get("/tickets", cfg.Admin.ListTickets)
	admin.Patch("/tickets/:id", cfg.Admin.ReviewUpdate)
	admin.Delete("/tickets/:id", cfg.Admin.DeleteTicket)
	admin.Post("/tickets/complete-all", cfg.Admin.MarkAllCompleted)
	admin.Post("/tickets/delete-selected", cfg.Admin.DeleteSelected)
	admin.Get("/tickets/:id/history", cfg.Admin.ListHistory)
	admin.Post("/departments", cfg.Admin.CreateDepartment)
	admin.Delete("/departments/:id", cfg.Admin.DeleteDepartment)
}
