package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bankdesk/servicedesk/internal/api/http/handlers"
	"github.com/bankdesk/servicedesk/internal/auth"
	"github.com/bankdesk/servicedesk/internal/domain"
)

// RouterDependencies carries everything route registration needs.
type RouterDependencies struct {
	Auth           *auth.AuthMiddleware
	AuthHandler    *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Categorization *handlers.CategorizationHandler
	Health         *handlers.HealthHandler
	Registry       *prometheus.Registry
}

// RegisterRoutes mounts the full HTTP surface on the fiber app.
func RegisterRoutes(app *fiber.App, deps RouterDependencies) {
	app.Get("/health/live", deps.Health.Live)
	app.Get("/health/ready", deps.Health.Ready)
	if deps.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")
	api.Post("/auth/login", deps.AuthHandler.Login)

	authed := api.Group("", deps.Auth.Handle)

	tickets := authed.Group("/tickets")
	tickets.Post("", deps.Tickets.CreateTicket)
	tickets.Get("", deps.Tickets.ListTickets)
	tickets.Get("/:id", deps.Tickets.GetTicket)
	tickets.Get("/:id/categorization", deps.Categorization.Get)
	tickets.Post("/:id/categorization/suggest", deps.Categorization.Suggest)

	staff := authed.Group("/staff", auth.RequireRole(domain.RoleManager, domain.RoleTechnician, domain.RoleAdmin))
	staff.Post("/tickets/:id/approve", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), deps.Tickets.Approve)
	staff.Post("/tickets/:id/reject", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), deps.Tickets.Reject)
	staff.Post("/tickets/:id/assign", deps.Tickets.Assign)
	staff.Post("/tickets/:id/status", deps.Tickets.UpdateStatus)
	staff.Get("/tickets/:id/audit", deps.Tickets.AuditTrail)
	staff.Post("/tickets/:id/categorization/confirm", auth.RequireRole(domain.RoleTechnician, domain.RoleAdmin), deps.Categorization.Confirm)
	staff.Post("/categorization/bulk-confirm", auth.RequireRole(domain.RoleTechnician, domain.RoleAdmin), deps.Categorization.BulkConfirm)

	admin := authed.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Post("/tickets/:id/categorization/lock", deps.Categorization.Lock)
	admin.Post("/tickets/:id/compliance/override", deps.Tickets.OverrideCompliance)
}
