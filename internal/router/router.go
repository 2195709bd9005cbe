package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/kpi-engine-api/internal/config"
	"github.com/noah-isme/kpi-engine-api/internal/handler"
	"github.com/noah-isme/kpi-engine-api/internal/middleware"
	"github.com/noah-isme/kpi-engine-api/internal/models"
	"github.com/noah-isme/kpi-engine-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	KPIHandler          *handler.KPIHandler
	SchedulerHandler    *handler.SchedulerHandler
	ImportHandler       *handler.ImportHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
}

// Roles allowed to trigger manual runs, imports, and job kicks.
var operatorRoles = []string{
	models.RoleCoordinator,
	models.RoleManager,
	models.RoleCompliance,
	models.RoleDepartmentHead,
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.KPIHandler != nil {
		kpi := app.Group("/api/v1/kpi", jwtMiddleware)
		runs := app.Group("/api/v1/kpi", jwtMiddleware,
			middleware.RequireRole(operatorRoles...),
			middleware.RateLimit("kpi-run", 10, time.Minute),
		)
		deps.KPIHandler.Register(kpi, runs)
	}

	if deps.ImportHandler != nil {
		imports := app.Group("/api/v1/kpi/import", jwtMiddleware,
			middleware.RequireRole(operatorRoles...),
			middleware.RateLimit("kpi-import", 5, time.Minute),
		)
		deps.ImportHandler.Register(imports)
	}

	if deps.SchedulerHandler != nil {
		scheduler := app.Group("/api/v1/scheduler", jwtMiddleware, middleware.RequireRole(operatorRoles...))
		deps.SchedulerHandler.Register(scheduler)
	}

	if deps.NotificationHandler != nil {
		notifications := app.Group("/api/v1/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}
}
