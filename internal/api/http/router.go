package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/civigate/eservices-portal/internal/api/http/handlers"
	"github.com/civigate/eservices-portal/internal/auth"
	"github.com/civigate/eservices-portal/internal/observability"
)

// RouteConfig carries everything the router needs.
type RouteConfig struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics

	AuthMiddleware *auth.AuthMiddleware

	Health       *handlers.HealthHandler
	Documents    *handlers.DocumentsHandler
	Users        *handlers.UsersHandler
	Services     *handlers.ServicesHandler
	Applications *handlers.ApplicationsHandler
}

// RegisterRoutes wires all endpoints onto the app.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	api.Post("/documents", cfg.AuthMiddleware.Handle, cfg.Documents.Upload)

	services := api.Group("/services", cfg.AuthMiddleware.Handle)
	services.Get("/", cfg.Services.List)
	services.Get("/:id", cfg.Services.Get)
	services.Post("/", cfg.Services.Create)
	services.Patch("/:id", cfg.Services.Update)

	apps := api.Group("/applications", cfg.AuthMiddleware.Handle)
	apps.Post("/", cfg.Applications.Create)
	apps.Get("/", cfg.Applications.List)
	apps.Get("/:id", cfg.Applications.Get)
	apps.Get("/:id/audit", cfg.Applications.Audit)
	apps.Post("/:id/remarks", cfg.Applications.AddRemark)
	apps.Post("/:id/transition", auth.RequireReviewer(), cfg.Applications.Transition)
}
