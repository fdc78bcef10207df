package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/epcr-service/internal/api/http/handlers"
	"github.com/spec-kit/epcr-service/internal/auth"
	"github.com/spec-kit/epcr-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Events         *handlers.EventsHandler
	Patients       *handlers.PatientsHandler
	Audit          *handlers.AuditHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	// SignInRatePerMinute caps sign-in calls per client IP. Zero disables the cap.
	SignInRatePerMinute int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	if cfg.SignInRatePerMinute > 0 {
		authGroup.Use("/sign-in", signInLimiter(cfg.SignInRatePerMinute))
	}
	authGroup.Post("/sign-in/request", cfg.Auth.RequestCode)
	authGroup.Post("/sign-in/verify", cfg.Auth.VerifyCode)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Get("/me", cfg.Auth.Me)

	users := protected.Group("/users", auth.RequireAdmin())
	users.Post("/", cfg.Users.CreateUser)
	users.Get("/", cfg.Users.ListUsers)
	users.Patch("/:id/role", cfg.Users.UpdateRole)

	protected.Get("/venues", cfg.Users.ListVenues)
	protected.Post("/venues", auth.RequireAdmin(), cfg.Users.CreateVenue)

	events := protected.Group("/events")
	events.Post("/", auth.RequireAdmin(), cfg.Events.Create)
	events.Get("/", cfg.Events.List)
	events.Get("/:eventId", cfg.Events.Get)
	events.Put("/:eventId", auth.RequireAdmin(), cfg.Events.Update)
	events.Delete("/:eventId", auth.RequireAdmin(), cfg.Events.Delete)

	staff := events.Group("/:eventId/staff", auth.RequireAdmin())
	staff.Post("/", cfg.Events.AssignStaff)
	staff.Get("/", cfg.Events.ListStaff)
	staff.Delete("/:userId", cfg.Events.UnassignStaff)

	patients := events.Group("/:eventId/patients")
	patients.Post("/", cfg.Patients.Create)
	patients.Get("/", cfg.Patients.List)
	patients.Get("/:patientId", cfg.Patients.Get)
	patients.Patch("/:patientId", cfg.Patients.UpdateTriage)
	patients.Delete("/:patientId", cfg.Patients.Delete)
	patients.Get("/:patientId/assessment", cfg.Patients.GetAssessment)
	patients.Patch("/:patientId/assessment", cfg.Patients.UpdateAssessment)

	protected.Get("/audit-logs", auth.RequireAdmin(), cfg.Audit.List)
}
