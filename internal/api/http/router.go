package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-labs/issue-tracker/internal/api/http/handlers"
	"github.com/helpdesk-labs/issue-tracker/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Issues         *handlers.IssuesHandler
	Reports        *handlers.ReportsHandler
	Directory      *handlers.DirectoryHandler
	Licenses       *handlers.LicensesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// guarded prefixes a route handler with an auth chain. Guards are attached
// per route so unmatched paths fall through to NotFound.
type guarded []fiber.Handler

func (g guarded) then(h fiber.Handler) []fiber.Handler {
	return append(append(make([]fiber.Handler, 0, len(g)+1), g...), h)
}

// RegisterRoutes wires HTTP routes. Anything unmatched answers 404.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")
	api.Post("/login", cfg.Auth.Login)
	api.Post("/refresh-token", cfg.Auth.Refresh)

	user := guarded{cfg.AuthMiddleware.Handle, auth.Require(auth.CapabilityAuthenticated)}
	api.Post("/logout", user.then(cfg.Auth.Logout)...)
	api.Get("/current-user", user.then(cfg.Auth.CurrentUser)...)
	api.Post("/change-password", user.then(cfg.Auth.ChangePassword)...)
	api.Patch("/update-account", user.then(cfg.Auth.UpdateAccount)...)
	api.Get("/admin-department", user.then(cfg.Auth.AdminDepartment)...)

	api.Post("/issue-form", user.then(cfg.Issues.CreateIssue)...)
	api.Get("/issues", user.then(cfg.Issues.ListDepartmentIssues)...)
	api.Get("/issues/:id", user.then(cfg.Issues.GetIssue)...)
	api.Get("/user-issues", user.then(cfg.Issues.ListReporterIssues)...)
	api.Post("/complete-issue", user.then(cfg.Issues.Complete)...)
	api.Post("/acknowledge-response", user.then(cfg.Issues.Acknowledge)...)
	api.Post("/reopen-issue", user.then(cfg.Issues.Reopen)...)

	api.Get("/departments", user.then(cfg.Directory.ListDepartments)...)
	api.Get("/departments/:name/type", user.then(cfg.Directory.DepartmentType)...)

	admin := guarded{cfg.AuthMiddleware.Handle, auth.Require(auth.CapabilityAdmin)}
	api.Post("/users/register", admin.then(cfg.Auth.Register)...)
	api.Get("/fetch-report", admin.then(cfg.Reports.FetchReport)...)
	api.Get("/fetch-report/export", admin.then(cfg.Reports.Export)...)
	api.Get("/metrics", admin.then(cfg.Health.Metrics)...)

	api.Post("/departments", admin.then(cfg.Directory.CreateDepartment)...)
	api.Patch("/departments/:departmentId", admin.then(cfg.Directory.UpdateDepartmentType)...)
	api.Delete("/departments/:departmentId", admin.then(cfg.Directory.DeleteDepartment)...)

	api.Get("/admin/users", admin.then(cfg.Directory.ListUsers)...)
	api.Post("/admin/users", admin.then(cfg.Directory.CreateUser)...)
	api.Put("/admin/users/:userId", admin.then(cfg.Directory.UpdateUser)...)
	api.Delete("/admin/users/:userId", admin.then(cfg.Directory.DeleteUser)...)

	api.Get("/licenses", admin.then(cfg.Licenses.List)...)
	api.Post("/licenses", admin.then(cfg.Licenses.Upload)...)
	api.Get("/licenses/:id", admin.then(cfg.Licenses.Get)...)
	api.Get("/licenses/:id/file", admin.then(cfg.Licenses.Download)...)
	api.Put("/licenses/:id", admin.then(cfg.Licenses.Update)...)
	api.Delete("/licenses/:id", admin.then(cfg.Licenses.Delete)...)

	app.Use(NotFound)
}
