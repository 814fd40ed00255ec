package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/githubpalak/gas-utility-portal/internal/api/http/handlers"
	"github.com/githubpalak/gas-utility-portal/internal/auth"
	"github.com/githubpalak/gas-utility-portal/internal/authz"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Categories     *handlers.CategoriesHandler
	Requests       *handlers.RequestsHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Public routes are registered before the
// authenticated group so the auth middleware never runs for them.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")
	api.Post("/accounts/register", cfg.Accounts.Register)
	api.Post("/accounts/login", cfg.Accounts.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	accounts := protected.Group("/accounts")
	accounts.Post("/logout", cfg.Accounts.Logout)
	accounts.Get("/me", cfg.Accounts.Me)
	accounts.Post("/password", cfg.Accounts.ChangePassword)
	accounts.Get("/users", cfg.Accounts.ListUsers)
	accounts.Get("/users/:id", cfg.Accounts.GetUser)
	accounts.Patch("/users/:id", cfg.Accounts.UpdateUser)
	accounts.Put("/users/:id/role", cfg.Accounts.SetRole)
	accounts.Get("/staff", cfg.Accounts.ListStaff)
	accounts.Post("/staff", cfg.Accounts.CreateStaff)

	categories := protected.Group("/service-requests/categories")
	categories.Get("/", cfg.Categories.List)
	categories.Post("/", cfg.Categories.Create)
	categories.Get("/:id", cfg.Categories.Get)
	categories.Patch("/:id", cfg.Categories.Update)
	categories.Delete("/:id", cfg.Categories.Delete)

	requests := protected.Group("/service-requests/requests")
	requests.Get("/", cfg.Requests.List)
	requests.Post("/", cfg.Requests.Create)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Patch("/:id", cfg.Requests.Update)
	requests.Post("/:id/change-status", auth.RequireStaff(), cfg.Requests.ChangeStatus)
	requests.Post("/:id/assign", auth.RequireStaff(), cfg.Requests.Assign)
	requests.Get("/:id/history", cfg.Requests.History)
	requests.Get("/:id/comments", cfg.Requests.ListComments)
	requests.Post("/:id/comments", cfg.Requests.AddComment)
	requests.Get("/:id/attachments", cfg.Requests.ListAttachments)
	requests.Post("/:id/attachments", cfg.Requests.AddAttachment)
	requests.Get("/:id/attachments/:attachmentID", cfg.Requests.DownloadAttachment)

	dashboard := protected.Group("/dashboard")
	dashboard.Get("/stats", cfg.Dashboard.Stats)
	dashboard.Get("/category-breakdown", cfg.Dashboard.CategoryBreakdown)
	dashboard.Get("/status-breakdown", cfg.Dashboard.StatusBreakdown)
	dashboard.Get("/priority-breakdown", cfg.Dashboard.PriorityBreakdown)
	dashboard.Get("/agent-performance", cfg.Dashboard.AgentPerformance)
	dashboard.Get("/http-metrics", auth.RequireCapability(authz.ViewAgentPerformance), cfg.Dashboard.HTTPMetrics)
}
