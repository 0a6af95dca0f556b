package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/config"
	"github.com/t4zn/medicaps-sub001/internal/handlers"
	"github.com/t4zn/medicaps-sub001/internal/middleware"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Health     *handlers.HealthHandler
	Curriculum *handlers.CurriculumHandler
	Profile    *handlers.ProfileHandler
	Files      *handlers.FileHandler
	Votes      *handlers.VoteHandler
	Reports    *handlers.ReportHandler
	Requests   *handlers.RequestHandler
}

func Setup(app *fiber.App, cfg *config.Config, resolver *authz.Resolver, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Public
	api.Get("/health", h.Health.Check)
	api.Get("/curriculum", h.Curriculum.Tree)
	api.Get("/files", h.Files.List)
	api.Get("/files/:id", h.Files.Get)
	api.Post("/files/:id/download", h.Files.Download)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/verify", h.Auth.VerifyEmail)

	// Everything below derives the caller from the bearer token.
	protected := []fiber.Handler{middleware.JWTProtected(cfg), middleware.Identify(resolver)}
	with := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, protected...), handler)
	}

	api.Post("/auth/logout", with(h.Auth.Logout)...)
	api.Post("/auth/verify/resend", with(h.Auth.ResendVerification)...)

	api.Get("/me", with(h.Profile.Me)...)
	api.Put("/me", with(h.Profile.UpdateMe)...)
	api.Get("/me/permissions", with(h.Profile.Permissions)...)

	api.Post("/files", with(h.Files.Upload)...)
	api.Get("/files/:id/votes", with(h.Votes.Counts)...)
	api.Post("/votes", with(h.Votes.Vote)...)
	api.Post("/bookmarks", with(h.Votes.ToggleBookmark)...)
	api.Get("/bookmarks", with(h.Votes.ListBookmarks)...)
	api.Post("/reports", with(h.Reports.Create)...)

	api.Post("/role-requests", with(h.Requests.CreateRoleRequest)...)
	api.Get("/role-requests/mine", with(h.Requests.MyRoleRequests)...)
	api.Post("/subject-requests", with(h.Requests.CreateSubjectRequest)...)
	api.Get("/subject-requests/mine", with(h.Requests.MySubjectRequests)...)

	// Admin panel
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.Identify(resolver),
		middleware.RequirePermission(authz.PermAccessAdminPanel))

	admin.Get("/files", h.Files.ListForReview)
	admin.Put("/files/:id/approve", h.Files.Approve)
	admin.Delete("/files/:id", middleware.RequirePermission(authz.PermDeleteFiles, authz.PermAccessAdminPanel), h.Files.Reject)

	admin.Get("/reports", h.Reports.List)
	admin.Put("/reports/:id", middleware.RequirePermission(authz.PermModerateContent), h.Reports.Resolve)

	users := middleware.RequirePermission(authz.PermManageUsers)
	admin.Get("/role-requests", users, h.Requests.ListRoleRequests)
	admin.Put("/role-requests/:id", users, h.Requests.ReviewRoleRequest)
	admin.Get("/users", users, h.Profile.ListUsers)
	admin.Put("/users/:id/role", users, h.Profile.SetRole)

	subjects := middleware.RequirePermission(authz.PermManageSubjectRequests)
	admin.Get("/subject-requests", subjects, h.Requests.ListSubjectRequests)
	admin.Put("/subject-requests/:id", subjects, h.Requests.ReviewSubjectRequest)
}
