package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/config"
	"github.com/t4zn/medicaps-sub001/internal/curriculum"
	"github.com/t4zn/medicaps-sub001/internal/database"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/handlers"
	"github.com/t4zn/medicaps-sub001/internal/logging"
	"github.com/t4zn/medicaps-sub001/internal/middleware"
	"github.com/t4zn/medicaps-sub001/internal/routes"
	"github.com/t4zn/medicaps-sub001/internal/services"
	"github.com/t4zn/medicaps-sub001/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("production")
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Curriculum tree
	registry, err := curriculum.LoadFromFile(cfg.CurriculumPath)
	if err != nil {
		slog.Error("failed to load curriculum", "path", cfg.CurriculumPath, "error", err)
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// ERROR+ records also go to system_logs
	dbLogHandler := logging.NewDBHandler(database.DB, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, dbLogHandler)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetention, cleanupDone)

	ctx := context.Background()
	store, err := newStorage(ctx, cfg)
	if err != nil {
		slog.Error("storage init failed", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}

	// Services
	filter := services.NewContentFilter()
	authService := services.NewAuthService(database.DB, cfg, services.LogVerificationSender{})
	profileService := services.NewProfileService(database.DB)
	fileService := services.NewFileService(database.DB, store, registry, filter, cfg.MaxUploadBytes)
	voteService := services.NewVoteService(database.DB)
	bookmarkService := services.NewBookmarkService(database.DB)
	reportService := services.NewReportService(database.DB, filter)
	roleRequestService := services.NewRoleRequestService(database.DB, filter)
	subjectRequestService := services.NewSubjectRequestService(database.DB, registry, filter)

	added, err := subjectRequestService.SyncRegistry(ctx)
	if err != nil {
		slog.Error("failed to sync subjects", "error", err)
		os.Exit(1)
	}
	slog.Info("curriculum loaded", "subjects", registry.Len(), "added_at_runtime", added)

	// Owner first, then the profiles table, then the static lists when it is unreachable.
	resolver := authz.NewResolver(
		authz.NewPolicy(cfg.OwnerEmails),
		profileService,
		authz.NewAllowList(cfg.AdminEmails, cfg.ModeratorEmails, cfg.UploaderEmails),
	)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app; multipart overhead on top of the largest allowed PDF
	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.MaxUploadBytes) + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, resolver, routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Health:     handlers.NewHealthHandler(database.Ping, registry),
		Curriculum: handlers.NewCurriculumHandler(registry),
		Profile:    handlers.NewProfileHandler(profileService),
		Files:      handlers.NewFileHandler(fileService),
		Votes:      handlers.NewVoteHandler(voteService, bookmarkService),
		Reports:    handlers.NewReportHandler(reportService),
		Requests:   handlers.NewRequestHandler(roleRequestService, subjectRequestService),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "storage", cfg.StorageBackend)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.FileStorage, error) {
	switch cfg.StorageBackend {
	case "github":
		return storage.NewGitHubStorage(cfg)
	case "s3":
		return storage.NewS3Storage(ctx, cfg)
	}
	return nil, errors.New("unknown storage backend " + cfg.StorageBackend)
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(),
			"request_id", c.Locals("requestid"), "error", err.Error())
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: message})
}
