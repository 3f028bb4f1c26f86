package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/helpdesk-labs/issue-tracker/internal/api/http"
	"github.com/helpdesk-labs/issue-tracker/internal/api/http/handlers"
	"github.com/helpdesk-labs/issue-tracker/internal/auth"
	"github.com/helpdesk-labs/issue-tracker/internal/config"
	"github.com/helpdesk-labs/issue-tracker/internal/email"
	"github.com/helpdesk-labs/issue-tracker/internal/events"
	"github.com/helpdesk-labs/issue-tracker/internal/observability"
	"github.com/helpdesk-labs/issue-tracker/internal/persistence"
	"github.com/helpdesk-labs/issue-tracker/internal/repository"
	"github.com/helpdesk-labs/issue-tracker/internal/repository/memory"
	"github.com/helpdesk-labs/issue-tracker/internal/service"
	"github.com/helpdesk-labs/issue-tracker/internal/session"
	"github.com/helpdesk-labs/issue-tracker/internal/worker"
)

type repositories struct {
	departments repository.DepartmentRepository
	users       repository.UserRepository
	issues      repository.IssueRepository
	licenses    repository.LicenseRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var repos repositories
	dependencies := map[string]handlers.Pinger{}
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = repositories{
			departments: repository.NewDepartmentRepository(pg.Pool),
			users:       repository.NewUserRepository(pg.Pool),
			issues:      repository.NewIssueRepository(pg.Pool),
			licenses:    repository.NewLicenseRepository(pg.Pool),
		}
		dependencies["postgres"] = pg
	} else {
		logger.Warn("POSTGRES_DSN not set, using in-memory store")
		store := memory.NewStore()
		repos = repositories{
			departments: store.Departments(),
			users:       store.Users(),
			issues:      store.Issues(),
			licenses:    store.Licenses(),
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	sessions := session.NewRedisStoreWithClient(redis.Client)
	dependencies["redis"] = redis

	var blobs service.BlobStore
	if cfg.Storage.Endpoint != "" {
		store, err := persistence.NewMinIO(ctx, cfg.Storage, logger)
		if err != nil {
			logger.Fatal("failed to connect object storage", zap.Error(err))
		}
		blobs = store
		dependencies["storage"] = store
	} else {
		logger.Warn("STORAGE_ENDPOINT not set, license files are kept in memory")
		blobs = persistence.NewMemoryBlobs()
	}

	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher()
	mailer := email.NewService(cfg.SMTP)
	if !mailer.IsConfigured() {
		logger.Warn("SMTP_HOST not set, issue notifications will only be logged")
	}
	service.NewNotificationService(dispatcher, mailer, logger, cfg.Notification).RegisterHandlers()
	notifications := worker.NewNotificationWorker(dispatcher, logger, cfg.Notification.Workers, cfg.Notification.QueueSize)
	notifications.Start(ctx)

	tokens := auth.NewTokenManager(cfg.Auth.AccessTokenSecret, cfg.Auth.RefreshTokenSecret, cfg.Auth.AccessTokenTTL(), cfg.Auth.RefreshTokenTTL())
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:       repos.users,
		DepartmentRepo: repos.departments,
		Sessions:       sessions,
		Tokens:         tokens,
		Hasher:         hasher,
		Logger:         logger,
	})
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:      repos.issues,
		DepartmentRepo: repos.departments,
		UserRepo:       repos.users,
		Publisher:      notifications,
		Metrics:        metrics,
		Logger:         logger,
	})
	directoryService := service.NewDirectoryService(service.DirectoryDependencies{
		DepartmentRepo: repos.departments,
		UserRepo:       repos.users,
		Hasher:         hasher,
	})
	bootstrapAdmin(ctx, cfg.Bootstrap, directoryService, logger)

	licenseService := service.NewLicenseService(service.LicenseDependencies{
		LicenseRepo:    repos.licenses,
		DepartmentRepo: repos.departments,
		Blobs:          blobs,
		Logger:         logger,
	})

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitBytes,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Auth:           handlers.NewAuthHandler(authService, cfg.Auth.SecureCookies),
		Issues:         handlers.NewIssuesHandler(issueService),
		Reports:        handlers.NewReportsHandler(service.NewReportService(repos.issues)),
		Directory:      handlers.NewDirectoryHandler(directoryService),
		Licenses:       handlers.NewLicensesHandler(licenseService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, repos.users),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	notifications.Stop()
}

func bootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig, directory *service.DirectoryService, logger *zap.Logger) {
	if !cfg.Enabled() {
		return
	}
	created, err := directory.EnsureAdmin(ctx, service.AccountInput{
		FullName: cfg.FullName,
		Email:    cfg.Email,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		logger.Fatal("failed to bootstrap admin", zap.String("username", cfg.Username), zap.Error(err))
	}
	if created {
		logger.Info("bootstrap admin created", zap.String("username", cfg.Username))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
