package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apihttp "github.com/civigate/eservices-portal/internal/api/http"
	"github.com/civigate/eservices-portal/internal/api/http/handlers"
	"github.com/civigate/eservices-portal/internal/auth"
	"github.com/civigate/eservices-portal/internal/config"
	"github.com/civigate/eservices-portal/internal/docstore"
	"github.com/civigate/eservices-portal/internal/events"
	"github.com/civigate/eservices-portal/internal/observability"
	"github.com/civigate/eservices-portal/internal/persistence"
	"github.com/civigate/eservices-portal/internal/repository"
	"github.com/civigate/eservices-portal/internal/service"
	"github.com/civigate/eservices-portal/internal/worker"
	"github.com/civigate/eservices-portal/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	var (
		userRepo    repository.UserRepository
		serviceRepo repository.ServiceRepository
		appRepo     repository.ApplicationRepository
		auditRepo   repository.AuditRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool)
		serviceRepo = repository.NewServiceRepository(pool)
		appRepo = repository.NewApplicationRepository(pool)
		auditRepo = repository.NewAuditRepository(pool)
	} else {
		userRepo = repository.NewMemoryUserRepository()
		serviceRepo = repository.NewMemoryServiceRepository()
		auditRepo = repository.NewMemoryAuditRepository()
		appRepo = repository.NewMemoryApplicationRepository(auditRepo)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(dispatcher, logger, cfg.Notify)

	engine := workflow.NewEngine(workflow.Dependencies{
		ApplicationRepo:       appRepo,
		UserRepo:              userRepo,
		Dispatcher:            dispatcher,
		Logger:                logger.Named("workflow"),
		Metrics:               metrics,
		AllowApplicantRemarks: cfg.Workflow.AllowApplicantRemarks,
	})

	catalogSvc := service.NewCatalogService(serviceRepo, rdb.Client, dispatcher, logger.Named("catalog"))
	appSvc := service.NewApplicationService(service.ApplicationDependencies{
		ApplicationRepo: appRepo,
		UserRepo:        userRepo,
		AuditRepo:       auditRepo,
		Catalog:         catalogSvc,
		Engine:          engine,
		Dispatcher:      dispatcher,
	})
	authSvc := service.NewAuthService(*cfg, userRepo)

	var docs docstore.Adapter
	if cfg.DocStore.UploadURL != "" {
		docs = docstore.NewHTTPAdapter(cfg.DocStore.UploadURL, cfg.DocStore.APIKey)
	} else {
		logger.Warn("DOCSTORE_UPLOAD_URL not provided; using in-memory document store")
		docs = docstore.NewMemoryAdapter()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
		ErrorHandler: apihttp.NewErrorHandler(logger, metrics),
	})

	apihttp.RegisterRoutes(app, apihttp.RouteConfig{
		Logger:         logger.Named("http"),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(authSvc.TokenManager(), userRepo),
		Health:         handlers.NewHealthHandler(pg, rdb),
		Documents:      handlers.NewDocumentsHandler(docs),
		Users:          handlers.NewUsersHandler(authSvc),
		Services:       handlers.NewServicesHandler(catalogSvc),
		Applications:   handlers.NewApplicationsHandler(appSvc),
	})

	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.App.Addr()),
			zap.String("env", cfg.App.Env),
			zap.String("version", cfg.App.Version))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
