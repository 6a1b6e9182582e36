package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/bankdesk/servicedesk/internal/api/http"
	"github.com/bankdesk/servicedesk/internal/api/http/handlers"
	"github.com/bankdesk/servicedesk/internal/auth"
	"github.com/bankdesk/servicedesk/internal/config"
	"github.com/bankdesk/servicedesk/internal/events"
	"github.com/bankdesk/servicedesk/internal/observability"
	"github.com/bankdesk/servicedesk/internal/persistence"
	"github.com/bankdesk/servicedesk/internal/repository"
	"github.com/bankdesk/servicedesk/internal/service"
	"github.com/bankdesk/servicedesk/internal/worker"
)

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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	pool := pg.PoolHandle()
	store := repository.NewStore(pool)
	uow := repository.NewTxManager(pool)
	dispatcher := events.NewInMemoryDispatcher()

	directory := service.NewDirectoryService(store.Branches, redis.Client, cfg.Workflow.BranchCacheTTL(), logger)
	authService := service.NewAuthService(cfg.Auth, store.Principals)
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		Store:      store,
		UnitOfWork: uow,
		Directory:  directory,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Store:           store,
		UnitOfWork:      uow,
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		DefaultCapacity: cfg.Workflow.DefaultWorkloadCapacity,
	})
	categorizationService := service.NewCategorizationService(service.CategorizationDependencies{
		Store:      store,
		UnitOfWork: uow,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(ctx, notificationService, logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Principals)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouterDependencies{
		Auth:           authMiddleware,
		AuthHandler:    handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(workflowService, assignmentService),
		Categorization: handlers.NewCategorizationHandler(categorizationService),
		Health:         handlers.NewHealthHandler(pg, redis),
		Registry:       registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
