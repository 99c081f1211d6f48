package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/jiro-tracker/internal/api/http"
	"github.com/spec-kit/jiro-tracker/internal/api/http/handlers"
	"github.com/spec-kit/jiro-tracker/internal/auth"
	"github.com/spec-kit/jiro-tracker/internal/authz"
	"github.com/spec-kit/jiro-tracker/internal/config"
	"github.com/spec-kit/jiro-tracker/internal/events"
	"github.com/spec-kit/jiro-tracker/internal/observability"
	"github.com/spec-kit/jiro-tracker/internal/persistence"
	"github.com/spec-kit/jiro-tracker/internal/repository"
	"github.com/spec-kit/jiro-tracker/internal/service"
	"github.com/spec-kit/jiro-tracker/internal/worker"
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

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	activityRepo := repository.NewActivityLogRepository(pool)
	unitOfWork := repository.NewUnitOfWork(pool)

	dispatcher := events.NewInMemoryDispatcher()
	gate := authz.NewRoleGate()

	authService := service.NewAuthService(cfg.Auth, userRepo)
	projectService := service.NewProjectService(projectRepo, gate, dispatcher)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		ProjectRepo:  projectRepo,
		CommentRepo:  commentRepo,
		ActivityRepo: activityRepo,
		Gate:         gate,
		Dispatcher:   dispatcher,
	})
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo: ticketRepo,
		UnitOfWork: unitOfWork,
		Gate:       gate,
		Directory:  service.NewUserDirectory(userRepo),
		Dispatcher: dispatcher,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	metrics := observability.NewMetrics()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Projects:       handlers.NewProjectsHandler(projectService),
		Tickets:        handlers.NewTicketsHandler(ticketService, workflowService),
		AuthMiddleware: authMiddleware,
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
