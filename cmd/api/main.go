package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-tracker/internal/api/http"
	"github.com/spec-kit/helpdesk-tracker/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-tracker/internal/auth"
	"github.com/spec-kit/helpdesk-tracker/internal/config"
	"github.com/spec-kit/helpdesk-tracker/internal/events"
	"github.com/spec-kit/helpdesk-tracker/internal/observability"
	"github.com/spec-kit/helpdesk-tracker/internal/persistence"
	"github.com/spec-kit/helpdesk-tracker/internal/repository"
	"github.com/spec-kit/helpdesk-tracker/internal/service"
	"github.com/spec-kit/helpdesk-tracker/internal/worker"
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
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	sessionStore := auth.NewLegacySessionStore(redis.Client, cfg.Auth.LegacySessionTTL())

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:     userRepo,
		SessionStore: sessionStore,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		UserRepo:       userRepo,
		DepartmentRepo: departmentRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		CommentRepo:    commentRepo,
		DepartmentRepo: departmentRepo,
		HistoryRepo:    historyRepo,
		Assigner:       assignmentService,
		Dispatcher:     dispatcher,
		SLA:            cfg.SLA,
	})
	departmentService := service.NewDepartmentService(departmentRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, sessionStore)

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, departmentService),
		Staff:          handlers.NewStaffTicketsHandler(ticketService),
		Admin:          handlers.NewAdminTicketsHandler(ticketService, departmentService),
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
