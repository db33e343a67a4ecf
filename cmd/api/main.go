package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-automation/internal/api/http"
	"github.com/spec-kit/ticket-automation/internal/api/http/handlers"
	"github.com/spec-kit/ticket-automation/internal/auth"
	"github.com/spec-kit/ticket-automation/internal/batch"
	"github.com/spec-kit/ticket-automation/internal/config"
	"github.com/spec-kit/ticket-automation/internal/events"
	"github.com/spec-kit/ticket-automation/internal/featureflag"
	"github.com/spec-kit/ticket-automation/internal/notification"
	"github.com/spec-kit/ticket-automation/internal/observability"
	"github.com/spec-kit/ticket-automation/internal/persistence"
	"github.com/spec-kit/ticket-automation/internal/repository"
	"github.com/spec-kit/ticket-automation/internal/scheduler"
	"github.com/spec-kit/ticket-automation/internal/service"
	"github.com/spec-kit/ticket-automation/internal/tasks"
	"github.com/spec-kit/ticket-automation/internal/worker"
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
	if pool == nil {
		logger.Fatal("POSTGRES_DSN is required; ticket automation reads and writes the ticket store")
	}
	ticketRepo := repository.NewTicketRepository(pool)
	visibilityRepo := repository.NewVisibilityRepository(pool)

	metrics := observability.NewMetrics()
	bus := events.NewInMemoryDispatcher(logger)

	var (
		flags     featureflag.Provider = featureflag.StaticProvider{}
		notifier  notification.Dispatcher
		redisPing handlers.Pinger
	)
	if redis != nil {
		flags = featureflag.NewRedisProvider(redis.Client, cfg.Automation.FlagPrefix, logger)
		notifier = notification.NewRedisDispatcher(redis.Client, cfg.Notification.Channel, logger)
		redisPing = redis
	} else {
		notifier = notification.NewLogDispatcher(logger)
	}

	notificationService := service.NewNotificationService(bus, service.NotificationStores{
		Tickets:    ticketRepo,
		Visibility: visibilityRepo,
		Comments:   repository.NewTicketCommentRepository(pool),
		Changes:    repository.NewTicketChangeRepository(pool),
	}, notifier, logger)
	worker.StartNotificationWorker(notificationService)
	if redis != nil {
		subscriber := worker.NewTicketEventSubscriber(redis.Client, cfg.Notification.TicketEventsChannel, bus, logger)
		go func() {
			if err := subscriber.Run(ctx); err != nil {
				logger.Error("ticket event subscriber stopped", zap.Error(err))
			}
		}()
	}

	reporter := batch.Reporters{metrics, batch.LogReporter(logger)}
	sched := scheduler.New(redis.Locker(), cfg.Automation.LeaseTTL(), metrics, logger)
	for _, task := range []tasks.Task{
		tasks.NewAutoClose(ticketRepo, flags, bus, cfg.Automation.AutoClose, reporter, logger),
		tasks.NewAutoReopen(ticketRepo, bus, cfg.Automation.AutoReopen, reporter, logger),
	} {
		if err := sched.Register(task); err != nil {
			logger.Fatal("failed to register task", zap.Error(err))
		}
	}
	if cfg.Automation.Enabled {
		sched.Start()
	} else {
		logger.Warn("automation disabled; tasks run only on manual trigger")
	}

	authService := service.NewAuthService(cfg.Auth, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisPing, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tasks:          handlers.NewTasksHandler(sched),
		Audience:       handlers.NewAudienceHandler(notificationService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := sched.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("scheduler did not stop in time", zap.Error(err))
	}
	_ = app.ShutdownWithContext(stopCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
