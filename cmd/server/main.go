package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/taskhive/backend/api/handler"
	"github.com/taskhive/backend/internal/config"
	"github.com/taskhive/backend/internal/hub"
	"github.com/taskhive/backend/internal/infrastructure/journal"
	"github.com/taskhive/backend/internal/infrastructure/monitor"
	pgInfra "github.com/taskhive/backend/internal/infrastructure/postgres"
	redisInfra "github.com/taskhive/backend/internal/infrastructure/redis"
	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/router"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/internal/services/lifecycle"
	"github.com/taskhive/backend/pkg/httpcontext"
	"github.com/taskhive/backend/pkg/logger"
	"github.com/taskhive/backend/repository/postgres"
	redisRepo "github.com/taskhive/backend/repository/redis"
	authUC "github.com/taskhive/backend/usecase/auth"
	directoryUC "github.com/taskhive/backend/usecase/directory"
	membershipUC "github.com/taskhive/backend/usecase/membership"
	"github.com/taskhive/backend/usecase/permission"
	taskUC "github.com/taskhive/backend/usecase/task"
	workflowUC "github.com/taskhive/backend/usecase/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		AppName:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	journalStore, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		zapLogger.Fatal("failed to open event journal", zap.Error(err))
	}
	manager.Register("journal", func(ctx context.Context) error {
		return journalStore.Close()
	})

	eventHub := hub.New(zapLogger, hub.WithSubscriberBuffer(cfg.Hub.SubscriberBuffer))
	manager.Register("hub", func(ctx context.Context) error {
		eventHub.Close()
		return nil
	})

	mon := monitor.New(pool, redisClient, journalStore, eventHub, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	pruner := services.NewJournalPruner(journalStore, zapLogger, services.PrunerConfig{
		Interval:  cfg.Journal.PruneInterval,
		Retention: time.Duration(cfg.Journal.RetentionHours) * time.Hour,
	})
	pruner.Start()
	manager.Register("journal_pruner", func(ctx context.Context) error {
		pruner.Stop(ctx)
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	workflowRepo := postgres.NewWorkflowRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	inviteRepo := postgres.NewInviteRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.Session.TTL)

	recorder := services.NewEventRecorder(eventHub, journalStore, zapLogger)

	evaluator := permission.NewEvaluator()
	authUseCase := authUC.New(userRepo, sessionRepo, cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	directoryUseCase := directoryUC.New(userRepo, zapLogger)
	membershipUseCase := membershipUC.New(workflowRepo, inviteRepo, userRepo, evaluator, zapLogger)
	taskUseCase := taskUC.New(workflowRepo, taskRepo, userRepo, evaluator, recorder, zapLogger)
	workflowUseCase := workflowUC.New(workflowRepo, inviteRepo, taskRepo, userRepo, membershipUseCase, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:      apiHandler.NewAuthHandler(authUseCase, cfg.Session.TTL, ctxAdapter, zapLogger),
		Directory: apiHandler.NewDirectoryHandler(directoryUseCase, ctxAdapter, zapLogger),
		Workflow:  apiHandler.NewWorkflowHandler(workflowUseCase, taskUseCase, ctxAdapter, zapLogger),
		Member:    apiHandler.NewMemberHandler(membershipUseCase, ctxAdapter, zapLogger),
		Task:      apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Events:    apiHandler.NewEventsHandler(eventHub, workflowUseCase, cfg.Hub.HeartbeatInterval, ctxAdapter, zapLogger),
		Health:    apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, authUseCase, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:     r.Handler,
		ReadTimeout: cfg.HTTP.ReadTimeout,
		// WriteTimeout stays unset: event streams are long-lived.
		IdleTimeout: cfg.HTTP.IdleTimeout,
		Name:        cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
