package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/githubpalak/gas-utility-portal/internal/api/http"
	"github.com/githubpalak/gas-utility-portal/internal/api/http/handlers"
	"github.com/githubpalak/gas-utility-portal/internal/auth"
	"github.com/githubpalak/gas-utility-portal/internal/config"
	"github.com/githubpalak/gas-utility-portal/internal/events"
	"github.com/githubpalak/gas-utility-portal/internal/observability"
	"github.com/githubpalak/gas-utility-portal/internal/persistence"
	"github.com/githubpalak/gas-utility-portal/internal/service"
	"github.com/githubpalak/gas-utility-portal/internal/storage"
	"github.com/githubpalak/gas-utility-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, pg, err := persistence.OpenStore(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var (
		denylist auth.Denylist
		sink     *events.RedisSink
	)
	if err := redis.Ping(ctx); err != nil {
		logger.Warn("redis unavailable; token revocation kept in process and events not forwarded", zap.Error(err))
		denylist = auth.NewMemoryDenylist()
	} else {
		denylist = auth.NewRedisDenylist(redis.Client)
		sink = events.NewRedisSink(redis.Publisher(), cfg.Notification.RedisChannel)
	}

	blobs, err := storage.NewLocalBlobStore(cfg.Storage.AttachmentDir, cfg.Storage.MaxUploadBytes)
	if err != nil {
		logger.Fatal("failed to init attachment storage", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())

	accounts := service.NewAccountService(service.AccountDependencies{
		IdentityRepo: store.Identities,
		Tokens:       tokens,
		Denylist:     denylist,
		BcryptCost:   cfg.Auth.BcryptCost,
		Logger:       logger,
	})
	requests := service.NewRequestService(service.RequestDependencies{
		RequestRepo:  store.Requests,
		IdentityRepo: store.Identities,
		CategoryRepo: store.Categories,
		HistoryRepo:  store.History,
		Dispatcher:   dispatcher,
		Policy:       service.PolicyFor(cfg.Workflow.StrictTransitions),
		Metrics:      metrics,
		Logger:       logger,
	})
	discussion := service.NewDiscussionService(service.DiscussionDependencies{
		Requests:       requests,
		CommentRepo:    store.Comments,
		AttachmentRepo: store.Attachments,
		Blobs:          blobs,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	categories := service.NewCategoryService(store.Categories, logger)
	dashboard := service.NewDashboardService(service.DashboardDependencies{
		RequestRepo:  store.Requests,
		IdentityRepo: store.Identities,
		CategoryRepo: store.Categories,
	})
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:   dispatcher,
		IdentityRepo: store.Identities,
		RequestRepo:  store.Requests,
		Logger:       logger,
		Config:       cfg.Notification,
	})

	worker.StartNotificationWorker(dispatcher, notifications, sink, logger)

	// leave headroom for multipart framing around the largest attachment
	app := httptransport.NewApp(cfg.App.Name, int(cfg.Storage.MaxUploadBytes)+1<<20, metrics)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Accounts:       handlers.NewAccountsHandler(accounts),
		Categories:     handlers.NewCategoriesHandler(categories),
		Requests:       handlers.NewRequestsHandler(requests, discussion),
		Dashboard:      handlers.NewDashboardHandler(dashboard, metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store.Identities, denylist),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.Bool("postgres", pg.Enabled()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
