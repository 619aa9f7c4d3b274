package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"log/slog"

	"github.com/central-university-dev/go-forum-notify/internal/common/metrics"
	"github.com/central-university-dev/go-forum-notify/internal/common/middleware"
	"github.com/central-university-dev/go-forum-notify/internal/config"
	"github.com/central-university-dev/go-forum-notify/internal/database"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/cache"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/clients"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/handler"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/notify"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/repository"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/service"
	"github.com/central-university-dev/go-forum-notify/internal/scheduler"
	"github.com/central-university-dev/go-forum-notify/pkg"
	"github.com/central-university-dev/go-forum-notify/pkg/txs"
)

func gracefulShutdown(
	ctx context.Context,
	server *http.Server,
	metricsServer *metrics.MetricsServer,
	sch *scheduler.Scheduler,
	stopCh <-chan struct{},
	appLogger *slog.Logger,
) {
	<-stopCh
	appLogger.Info("Получен сигнал завершения")

	sch.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Ошибка при остановке HTTP сервера",
			"error", err,
		)
	}

	if err := metricsServer.Stop(shutdownCtx); err != nil {
		appLogger.Error("Ошибка при остановке сервера метрик",
			"error", err,
		)
	}

	appLogger.Info("Сервер успешно остановлен")
}

func startHTTPServer(_ context.Context, server *http.Server, port int, stopCh chan<- struct{}, appLogger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLogger.Info("Получен системный сигнал",
			"signal", sig.String(),
		)
		close(stopCh)
	}()

	go func() {
		appLogger.Info("Запуск HTTP сервера нотификатора",
			"port", port,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Ошибка при запуске HTTP сервера",
				"error", err,
			)
			close(stopCh)
		}
	}()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка запуска сервиса: %v\n", err)
		os.Exit(1)
	}
}

//nolint:funlen // Длина функции обусловлена необходимостью последовательной инициализации всех компонентов.
func run() error {
	appLogger := pkg.NewLogger(os.Stdout)

	cfg := config.LoadConfig()

	ctx := context.Background()

	if err := database.RunMigrations(cfg, appLogger); err != nil {
		appLogger.Error("Ошибка при применении миграций",
			"error", err,
		)

		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	db, err := database.NewPostgresDB(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Ошибка при подключении к базе данных",
			"error", err,
		)

		return fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	defer db.Close()

	txManager := txs.NewTxManager(db.Pool, appLogger)

	repoFactory := repository.NewFactory(db, cfg, appLogger)

	postRepo, err := repoFactory.CreatePostRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория постов",
			"error", err,
		)

		return err
	}

	readRepo, err := repoFactory.CreateReadRecordRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория отметок о прочтении",
			"error", err,
		)

		return err
	}

	subscriptionRepo, err := repoFactory.CreateSubscriptionRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория подписок",
			"error", err,
		)

		return err
	}

	digestRepo, err := repoFactory.CreateDigestQueueRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория очереди дайджестов",
			"error", err,
		)

		return err
	}

	coreClient := clients.NewCoreClient(cfg, appLogger)

	notifierFactory := notify.NewNotifierFactory(cfg, appLogger)

	mailNotifier, err := notifierFactory.CreateNotifier()
	if err != nil {
		appLogger.Error("Ошибка при создании почтового нотификатора",
			"error", err,
		)

		return err
	}

	var unreadCache cache.UnreadCache

	if cfg.UnreadCacheEnabled {
		redisCache, err := cache.NewRedisUnreadCache(
			cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, cfg.RedisCacheTTL, appLogger)
		if err != nil {
			appLogger.Error("Ошибка при подключении к Redis для кеша непрочитанного",
				"error", err,
			)

			appLogger.Warn("Продолжаем без кеша непрочитанного")
		} else {
			unreadCache = redisCache
		}
	} else {
		appLogger.Info("Кеш непрочитанного отключён в конфигурации")
	}

	trackingService := service.NewTrackingService(subscriptionRepo, readRepo, cfg)
	readService := service.NewReadService(postRepo, readRepo, txManager, unreadCache, cfg, appLogger)
	unreadService := service.NewUnreadService(postRepo, readRepo, trackingService, coreClient, unreadCache, cfg, appLogger)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, postRepo, coreClient, cfg, appLogger)
	mailService := service.NewMailService(
		postRepo,
		digestRepo,
		subscriptionService,
		readService,
		coreClient,
		mailNotifier,
		cfg,
		appLogger,
	)

	notifierHandler := handler.NewNotifierHandler(
		subscriptionService,
		trackingService,
		readService,
		unreadService,
		postRepo,
		coreClient,
		appLogger,
	)

	rateLimiter := middleware.NewRateLimiterMiddleware(
		ctx,
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		appLogger,
	)

	metricsMiddleware := middleware.NewMetricsMiddleware()

	serverHandler := rateLimiter.Middleware(metricsMiddleware.Middleware(notifierHandler.Routes()))

	sch := scheduler.NewScheduler(mailService, readService, cfg.MailCronInterval, cfg.PruneInterval, appLogger)
	sch.Start()

	metricsServer := metrics.NewMetricsServer(cfg.MetricsPort, appLogger)

	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			appLogger.Error("Ошибка при запуске сервера метрик",
				"error", err,
			)
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           serverHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCh := make(chan struct{})

	startHTTPServer(ctx, httpServer, cfg.ServerPort, stopCh, appLogger)

	gracefulShutdown(ctx, httpServer, metricsServer, sch, stopCh, appLogger)

	return nil
}
