package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Dosada05/club-events/brackets"
	"github.com/Dosada05/club-events/config"
	"github.com/Dosada05/club-events/db"
	"github.com/Dosada05/club-events/handlers"
	"github.com/Dosada05/club-events/listeners"
	"github.com/Dosada05/club-events/repositories"
	api "github.com/Dosada05/club-events/routes"
	"github.com/Dosada05/club-events/services"
	"github.com/Dosada05/club-events/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("status_source", cfg.StatusSource))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	if err := db.EnsureSchema(appCtx, dbConn); err != nil {
		logger.Error("failed to apply schema", slog.Any("error", err))
		os.Exit(1)
	}

	// Архив отчетов о починке сетки (Cloudflare R2), опционально
	var archiver services.ReportArchiver
	r2Config := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	if r2Config.Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(appCtx, r2Config)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewReportArchiver(uploader, cfg.ReportPrefix)
		logger.Info("Cloudflare R2 report archive enabled", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Info("Cloudflare R2 not configured, repair reports will not be archived")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	clubRepo := repositories.NewPostgresClubRepository(dbConn)
	trophyRepo := repositories.NewPostgresTrophyRepository(dbConn)
	badgeRepo := repositories.NewPostgresBadgeRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	var notifier services.Notifier
	if cfg.NotifyWebhookURL != "" {
		notifier = services.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyTimeout, logger)
	} else {
		notifier = services.NewLogNotifier(logger)
	}

	badgeService := services.NewBadgeService(badgeRepo, trophyRepo, logger)
	rewarder := services.NewRewardOrchestrator(trophyRepo, badgeService, clubRepo, notifier, wsHub, cfg.RewardConcurrency, logger)
	detector := services.NewCompletionDetector(eventRepo, rewarder, logger)
	linker := services.NewBracketLinker(matchRepo, logger)
	repairer := services.NewBracketRepairer(matchRepo, archiver, wsHub, logger)
	reconciler := services.NewReconciler(eventRepo, detector, cfg.ReconcileLookback, cfg.RewardConcurrency, logger)
	logger.Info("Services initialized")

	// Планировщик сверки завершенных событий
	scheduler, err := reconciler.StartScheduler(cfg.ReconcileInterval)
	if err != nil {
		logger.Error("failed to start reconciliation scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Reconciliation scheduler started", slog.Duration("interval", cfg.ReconcileInterval))

	// Подписка на смену статусов событий
	var background sync.WaitGroup
	runSource := func(name string, run func(context.Context) error) {
		background.Add(1)
		go func() {
			defer background.Done()
			logger.Info("status source started", slog.String("source", name))
			if err := run(appCtx); err != nil {
				logger.Error("status source stopped", slog.String("source", name), slog.Any("error", err))
			}
		}()
	}
	switch cfg.StatusSource {
	case config.StatusSourcePostgres:
		listener := listeners.NewPostgresListener(cfg.DatabaseURL, db.StatusChannel, eventRepo, detector, logger)
		runSource(config.StatusSourcePostgres, listener.Run)
	case config.StatusSourceAMQP:
		consumer := listeners.NewAMQPConsumer(cfg.AMQPURL, cfg.AMQPQueue, detector, logger)
		runSource(config.StatusSourceAMQP, consumer.Run)
	default:
		logger.Info("no status source, relying on HTTP ingress and reconciliation")
	}

	// Инициализация обработчиков HTTP
	router := chi.NewRouter()
	api.SetupRoutes(router,
		api.Options{
			JWTSecret:      cfg.JWTSecretKey,
			APIKeyHash:     cfg.APIKeyHash,
			AllowedOrigins: cfg.AllowedOrigins,
		},
		api.Handlers{
			Brackets:  handlers.NewBracketHandler(linker, repairer),
			Events:    handlers.NewEventHandler(detector),
			Clubs:     handlers.NewClubHandler(clubRepo, trophyRepo, badgeRepo),
			WebSocket: handlers.NewWebSocketHandler(wsHub),
		})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			exitCode = 1
		} else {
			logger.Info("server shutdown complete")
		}
	}

	cancelApp()
	if err := scheduler.Shutdown(); err != nil {
		logger.Error("scheduler shutdown failed", slog.Any("error", err))
	}
	background.Wait()
	logger.Info("application exited")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
