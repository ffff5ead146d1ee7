package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/content-factory/topic-monitor/internal/api"
	"github.com/content-factory/topic-monitor/internal/config"
	"github.com/content-factory/topic-monitor/internal/insights"
	"github.com/content-factory/topic-monitor/internal/lock"
	"github.com/content-factory/topic-monitor/internal/monitoring"
	"github.com/content-factory/topic-monitor/internal/notifications"
	"github.com/content-factory/topic-monitor/internal/scheduler"
	"github.com/content-factory/topic-monitor/internal/sources"
	"github.com/content-factory/topic-monitor/internal/storage"
	"github.com/content-factory/topic-monitor/internal/storage/postgres"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting topic monitor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeStore()

	if err := seedWebhook(ctx, cfg, store); err != nil {
		logrus.Fatalf("Failed to seed settings: %v", err)
	}

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize run lock: %v", err)
	}
	defer closeLocker()

	router := sources.NewRouterFromConfig(cfg)
	logrus.WithField("sources", router.Enabled()).Info("Search sources configured")

	var requester insights.Requester
	if completer := insights.NewCompleter(cfg); completer != nil {
		requester = insights.NewAnalyzer(completer)
		logrus.WithField("model", completer.ModelName()).Info("Insight generation enabled")
	} else {
		logrus.Warn("No LLM API key configured, reports will be generated without insights")
	}

	dispatcher := notifications.NewFeishuClient(cfg.SearchPeriodDays)

	var opts []monitoring.Option
	if cfg.NotificationEmail != "" {
		opts = append(opts, monitoring.WithRunNotifier(notifications.NewEmailNotifier(cfg)))
	}
	if cfg.StorageAccount != "" {
		blobs, err := storage.NewAzureBlobStore(ctx, cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize report archive: %v", err)
		}
		opts = append(opts, monitoring.WithArchive(storage.NewReportArchive(blobs)))
	}

	monitoringService := monitoring.NewService(cfg, store, router, requester, dispatcher, locker, opts...)

	schedulerService := scheduler.NewService(cfg, monitoringService, store)
	if err := schedulerService.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     api.NewServer(store, monitoringService, dispatcher, schedulerService).Router(),
		ReadTimeout: 15 * time.Second,
		// POST /api/runs answers only when the run has finished
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// openStore returns the configured store and a function releasing it
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	if cfg.StorageDriver == "memory" {
		logrus.Warn("Using in-memory storage, data is lost on restart")
		return storage.NewMemoryStore(), func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewStore(db), func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}, nil
}

// seedWebhook stores FEISHU_WEBHOOK_URL unless a webhook was already configured
func seedWebhook(ctx context.Context, cfg *config.Config, store storage.SettingsStore) error {
	if cfg.FeishuWebhookURL == "" {
		return nil
	}
	_, err := store.GetSetting(ctx, storage.SettingFeishuWebhook)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	logrus.Info("Seeding Feishu webhook setting from configuration")
	return store.SetSetting(ctx, storage.SettingFeishuWebhook, cfg.FeishuWebhookURL)
}

func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return lock.NewLocalLocker(), func() {}, nil
	}
	locker, err := lock.NewRedisLocker(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logrus.Info("Using Redis run lock")
	return locker, func() {
		if err := locker.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Redis client")
		}
	}, nil
}
