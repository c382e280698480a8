package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/linkspool/linkspool/internal/api"
	"github.com/linkspool/linkspool/internal/config"
	"github.com/linkspool/linkspool/internal/db"
	"github.com/linkspool/linkspool/internal/events"
	"github.com/linkspool/linkspool/internal/metrics"
	"github.com/linkspool/linkspool/internal/remote"
	"github.com/linkspool/linkspool/internal/repository"
	"github.com/linkspool/linkspool/internal/service"
	"github.com/linkspool/linkspool/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	// A missing .env is fine; all settings have defaults except the API token.
	_ = godotenv.Load()
	cfg := config.Load()

	// ---- database ----
	conn, err := db.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open queue database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied", zap.String("path", cfg.DatabasePath))

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	notifier := events.NewNotifier()
	repo := repository.NewSQLiteQueueRepository(conn)
	client := remote.NewClient(cfg)
	if !client.TokenConfigured() {
		logger.Warn("no API token configured; submissions will be rejected until one is set")
	}

	// ---- retry worker ----
	// Context for all background goroutines; cancelled on shutdown signal.
	ctx := context.Background()
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	onSent, onFailed, onDepth := m.WorkerHooks()
	retryW := worker.NewRetryWorker(cfg, repo, client, notifier, logger, worker.MetricHooks{
		OnSent:   onSent,
		OnFailed: onFailed,
		OnDepth:  onDepth,
	})
	go retryW.Run(workerCtx)

	svc := service.NewSubmissionService(
		repo, client, retryW, logger,
		client.TokenConfigured(), cfg.QueueListLimit, cfg.RetryNowBatch,
	)

	// ---- HTTP server ----
	router := api.NewRouter(svc, notifier, conn, cfg.EventBuffer, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests; open SSE streams are closed too.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the retry worker to stop; any item mid-delivery finishes
	// because delivery state is committed to the database per item.
	cancelWorkers()

	logger.Info("server stopped cleanly")
}
