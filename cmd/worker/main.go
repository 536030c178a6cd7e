package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-pos/meridian-pos/internal/app"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/platform/cache"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
	"github.com/meridian-pos/meridian-pos/internal/store"
	syncer "github.com/meridian-pos/meridian-pos/internal/sync"
	"github.com/meridian-pos/meridian-pos/internal/transport"
	"github.com/meridian-pos/meridian-pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	localStore := store.New(pool)
	client := transport.NewClient(cfg.BackendTimeout)
	orchestrator := syncer.NewOrchestrator(syncer.Options{
		Products:      syncer.NewProductSync(localStore, client, logger),
		Sales:         syncer.NewSalesSync(localStore, client, logger),
		Tokens:        syncer.NewRedisTokenSource(redisClient, cfg.AuthTokenKey),
		BaseURL:       func() string { return cfg.BackendBaseURL },
		SalesInterval: cfg.SalesSyncInterval,
		Logger:        logger,
		Metrics:       observability.NewMetrics(),
	})
	syncJob := jobs.NewSyncJob(orchestrator, logger)

	salesTask, err := jobs.NewSyncSalesTask("schedule")
	if err != nil {
		logger.Error("build sales task", slog.Any("error", err))
		os.Exit(1)
	}
	catalogTask, err := jobs.NewSyncCatalogTask("schedule")
	if err != nil {
		logger.Error("build catalog task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSyncSales, Handler: syncJob.HandleSales},
			{Type: jobs.TaskSyncCatalog, Handler: syncJob.HandleCatalog},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every 2m", Task: salesTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: catalogTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	jobsHandler := jobs.NewHandler(inspector, logger)
	router := chi.NewRouter()
	router.Route("/jobs", jobsHandler.MountRoutes)
	server := &http.Server{Addr: cfg.WorkerAddr, Handler: router}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("jobs API listening", slog.String("addr", cfg.WorkerAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return worker.Run(ctx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
