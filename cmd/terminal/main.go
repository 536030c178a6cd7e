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

	"golang.org/x/sync/errgroup"

	"github.com/meridian-pos/meridian-pos/internal/app"
	"github.com/meridian-pos/meridian-pos/internal/catalog"
	"github.com/meridian-pos/meridian-pos/internal/observability"
	"github.com/meridian-pos/meridian-pos/internal/platform/cache"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
	"github.com/meridian-pos/meridian-pos/internal/pos"
	"github.com/meridian-pos/meridian-pos/internal/store"
	syncer "github.com/meridian-pos/meridian-pos/internal/sync"
	"github.com/meridian-pos/meridian-pos/internal/transport"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if err := store.Migrate(ctx, pool); err != nil {
		logger.Error("migrate schema", slog.Any("error", err))
		os.Exit(1)
	}

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

	metrics := observability.NewMetrics()
	localStore := store.New(pool)
	client := transport.NewClient(cfg.BackendTimeout)

	catalogCache := catalog.NewCache(redisClient, cfg.CatalogCacheTTL)
	catalogService := catalog.NewService(localStore, catalogCache, logger)

	productSync := syncer.NewProductSync(localStore, client, logger)
	salesSync := syncer.NewSalesSync(localStore, client, logger)
	orchestrator := syncer.NewOrchestrator(syncer.Options{
		Products:      productSync,
		Sales:         salesSync,
		Tokens:        syncer.NewRedisTokenSource(redisClient, cfg.AuthTokenKey),
		BaseURL:       func() string { return cfg.BackendBaseURL },
		SalesInterval: cfg.SalesSyncInterval,
		Logger:        logger,
		Metrics:       metrics,
		OnCatalogSynced: func(ctx context.Context) {
			catalogService.Invalidate(ctx)
		},
	})

	posService := pos.NewService(localStore)
	posHandler := pos.NewHandler(logger, posService, catalogService, productSync, orchestrator, cfg.TaxEnabled)

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		POSHandler: posHandler,
		Metrics:    metrics,
	})
	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("terminal API listening", slog.String("addr", cfg.AppAddr))
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
		err := orchestrator.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		probeConnectivity(ctx, client, cfg, orchestrator)
		return nil
	})
	group.Go(func() error {
		watchUnsynced(ctx, localStore, metrics, logger)
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("terminal stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// probeConnectivity polls the backend and feeds transitions into the
// orchestrator. A probe failure never cancels an in-flight sync; it only
// stops further scheduling.
func probeConnectivity(ctx context.Context, client *transport.Client, cfg *app.Config, orchestrator *syncer.Orchestrator) {
	ticker := time.NewTicker(cfg.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := client.Ping(probeCtx, cfg.BackendBaseURL)
			cancel()
			orchestrator.SetOnline(err == nil)
		}
	}
}

// watchUnsynced keeps the queued-sales gauge current for dashboards.
func watchUnsynced(ctx context.Context, st store.Store, metrics *observability.Metrics, logger *slog.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := st.CountUnsyncedSales(ctx)
			if err != nil {
				logger.Warn("count unsynced sales", slog.Any("error", err))
				continue
			}
			metrics.SetUnsyncedSales(count)
		}
	}
}
