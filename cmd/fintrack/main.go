package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/invalidation"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.LoadConfig()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	}()

	// Events are optional; without a broker writes still invalidate the cache.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without export events", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	limits := cfg.ListingLimits()
	engine := metrics.NewEngine(res.Store, limits)
	coordinator := invalidation.NewCoordinator(res.Cache, res.Store, limits, time.Now, logger)
	queries := services.NewQueryService(engine, res.Cache, time.Now)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Dashboard:    services.NewDashboardService(engine, res.Cache, time.Now),
		Analytics:    services.NewAnalyticsService(engine, res.Cache, time.Now),
		Reports:      services.NewReportService(engine, res.Cache),
		Queries:      queries,
		Transactions: services.NewTransactionService(res.Store, coordinator, publisher, logger),
	}, apphttp.Options{
		ReadyCheck: func(ctx context.Context) error {
			_, err := res.Store.CountRows(ctx, 0, false)
			return err
		},
	}, logger)

	janitor := cache.NewJanitor(res.Cache, cfg.CacheCleanupSchedule, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"data_backend", cfg.DataBackend,
			"cache_backend", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := janitor.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		janitor.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
