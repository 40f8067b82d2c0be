package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/insightd/insightd/internal/actions"
	actionshttp "github.com/insightd/insightd/internal/actions/http"
	"github.com/insightd/insightd/internal/app"
	"github.com/insightd/insightd/internal/marketdata"
	"github.com/insightd/insightd/internal/observability"
	"github.com/insightd/insightd/internal/platform/cache"
	"github.com/insightd/insightd/internal/platform/db"
	"github.com/insightd/insightd/internal/pricing"
	"github.com/insightd/insightd/internal/reviews"
	"github.com/insightd/insightd/internal/trends"
	"github.com/insightd/insightd/jobs"
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

	// Redis is optional: without it reports are computed per request and
	// discounts live in process memory.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, running uncached", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	var reports *cache.Reports
	var discounts marketdata.DiscountStore = marketdata.NewMemoryDiscounts()
	if redisClient != nil {
		reports = cache.NewReports(redisClient, cfg.ReportCacheTTL)
		if err := reports.ListenForInvalidation(ctx, ""); err != nil {
			logger.Warn("cache invalidation listener", slog.Any("error", err))
		}
		discounts = marketdata.NewRedisDiscounts(redisClient, "")
	}

	var store marketdata.Store
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		store = marketdata.NewPostgresStore(pool, discounts)
	case "rest":
		store = marketdata.NewRESTStore(cfg.MarketAPIURL, discounts, logger)
	default:
		mem := marketdata.NewMemoryStore(discounts)
		mem.SeedDemo()
		store = mem
	}
	logger.Info("store ready", slog.String("driver", cfg.StoreDriver))

	pricingService := pricing.NewService(store, discounts, reports, logger)
	trendsService := trends.NewService(store, reports, logger)
	reviewsService := reviews.NewService(store, reports, reviews.DefaultLexicon(), logger)

	metrics := observability.NewMetrics()
	dispatcher := actions.NewDispatcher(pricingService, trendsService, reviewsService, metrics, logger)

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	actionsHandler := actionshttp.NewHandler(logger, dispatcher, queueClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		ActionsHandler: actionsHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
