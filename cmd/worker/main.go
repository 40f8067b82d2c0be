package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/insightd/insightd/internal/app"
	"github.com/insightd/insightd/internal/marketdata"
	"github.com/insightd/insightd/internal/platform/cache"
	"github.com/insightd/insightd/internal/platform/db"
	"github.com/insightd/insightd/internal/pricing"
	"github.com/insightd/insightd/internal/reviews"
	"github.com/insightd/insightd/internal/trends"
	"github.com/insightd/insightd/jobs"
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

	// The queue itself connects through asynq; this client only backs the
	// report cache and discounts, so the worker can start without it.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, warming uncached", slog.Any("error", err))
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

	pricingService := pricing.NewService(store, discounts, reports, logger)
	trendsService := trends.NewService(store, reports, logger)
	reviewsService := reviews.NewService(store, reports, reviews.DefaultLexicon(), logger)

	warmupJob := jobs.NewInsightWarmupJob(pricingService, trendsService, reviewsService, store, logger, nil)
	flagJob := jobs.NewReviewFlagJob(reviewsService, logger, nil)

	warmupTask, err := jobs.NewInsightWarmupTask(jobs.InsightWarmupPayload{Scope: "all"})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInsightWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskReviewFlag, Handler: flagJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
