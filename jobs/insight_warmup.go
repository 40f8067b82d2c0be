package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/insightd/insightd/internal/jobs"
	"github.com/insightd/insightd/internal/marketdata"
	"github.com/insightd/insightd/internal/pricing"
	"github.com/insightd/insightd/internal/reviews"
	"github.com/insightd/insightd/internal/trends"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// InsightWarmupJob pre-populates the report caches for every listing and owner
// so the first dashboard request of the day hits warm data.
type InsightWarmupJob struct {
	Pricing *pricing.Service
	Trends  *trends.Service
	Reviews *reviews.Service
	Store   marketdata.Store
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewInsightWarmupJob wires dependencies for the warmup handler.
func NewInsightWarmupJob(pricingSvc *pricing.Service, trendsSvc *trends.Service, reviewsSvc *reviews.Service, store marketdata.Store, logger *slog.Logger, metrics *jobmetrics.Metrics) *InsightWarmupJob {
	return &InsightWarmupJob{
		Pricing: pricingSvc,
		Trends:  trendsSvc,
		Reviews: reviewsSvc,
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes insight warmup tasks. Individual listings and owners that
// fail to warm are logged and skipped; the run keeps going.
func (j *InsightWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("insight warmup: handler not configured")
	}
	var payload InsightWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Scope == "" {
		payload.Scope = "all"
	}

	tracker := j.metrics().Track(TaskInsightWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("scope", payload.Scope))
	logger.Info("starting insight warmup")

	listings, err := j.fetchListings(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load listings", slog.Any("error", err))
		return resultErr
	}
	if len(listings) == 0 {
		logger.Info("no listings discovered for warmup")
		return resultErr
	}

	now := j.now()
	warmed := 0
	failed := 0
	owners := make(map[string]struct{})
	for _, listing := range listings {
		if listing.OwnerID != "" {
			owners[listing.OwnerID] = struct{}{}
		}
		if err := j.warmListing(ctx, listing.ID); err != nil {
			failed++
			logger.Warn("warm listing", slog.String("listing_id", listing.ID), slog.Any("error", err))
			continue
		}
		warmed++
	}

	ownerIDs := make([]string, 0, len(owners))
	for ownerID := range owners {
		ownerIDs = append(ownerIDs, ownerID)
	}
	sort.Strings(ownerIDs)
	for _, ownerID := range ownerIDs {
		if err := j.warmOwner(ctx, ownerID); err != nil {
			failed++
			logger.Warn("warm owner", slog.String("owner_id", ownerID), slog.Any("error", err))
			continue
		}
		warmed++
	}

	logger.Info("completed insight warmup",
		slog.Int("listings", len(listings)),
		slog.Int("owners", len(ownerIDs)),
		slog.Int("warmed", warmed),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *InsightWarmupJob) warmListing(ctx context.Context, listingID string) error {
	// Tighten each scope execution with a timeout to avoid long-running jobs.
	scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if j.Pricing != nil {
		if _, err := j.Pricing.Analyze(scopeCtx, listingID); err != nil {
			return err
		}
		j.metrics().AddWarmed("pricing", 1)
	}
	if j.Reviews != nil {
		if _, err := j.Reviews.Analyze(scopeCtx, listingID); err != nil {
			return err
		}
		j.metrics().AddWarmed("reviews", 1)
	}
	return nil
}

func (j *InsightWarmupJob) warmOwner(ctx context.Context, ownerID string) error {
	if j.Trends == nil {
		return nil
	}
	scopeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	if _, err := j.Trends.Analyze(scopeCtx, ownerID); err != nil {
		return err
	}
	j.metrics().AddWarmed("trends", 1)
	return nil
}

func (j *InsightWarmupJob) fetchListings(ctx context.Context) ([]marketdata.Listing, error) {
	if j.Store == nil {
		return nil, errors.New("insight warmup: store not configured")
	}
	return j.Store.GetAllListings(ctx)
}

func (j *InsightWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInsightWarmup))
	}
	return slog.Default().With(slog.String("job", TaskInsightWarmup))
}

func (j *InsightWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *InsightWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
