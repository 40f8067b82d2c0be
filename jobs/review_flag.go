package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/insightd/insightd/internal/jobs"
	"github.com/insightd/insightd/internal/marketdata"
	"github.com/insightd/insightd/internal/reviews"
)

// ReviewFlagJob marks the reviews on one listing that mention an issue and
// refreshes the cached review report.
type ReviewFlagJob struct {
	Reviews *reviews.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReviewFlagJob wires dependencies for the review-flag handler.
func NewReviewFlagJob(reviewsSvc *reviews.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReviewFlagJob {
	return &ReviewFlagJob{Reviews: reviewsSvc, Logger: logger, Metrics: metrics}
}

// Handle processes review-flag tasks. Payloads that can never succeed, bad
// JSON, blank fields or an unknown listing, are dropped instead of retried.
func (j *ReviewFlagJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("review flag: handler not configured")
	}
	var payload ReviewFlagPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.ListingID == "" || payload.Issue == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReviewFlag)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("listing_id", payload.ListingID), slog.String("issue", payload.Issue))

	if j.Reviews == nil {
		resultErr = errors.New("review flag: reviews service not configured")
		return resultErr
	}
	count, err := j.Reviews.Flag(ctx, payload.ListingID, payload.Issue)
	if err != nil {
		if errors.Is(err, marketdata.ErrNotFound) {
			resultErr = fmt.Errorf("flag reviews for %s: %w", payload.ListingID, asynq.SkipRetry)
			logger.Warn("review flag target missing", slog.Any("error", err))
			return resultErr
		}
		resultErr = err
		logger.Error("flag reviews", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed review flag", slog.Int("flagged", count))
	return resultErr
}

func (j *ReviewFlagJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReviewFlag))
	}
	return slog.Default().With(slog.String("job", TaskReviewFlag))
}

func (j *ReviewFlagJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
