package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInsightWarmup pre-computes analyzer reports for every listing and owner.
	TaskInsightWarmup = "insight:warmup"
	// TaskReviewFlag marks reviews mentioning an issue on one listing.
	TaskReviewFlag = "review:flag"
)

// InsightWarmupPayload scopes a warmup run. Scope is informational for now;
// every run walks the full dataset.
type InsightWarmupPayload struct {
	Scope string `json:"scope"`
}

// ReviewFlagPayload identifies the reviews to flag.
type ReviewFlagPayload struct {
	ListingID string `json:"listing_id"`
	Issue     string `json:"issue"`
}

// NewInsightWarmupTask constructs an Asynq task for a warmup run.
func NewInsightWarmupTask(payload InsightWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInsightWarmup, data), nil
}

// NewReviewFlagTask constructs an Asynq task for flagging reviews.
func NewReviewFlagTask(payload ReviewFlagPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReviewFlag, data), nil
}
