package jobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightd/insightd/internal/marketdata"
	"github.com/insightd/insightd/internal/reviews"
)

type flagStore struct {
	flagCount int
	flagErr   error
	flagged   []string
}

func (s *flagStore) GetListing(ctx context.Context, listingID string) (*marketdata.Listing, error) {
	return &marketdata.Listing{ID: listingID, Title: "City Car"}, nil
}

func (s *flagStore) GetReviews(ctx context.Context, listingID string) ([]marketdata.Review, error) {
	return nil, nil
}

func (s *flagStore) FlagReviews(ctx context.Context, listingID, issue string) (int, error) {
	s.flagged = append(s.flagged, listingID+"/"+issue)
	if s.flagErr != nil {
		return 0, s.flagErr
	}
	return s.flagCount, nil
}

func newFlagJob(store *flagStore) *ReviewFlagJob {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReviewFlagJob(reviews.NewService(store, nil, reviews.DefaultLexicon(), logger), logger, nil)
}

func TestReviewFlagHandle(t *testing.T) {
	store := &flagStore{flagCount: 2}
	job := newFlagJob(store)

	task, err := NewReviewFlagTask(ReviewFlagPayload{ListingID: "car001", Issue: "dirty"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"car001/dirty"}, store.flagged)
}

func TestReviewFlagMalformedPayload(t *testing.T) {
	store := &flagStore{}
	job := newFlagJob(store)

	err := job.Handle(context.Background(), asynq.NewTask(TaskReviewFlag, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, store.flagged)
}

func TestReviewFlagBlankFieldsAreDropped(t *testing.T) {
	store := &flagStore{}
	job := newFlagJob(store)

	for _, payload := range []string{`{}`, `{"listing_id":"car001"}`, `{"issue":"dirty"}`} {
		err := job.Handle(context.Background(), asynq.NewTask(TaskReviewFlag, []byte(payload)))
		assert.ErrorIs(t, err, asynq.SkipRetry, "payload %s", payload)
	}
	assert.Empty(t, store.flagged)
}

func TestReviewFlagUnknownListingIsNotRetried(t *testing.T) {
	store := &flagStore{flagErr: fmt.Errorf("flag reviews: %w", marketdata.ErrNotFound)}
	job := newFlagJob(store)

	task, err := NewReviewFlagTask(ReviewFlagPayload{ListingID: "car999", Issue: "dirty"})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestReviewFlagUpstreamErrorRetries(t *testing.T) {
	store := &flagStore{flagErr: fmt.Errorf("flag reviews: %w", marketdata.ErrUpstream)}
	job := newFlagJob(store)

	task, err := NewReviewFlagTask(ReviewFlagPayload{ListingID: "car001", Issue: "dirty"})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, marketdata.ErrUpstream)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
