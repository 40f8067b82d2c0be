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
	"github.com/insightd/insightd/internal/pricing"
	"github.com/insightd/insightd/internal/reviews"
	"github.com/insightd/insightd/internal/trends"
)

type warmupStore struct {
	listings []marketdata.Listing
	bookings map[string][]marketdata.Booking
	comments map[string][]marketdata.Review

	listErr     error
	listingErrs map[string]error

	bookingCalls map[string]int
	reviewCalls  map[string]int
	ownerCalls   map[string]int
}

func newWarmupStore(listings ...marketdata.Listing) *warmupStore {
	return &warmupStore{
		listings:     listings,
		bookings:     map[string][]marketdata.Booking{},
		comments:     map[string][]marketdata.Review{},
		listingErrs:  map[string]error{},
		bookingCalls: map[string]int{},
		reviewCalls:  map[string]int{},
		ownerCalls:   map[string]int{},
	}
}

func (s *warmupStore) GetListing(ctx context.Context, listingID string) (*marketdata.Listing, error) {
	if err := s.listingErrs[listingID]; err != nil {
		return nil, err
	}
	for i := range s.listings {
		if s.listings[i].ID == listingID {
			listing := s.listings[i]
			return &listing, nil
		}
	}
	return nil, fmt.Errorf("listing %s: %w", listingID, marketdata.ErrNotFound)
}

func (s *warmupStore) GetAllListings(ctx context.Context) ([]marketdata.Listing, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listings, nil
}

func (s *warmupStore) GetListingsByOwner(ctx context.Context, ownerID string) ([]marketdata.Listing, error) {
	s.ownerCalls[ownerID]++
	var owned []marketdata.Listing
	for _, listing := range s.listings {
		if listing.OwnerID == ownerID {
			owned = append(owned, listing)
		}
	}
	return owned, nil
}

func (s *warmupStore) GetBookings(ctx context.Context, listingID string) ([]marketdata.Booking, error) {
	s.bookingCalls[listingID]++
	return s.bookings[listingID], nil
}

func (s *warmupStore) GetAllBookings(ctx context.Context) ([]marketdata.Booking, error) {
	var all []marketdata.Booking
	for _, bookings := range s.bookings {
		all = append(all, bookings...)
	}
	return all, nil
}

func (s *warmupStore) GetReviews(ctx context.Context, listingID string) ([]marketdata.Review, error) {
	s.reviewCalls[listingID]++
	return s.comments[listingID], nil
}

func (s *warmupStore) UpdatePrice(ctx context.Context, listingID string, percentChange float64) (marketdata.PriceUpdate, error) {
	return marketdata.PriceUpdate{}, fmt.Errorf("listing %s: %w", listingID, marketdata.ErrNotFound)
}

func (s *warmupStore) FlagReviews(ctx context.Context, listingID, issue string) (int, error) {
	return 0, nil
}

func warmupFixture() *warmupStore {
	return newWarmupStore(
		marketdata.Listing{ID: "car001", OwnerID: "own001", Title: "City Car", Category: "vehicle", BasePrice: 50, Status: "active"},
		marketdata.Listing{ID: "car002", OwnerID: "own001", Title: "Cargo Van", Category: "vehicle", BasePrice: 80, Status: "active"},
		marketdata.Listing{ID: "apt001", OwnerID: "own002", Title: "Harbour Loft", Category: "accommodation", BasePrice: 120, Status: "active"},
	)
}

func newWarmupJob(store *warmupStore) *InsightWarmupJob {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewInsightWarmupJob(
		pricing.NewService(store, nil, nil, logger),
		trends.NewService(store, nil, logger),
		reviews.NewService(store, nil, reviews.DefaultLexicon(), logger),
		store,
		logger,
		nil,
	)
}

func TestInsightWarmupWalksEveryListingOnce(t *testing.T) {
	store := warmupFixture()
	job := newWarmupJob(store)

	task, err := NewInsightWarmupTask(InsightWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	for _, id := range []string{"car001", "car002", "apt001"} {
		assert.Equal(t, 1, store.bookingCalls[id], "pricing warm for %s", id)
		assert.Equal(t, 1, store.reviewCalls[id], "review warm for %s", id)
	}
	assert.Equal(t, map[string]int{"own001": 1, "own002": 1}, store.ownerCalls)
}

func TestInsightWarmupContinuesPastFailingListing(t *testing.T) {
	store := warmupFixture()
	store.listingErrs["car002"] = fmt.Errorf("get listing: %w", marketdata.ErrUpstream)
	job := newWarmupJob(store)

	task, err := NewInsightWarmupTask(InsightWarmupPayload{Scope: "all"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, 1, store.reviewCalls["car001"])
	assert.Equal(t, 1, store.reviewCalls["apt001"])
	assert.Zero(t, store.reviewCalls["car002"], "failed listing is skipped, not retried")
	assert.Equal(t, map[string]int{"own001": 1, "own002": 1}, store.ownerCalls, "owner warms survive listing failures")
}

func TestInsightWarmupFailsWhenStoreUnreachable(t *testing.T) {
	store := warmupFixture()
	store.listErr = fmt.Errorf("scan listings: %w", marketdata.ErrUpstream)
	job := newWarmupJob(store)

	task, err := NewInsightWarmupTask(InsightWarmupPayload{})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, marketdata.ErrUpstream)
	assert.Empty(t, store.bookingCalls)
}

func TestInsightWarmupNoListings(t *testing.T) {
	store := newWarmupStore()
	job := newWarmupJob(store)

	task, err := NewInsightWarmupTask(InsightWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Empty(t, store.bookingCalls)
	assert.Empty(t, store.ownerCalls)
}

func TestInsightWarmupMalformedPayload(t *testing.T) {
	job := newWarmupJob(warmupFixture())

	err := job.Handle(context.Background(), asynq.NewTask(TaskInsightWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
