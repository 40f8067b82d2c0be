package marketdata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTStoreGetListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/listings/car001" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":        "car001",
			"ownerId":   "user001",
			"title":     "Toyota Corolla 2019",
			"type":      "vehicle",
			"basePrice": 50.0,
			"status":    "available",
		})
	}))
	defer server.Close()

	discounts := NewMemoryDiscounts()
	require.NoError(t, discounts.Set(context.Background(), "car001", 7.5))
	store := NewRESTStore(server.URL, discounts, nil)

	got, err := store.GetListing(context.Background(), "car001")
	require.NoError(t, err)
	assert.Equal(t, "vehicle", got.Category)
	assert.Equal(t, 50.0, got.BasePrice)
	assert.Equal(t, 7.5, got.DiscountPercent)

	_, err = store.GetListing(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRESTStoreUpdatePrice(t *testing.T) {
	var patched atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/listings/car001":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "car001", "title": "Toyota Corolla 2019", "basePrice": 50.0,
			})
		case r.Method == http.MethodPatch && r.URL.Path == "/listings/car001":
			body, _ := io.ReadAll(r.Body)
			var payload map[string]float64
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Errorf("bad patch payload: %v", err)
			}
			if payload["basePrice"] != 55.0 {
				t.Errorf("expected patched basePrice 55.0 got %v", payload["basePrice"])
			}
			patched.Store(true)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "car001", "basePrice": 55.0})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := NewRESTStore(server.URL, nil, nil)
	update, err := store.UpdatePrice(context.Background(), "car001", 10)
	require.NoError(t, err)
	assert.True(t, patched.Load())
	assert.Equal(t, 50.0, update.OldPrice)
	assert.Equal(t, 55.0, update.NewPrice)
	assert.Contains(t, update.Message, "Toyota Corolla 2019")

	// Rejected before the PATCH ever leaves the process.
	patched.Store(false)
	_, err = store.UpdatePrice(context.Background(), "car001", -100)
	assert.ErrorIs(t, err, ErrInvalidPrice)
	assert.False(t, patched.Load())
}

func TestRESTStoreBookingsAndReviews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bookings":
			if got := r.URL.Query().Get("listing_id"); got != "car001" {
				t.Errorf("expected listing_id filter, got %q", got)
			}
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{
					"id": "b001", "listingId": "car001", "renterId": "user002",
					"startDate": "2026-08-01T00:00:00Z", "endDate": "2026-08-05T00:00:00Z",
					"totalPrice": 200.0, "status": "CONFIRMED",
				},
			})
		case "/reviews":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"id": "r001", "listingId": "car001", "rating": 5, "comment": "Great car", "createdAt": "2026-08-06T00:00:00Z"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	store := NewRESTStore(server.URL, nil, nil)

	bookings, err := store.GetBookings(context.Background(), "car001")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, BookingStatusConfirmed, bookings[0].Status)
	assert.Equal(t, 4, bookings[0].Days())

	reviews, err := store.GetReviews(context.Background(), "car001")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)
}

func TestRESTStoreBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewRESTStore(server.URL, nil, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := store.GetAllListings(ctx)
		assert.ErrorIs(t, err, ErrUpstream)
	}
	require.Equal(t, int64(10), hits.Load())

	// Breaker is open now: the next call fails fast without touching the API.
	_, err := store.GetAllListings(ctx)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int64(10), hits.Load())
}
