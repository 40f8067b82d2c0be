package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrUpstream     = errors.New("upstream store unavailable")
	ErrInvalidPrice = errors.New("price must stay positive")
)

// Store is the read/write contract over the marketplace records the analyzers
// consume. Absent listings surface as ErrNotFound; transport and query
// failures wrap ErrUpstream. Reads are independent snapshots: two calls within
// one analysis may observe different data.
type Store interface {
	GetListing(ctx context.Context, listingID string) (*Listing, error)
	GetAllListings(ctx context.Context) ([]Listing, error)
	GetListingsByOwner(ctx context.Context, ownerID string) ([]Listing, error)
	GetBookings(ctx context.Context, listingID string) ([]Booking, error)
	GetAllBookings(ctx context.Context) ([]Booking, error)
	GetReviews(ctx context.Context, listingID string) ([]Review, error)

	// UpdatePrice adjusts the listing's base price by percentChange percent.
	// Concurrent updates against the same listing are not serialized here.
	UpdatePrice(ctx context.Context, listingID string, percentChange float64) (PriceUpdate, error)

	// FlagReviews marks every review whose comment mentions issue and reports
	// how many were flagged.
	FlagReviews(ctx context.Context, listingID, issue string) (int, error)
}

func priceUpdateMessage(title string, oldPrice, newPrice, percentChange float64) string {
	return fmt.Sprintf("Price for '%s' updated from %.2f to %.2f (%+.1f%%)", title, oldPrice, newPrice, percentChange)
}

func applyPercent(price, percentChange float64) float64 {
	return round2(price * (1 + percentChange/100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
