package marketdata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a map-backed Store used by tests and by the memory driver
// (local development without a marketplace database).
type MemoryStore struct {
	mu        sync.RWMutex
	listings  map[string]Listing
	bookings  map[string][]Booking
	reviews   map[string][]Review
	discounts DiscountStore
}

func NewMemoryStore(discounts DiscountStore) *MemoryStore {
	return &MemoryStore{
		listings:  make(map[string]Listing),
		bookings:  make(map[string][]Booking),
		reviews:   make(map[string][]Review),
		discounts: discounts,
	}
}

// AddListing stores a listing, generating an ID when none is set, and returns
// the stored value.
func (s *MemoryStore) AddListing(l Listing) Listing {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[l.ID] = l
	return l
}

func (s *MemoryStore) AddBooking(b Booking) Booking {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ListingID] = append(s.bookings[b.ListingID], b)
	return b
}

func (s *MemoryStore) AddReview(r Review) Review {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[r.ListingID] = append(s.reviews[r.ListingID], r)
	return r
}

func (s *MemoryStore) GetListing(ctx context.Context, listingID string) (*Listing, error) {
	s.mu.RLock()
	l, ok := s.listings[listingID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	annotateDiscount(ctx, s.discounts, &l)
	return &l, nil
}

func (s *MemoryStore) GetAllListings(ctx context.Context) ([]Listing, error) {
	s.mu.RLock()
	out := make([]Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, l)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	annotateDiscounts(ctx, s.discounts, out)
	return out, nil
}

func (s *MemoryStore) GetListingsByOwner(ctx context.Context, ownerID string) ([]Listing, error) {
	s.mu.RLock()
	var out []Listing
	for _, l := range s.listings {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	annotateDiscounts(ctx, s.discounts, out)
	return out, nil
}

func (s *MemoryStore) GetBookings(_ context.Context, listingID string) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Booking(nil), s.bookings[listingID]...), nil
}

func (s *MemoryStore) GetAllBookings(_ context.Context) ([]Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Booking
	for _, bs := range s.bookings {
		out = append(out, bs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetReviews(_ context.Context, listingID string) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Review(nil), s.reviews[listingID]...), nil
}

func (s *MemoryStore) UpdatePrice(_ context.Context, listingID string, percentChange float64) (PriceUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[listingID]
	if !ok {
		return PriceUpdate{}, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	oldPrice := l.BasePrice
	newPrice := applyPercent(oldPrice, percentChange)
	if newPrice <= 0 {
		return PriceUpdate{}, fmt.Errorf("price %.2f rejected for listing %s: %w", newPrice, listingID, ErrInvalidPrice)
	}
	l.BasePrice = newPrice
	s.listings[listingID] = l
	return PriceUpdate{
		ListingID: listingID,
		Message:   priceUpdateMessage(l.Title, oldPrice, newPrice, percentChange),
		OldPrice:  oldPrice,
		NewPrice:  newPrice,
	}, nil
}

func (s *MemoryStore) FlagReviews(_ context.Context, listingID, issue string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.reviews[listingID]
	if !ok {
		return 0, fmt.Errorf("reviews for listing %s: %w", listingID, ErrNotFound)
	}
	count := 0
	for i := range rs {
		if containsFold(rs[i].Comment, issue) {
			rs[i].Flagged = true
			count++
		}
	}
	s.reviews[listingID] = rs
	return count, nil
}

// SeedDemo loads the demo marketplace dataset: three listings owned by two
// owners, with booking activity weighted to make the first listing high
// demand, plus a small review history. Dates are relative to time.Now().
func (s *MemoryStore) SeedDemo() {
	now := time.Now()
	day := 24 * time.Hour

	s.AddListing(Listing{ID: "car001", OwnerID: "user001", Title: "Toyota Corolla 2019", Description: "Reliable sedan, great on fuel.", Category: "vehicle", BasePrice: 50, Status: "available"})
	s.AddListing(Listing{ID: "cam001", OwnerID: "user001", Title: "Canon EOS R6 Camera", Description: "Full-frame mirrorless camera with 4K video.", Category: "item", BasePrice: 30, Status: "available"})
	s.AddListing(Listing{ID: "acc001", OwnerID: "user002", Title: "Cozy Apartment in KL", Description: "One-bedroom apartment in Bukit Bintang area.", Category: "accommodation", BasePrice: 80, Status: "available"})

	s.AddBooking(Booking{ID: "b001", ListingID: "car001", RenterID: "user002", StartAt: now.Add(-25 * day), EndAt: now.Add(-10 * day), TotalPrice: 750, Status: BookingStatusConfirmed})
	s.AddBooking(Booking{ID: "b002", ListingID: "car001", RenterID: "user002", StartAt: now.Add(-9 * day), EndAt: now.Add(-3 * day), TotalPrice: 300, Status: BookingStatusConfirmed})
	s.AddBooking(Booking{ID: "b003", ListingID: "car001", RenterID: "user002", StartAt: now.Add(-2 * day), EndAt: now, TotalPrice: 100, Status: BookingStatusConfirmed})
	s.AddBooking(Booking{ID: "b004", ListingID: "cam001", RenterID: "user002", StartAt: now.Add(-12 * day), EndAt: now.Add(-11 * day), TotalPrice: 30, Status: BookingStatusConfirmed})
	s.AddBooking(Booking{ID: "b005", ListingID: "acc001", RenterID: "user001", StartAt: now.Add(-20 * day), EndAt: now.Add(-15 * day), TotalPrice: 400, Status: BookingStatusConfirmed})
	s.AddBooking(Booking{ID: "b006", ListingID: "acc001", RenterID: "user001", StartAt: now.Add(-10 * day), EndAt: now.Add(-5 * day), TotalPrice: 400, Status: BookingStatusConfirmed})

	s.AddReview(Review{ID: "r001", ListingID: "car001", Rating: 5, Comment: "Great car, very clean and comfortable!", CreatedAt: now.Add(-7 * day)})
	s.AddReview(Review{ID: "r002", ListingID: "car001", Rating: 4, Comment: "Smooth ride, but could improve on cleanliness.", CreatedAt: now.Add(-3 * day)})
	s.AddReview(Review{ID: "r003", ListingID: "car001", Rating: 5, Comment: "Excellent service and very fuel-efficient.", CreatedAt: now.Add(-1 * day)})
	s.AddReview(Review{ID: "r004", ListingID: "cam001", Rating: 4, Comment: "Camera quality is superb, but strap was missing.", CreatedAt: now.Add(-10 * day)})
	s.AddReview(Review{ID: "r005", ListingID: "acc001", Rating: 3, Comment: "Apartment was cozy but not as clean as expected.", CreatedAt: now.Add(-18 * day)})
	s.AddReview(Review{ID: "r006", ListingID: "acc001", Rating: 5, Comment: "Wonderful stay, great location and amenities.", CreatedAt: now.Add(-7 * day)})
}
