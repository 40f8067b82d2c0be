package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// RESTStore reads marketplace records from the marketplace REST API. Every
// call passes through a circuit breaker so a struggling marketplace cannot
// stall the analyzers: once the breaker opens, calls fail fast with
// ErrUpstream until the API recovers.
type RESTStore struct {
	baseURL   string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	discounts DiscountStore
	logger    *slog.Logger
}

type httpStatusError struct {
	code int
	path string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("marketplace api: %s returned %d", e.path, e.code)
}

func NewRESTStore(baseURL string, discounts DiscountStore, logger *slog.Logger) *RESTStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RESTStore{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		discounts: discounts,
		logger:    logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "marketplace-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// A 404 is a well-formed answer, not an upstream fault.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var statusErr *httpStatusError
			return errors.As(err, &statusErr) && statusErr.code == http.StatusNotFound
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("marketplace api circuit state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return s
}

// do runs one API call through the breaker and returns the response body.
func (s *RESTStore) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	return s.breaker.Execute(func() ([]byte, error) {
		var body io.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("marketplace api: encode %s %s: %w", method, path, err)
			}
			body = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("marketplace api: build %s %s: %w", method, path, err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("marketplace api: %s %s: %w", method, path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &httpStatusError{code: resp.StatusCode, path: path}
		}
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("marketplace api: read %s %s: %w", method, path, err)
		}
		return raw, nil
	})
}

func (s *RESTStore) getJSON(ctx context.Context, path string, out any) error {
	raw, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("marketplace api: decode %s: %w", path, err)
	}
	return nil
}

// wrapErr translates API failures into the store taxonomy.
func wrapErr(op string, err error) error {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

// ============================================================================
// WIRE MODELS
// ============================================================================

// The marketplace API speaks camelCase; these mirror its payloads.

type apiListing struct {
	ID          string  `json:"id"`
	OwnerID     string  `json:"ownerId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	BasePrice   float64 `json:"basePrice"`
	Status      string  `json:"status"`
}

func (a apiListing) toDomain() Listing {
	return Listing{
		ID:          a.ID,
		OwnerID:     a.OwnerID,
		Title:       a.Title,
		Description: a.Description,
		Category:    a.Type,
		BasePrice:   a.BasePrice,
		Status:      a.Status,
	}
}

type apiBooking struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listingId"`
	RenterID   string    `json:"renterId"`
	StartAt    time.Time `json:"startDate"`
	EndAt      time.Time `json:"endDate"`
	TotalPrice float64   `json:"totalPrice"`
	Status     string    `json:"status"`
}

func (a apiBooking) toDomain() Booking {
	return Booking{
		ID:         a.ID,
		ListingID:  a.ListingID,
		RenterID:   a.RenterID,
		StartAt:    a.StartAt,
		EndAt:      a.EndAt,
		TotalPrice: a.TotalPrice,
		Status:     BookingStatus(a.Status),
	}
}

type apiReview struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listingId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	Flagged   bool      `json:"flagged"`
}

func (a apiReview) toDomain() Review {
	return Review{
		ID:        a.ID,
		ListingID: a.ListingID,
		Rating:    a.Rating,
		Comment:   a.Comment,
		CreatedAt: a.CreatedAt,
		Flagged:   a.Flagged,
	}
}

type apiUser struct {
	ID       string       `json:"id"`
	Listings []apiListing `json:"listings"`
}

// ============================================================================
// STORE IMPLEMENTATION
// ============================================================================

func (s *RESTStore) GetListing(ctx context.Context, listingID string) (*Listing, error) {
	var wire apiListing
	if err := s.getJSON(ctx, "/listings/"+url.PathEscape(listingID), &wire); err != nil {
		return nil, wrapErr("get listing "+listingID, err)
	}
	l := wire.toDomain()
	annotateDiscount(ctx, s.discounts, &l)
	return &l, nil
}

func (s *RESTStore) GetAllListings(ctx context.Context) ([]Listing, error) {
	var wire []apiListing
	if err := s.getJSON(ctx, "/listings", &wire); err != nil {
		return nil, wrapErr("get all listings", err)
	}
	listings := make([]Listing, 0, len(wire))
	for _, w := range wire {
		listings = append(listings, w.toDomain())
	}
	annotateDiscounts(ctx, s.discounts, listings)
	return listings, nil
}

func (s *RESTStore) GetListingsByOwner(ctx context.Context, ownerID string) ([]Listing, error) {
	var wire apiUser
	if err := s.getJSON(ctx, "/users/"+url.PathEscape(ownerID), &wire); err != nil {
		return nil, wrapErr("get listings by owner "+ownerID, err)
	}
	listings := make([]Listing, 0, len(wire.Listings))
	for _, w := range wire.Listings {
		l := w.toDomain()
		if l.OwnerID == "" {
			l.OwnerID = ownerID
		}
		listings = append(listings, l)
	}
	annotateDiscounts(ctx, s.discounts, listings)
	return listings, nil
}

func (s *RESTStore) GetBookings(ctx context.Context, listingID string) ([]Booking, error) {
	var wire []apiBooking
	if err := s.getJSON(ctx, "/bookings?listing_id="+url.QueryEscape(listingID), &wire); err != nil {
		return nil, wrapErr("get bookings "+listingID, err)
	}
	bookings := make([]Booking, 0, len(wire))
	for _, w := range wire {
		bookings = append(bookings, w.toDomain())
	}
	return bookings, nil
}

func (s *RESTStore) GetAllBookings(ctx context.Context) ([]Booking, error) {
	var wire []apiBooking
	if err := s.getJSON(ctx, "/bookings", &wire); err != nil {
		return nil, wrapErr("get all bookings", err)
	}
	bookings := make([]Booking, 0, len(wire))
	for _, w := range wire {
		bookings = append(bookings, w.toDomain())
	}
	return bookings, nil
}

func (s *RESTStore) GetReviews(ctx context.Context, listingID string) ([]Review, error) {
	var wire []apiReview
	if err := s.getJSON(ctx, "/reviews?listing_id="+url.QueryEscape(listingID), &wire); err != nil {
		return nil, wrapErr("get reviews "+listingID, err)
	}
	reviews := make([]Review, 0, len(wire))
	for _, w := range wire {
		reviews = append(reviews, w.toDomain())
	}
	return reviews, nil
}

func (s *RESTStore) UpdatePrice(ctx context.Context, listingID string, percentChange float64) (PriceUpdate, error) {
	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return PriceUpdate{}, err
	}
	oldPrice := listing.BasePrice
	newPrice := applyPercent(oldPrice, percentChange)
	if newPrice <= 0 {
		return PriceUpdate{}, fmt.Errorf("price %.2f rejected for listing %s: %w", newPrice, listingID, ErrInvalidPrice)
	}

	payload := map[string]float64{"basePrice": newPrice}
	if _, err := s.do(ctx, http.MethodPatch, "/listings/"+url.PathEscape(listingID), payload); err != nil {
		return PriceUpdate{}, wrapErr("update price "+listingID, err)
	}
	return PriceUpdate{
		ListingID: listingID,
		Message:   priceUpdateMessage(listing.Title, oldPrice, newPrice, percentChange),
		OldPrice:  oldPrice,
		NewPrice:  newPrice,
	}, nil
}

func (s *RESTStore) FlagReviews(ctx context.Context, listingID, issue string) (int, error) {
	reviews, err := s.GetReviews(ctx, listingID)
	if err != nil {
		return 0, err
	}
	if len(reviews) == 0 {
		return 0, fmt.Errorf("reviews for listing %s: %w", listingID, ErrNotFound)
	}
	count := 0
	for _, r := range reviews {
		if !containsFold(r.Comment, issue) {
			continue
		}
		payload := map[string]bool{"flagged": true}
		if _, err := s.do(ctx, http.MethodPatch, "/reviews/"+url.PathEscape(r.ID), payload); err != nil {
			return count, wrapErr("flag review "+r.ID, err)
		}
		count++
	}
	return count, nil
}
