// Package pricing derives demand levels from booking patterns and turns them
// into price recommendations a listing owner can apply with one click.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/insightd/insightd/internal/marketdata"
	"github.com/insightd/insightd/internal/platform/cache"
)

// windowDays is the trailing window for occupancy and recency.
const windowDays = 30

// Store is the slice of the marketplace accessor the pricing analyzer needs.
type Store interface {
	GetListing(ctx context.Context, listingID string) (*marketdata.Listing, error)
	GetBookings(ctx context.Context, listingID string) ([]marketdata.Booking, error)
	UpdatePrice(ctx context.Context, listingID string, percentChange float64) (marketdata.PriceUpdate, error)
}

// Report is the pricing recommendation for a single listing.
type Report struct {
	ListingID           string   `json:"listing_id"`
	ListingTitle        string   `json:"listing_title"`
	CurrentPrice        float64  `json:"current_price"`
	SuggestedPrice      float64  `json:"suggested_price"`
	PriceDifference     float64  `json:"price_difference"`
	AdjustmentPercent   float64  `json:"adjustment_percent"`
	AdjustmentDirection string   `json:"adjustment_direction"`
	DemandLevel         string   `json:"demand_level"`
	OccupancyRate       float64  `json:"occupancy_rate"`
	TotalBookings       int      `json:"total_bookings"`
	WeekendBookings     int      `json:"weekend_bookings"`
	HolidayBookings     int      `json:"holiday_bookings"`
	RecentBookings      int      `json:"recent_bookings"`
	Reasons             []string `json:"reasons"`
	Notes               []string `json:"notes"`
	CanTakeAction       bool     `json:"can_take_action"`
	Message             string   `json:"message"`
}

// ApplyResult reports the outcome of applying a recommended price.
type ApplyResult struct {
	Success      bool    `json:"success"`
	ListingID    string  `json:"listing_id"`
	ListingTitle string  `json:"listing_title"`
	OldPrice     float64 `json:"old_price"`
	NewPrice     float64 `json:"new_price"`
	Message      string  `json:"message"`
}

// DiscountResult reports a recorded discount.
type DiscountResult struct {
	Success         bool    `json:"success"`
	ListingID       string  `json:"listing_id"`
	ListingTitle    string  `json:"listing_title"`
	DiscountPercent float64 `json:"discount_percent"`
	Message         string  `json:"message"`
}

// Service computes pricing reports and applies price changes.
type Service struct {
	store     Store
	discounts marketdata.DiscountStore
	cache     *cache.Reports
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds a pricing Service. The cache may be nil, in which case
// every call recomputes.
func NewService(store Store, discounts marketdata.DiscountStore, reports *cache.Reports, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, discounts: discounts, cache: reports, logger: logger, now: time.Now}
}

// Analyze builds the pricing recommendation for one listing.
func (s *Service) Analyze(ctx context.Context, listingID string) (*Report, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		return s.analyze(ctx, listingID)
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return value.(*Report), nil
	}

	key, err := s.cache.BuildKey(ctx, "reports", "pricing", listingID)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := s.cache.FetchJSON(ctx, key, &report, loader); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) analyze(ctx context.Context, listingID string) (*Report, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	bookings, err := s.store.GetBookings(ctx, listingID)
	if err != nil {
		// A listing without reachable bookings is analyzed as idle.
		s.logger.Warn("pricing: bookings unavailable", slog.String("listing_id", listingID), slog.Any("error", err))
		bookings = nil
	}

	stats := collectDemandStats(bookings, s.now())
	score, indicators := demandScore(stats)
	level, adjustment, direction := demandLevel(score)

	suggested := round2(listing.BasePrice * (1 + adjustment/100))

	report := &Report{
		ListingID:           listing.ID,
		ListingTitle:        listing.Title,
		CurrentPrice:        listing.BasePrice,
		SuggestedPrice:      suggested,
		PriceDifference:     round2(suggested - listing.BasePrice),
		AdjustmentPercent:   adjustment,
		AdjustmentDirection: direction,
		DemandLevel:         level,
		OccupancyRate:       round1(stats.occupancy * 100),
		TotalBookings:       stats.total,
		WeekendBookings:     stats.weekend,
		HolidayBookings:     stats.holiday,
		RecentBookings:      stats.recent,
		Reasons:             buildReasons(direction, level, indicators, stats.occupancy),
		Notes:               buildNotes(stats),
		CanTakeAction:       adjustment != 0,
		Message:             fmt.Sprintf("Pricing analysis complete for '%s'.", listing.Title),
	}
	return report, nil
}

// ApplyPrice sets the listing price to newPrice by converting it into a
// percentage change for the store, then invalidates cached reports.
func (s *Service) ApplyPrice(ctx context.Context, listingID string, newPrice float64) (*ApplyResult, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	oldPrice := listing.BasePrice
	var percentChange float64
	if oldPrice > 0 {
		percentChange = ((newPrice - oldPrice) / oldPrice) * 100
	}

	update, err := s.store.UpdatePrice(ctx, listingID, percentChange)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("pricing: cache bump failed", slog.Any("error", err))
	}

	return &ApplyResult{
		Success:      true,
		ListingID:    listingID,
		ListingTitle: listing.Title,
		OldPrice:     update.OldPrice,
		NewPrice:     update.NewPrice,
		Message:      update.Message,
	}, nil
}

// ApplyDiscount records a discount percentage for the listing in the side
// table. The base price is untouched; stores annotate DiscountPercent on read.
func (s *Service) ApplyDiscount(ctx context.Context, listingID string, percent float64) (*DiscountResult, error) {
	// A discount of 100% or more would zero the effective price.
	if percent < 0 || percent >= 100 {
		return nil, fmt.Errorf("discount %.1f%% rejected for listing %s: %w", percent, listingID, marketdata.ErrInvalidPrice)
	}

	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if s.discounts == nil {
		return nil, fmt.Errorf("apply discount: %w: no discount store configured", marketdata.ErrUpstream)
	}
	if err := s.discounts.Set(ctx, listingID, percent); err != nil {
		return nil, fmt.Errorf("apply discount: %w: %w", marketdata.ErrUpstream, err)
	}

	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("pricing: cache bump failed", slog.Any("error", err))
	}

	return &DiscountResult{
		Success:         true,
		ListingID:       listingID,
		ListingTitle:    listing.Title,
		DiscountPercent: percent,
		Message:         fmt.Sprintf("Applied %.1f%% discount to '%s' for longer bookings.", percent, listing.Title),
	}, nil
}

// demandStats aggregates booking patterns over the trailing window.
type demandStats struct {
	total     int
	weekend   int
	weekday   int
	holiday   int
	recent    int
	occupancy float64
	revenue   float64
}

func collectDemandStats(bookings []marketdata.Booking, now time.Time) demandStats {
	windowStart := now.AddDate(0, 0, -windowDays)

	var stats demandStats
	var bookedDays float64
	for _, b := range bookings {
		stats.total++
		bookedDays += windowOverlapDays(b, windowStart, now)

		if b.Status == marketdata.BookingStatusConfirmed {
			stats.revenue += b.TotalPrice
		}

		switch b.StartAt.Weekday() {
		case time.Saturday, time.Sunday:
			stats.weekend++
		default:
			stats.weekday++
		}

		if overlapsHoliday(b.StartAt, b.EndAt) {
			stats.holiday++
		}
		if !b.StartAt.Before(windowStart) {
			stats.recent++
		}
	}

	if stats.total > 0 {
		stats.occupancy = math.Min(bookedDays/windowDays, 1.0)
	}
	return stats
}

// windowOverlapDays returns the days of [StartAt, EndAt) that fall inside the
// window, clamped to zero.
func windowOverlapDays(b marketdata.Booking, windowStart, windowEnd time.Time) float64 {
	start := b.StartAt
	if start.Before(windowStart) {
		start = windowStart
	}
	end := b.EndAt
	if end.After(windowEnd) {
		end = windowEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start).Hours() / 24
}

func demandScore(stats demandStats) (int, []string) {
	score := 0
	var indicators []string

	if stats.occupancy >= 0.7 {
		score += 3
		indicators = append(indicators, "High occupancy rate (≥70%)")
	} else if stats.occupancy >= 0.4 {
		score++
		indicators = append(indicators, "Moderate occupancy rate")
	}

	if stats.weekend > stats.weekday {
		score++
		indicators = append(indicators, "Strong weekend demand")
	}

	if stats.holiday > 0 {
		score += 2
		indicators = append(indicators, fmt.Sprintf("%d holiday period bookings", stats.holiday))
	}

	if stats.recent >= 3 {
		score += 2
		indicators = append(indicators, "Strong recent booking activity")
	} else if stats.recent >= 1 {
		score++
		indicators = append(indicators, "Some recent booking activity")
	}

	return score, indicators
}

func demandLevel(score int) (level string, adjustment float64, direction string) {
	switch {
	case score >= 5:
		return "High", 10, "increase"
	case score >= 3:
		return "Medium", 5, "increase"
	case score >= 1:
		return "Low", 0, "maintain"
	default:
		return "Very Low", -10, "decrease"
	}
}

func buildReasons(direction, level string, indicators []string, occupancy float64) []string {
	var reasons []string
	switch direction {
	case "increase":
		reasons = append(reasons, fmt.Sprintf("Demand level is %s", level))
		reasons = append(reasons, indicators...)
		reasons = append(reasons, fmt.Sprintf("Current occupancy: %.0f%%", occupancy*100))
	case "decrease":
		reasons = append(reasons,
			"Low booking activity detected",
			"Price reduction may attract more renters",
			fmt.Sprintf("Current occupancy: %.0f%%", occupancy*100))
	default:
		reasons = append(reasons,
			"Current pricing appears optimal for demand level",
			fmt.Sprintf("Occupancy rate: %.0f%%", occupancy*100))
	}
	return reasons
}

func buildNotes(stats demandStats) []string {
	var notes []string
	if stats.weekend > 0 {
		share := float64(stats.weekend) / float64(max(stats.total, 1)) * 100
		notes = append(notes, fmt.Sprintf("Weekend bookings: %d (%.0f%% of total)", stats.weekend, share))
	}
	if stats.holiday > 0 {
		notes = append(notes, fmt.Sprintf("Holiday bookings detected: %d", stats.holiday))
	}
	if stats.recent > 0 {
		notes = append(notes, fmt.Sprintf("Recent bookings (30 days): %d", stats.recent))
	}
	notes = append(notes, fmt.Sprintf("Total revenue from bookings: %.2f", stats.revenue))
	return notes
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
