// Package trends ranks marketplace listing categories by booking activity and
// tells an owner where their portfolio stands against the market.
package trends

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/insightd/insightd/internal/marketdata"
	"github.com/insightd/insightd/internal/platform/cache"
)

const (
	reportTitle   = "Market Trend Analysis"
	topCategories = 5
)

// Store is the slice of the marketplace accessor the trend analyzer needs.
type Store interface {
	GetAllListings(ctx context.Context) ([]marketdata.Listing, error)
	GetListingsByOwner(ctx context.Context, ownerID string) ([]marketdata.Listing, error)
	GetAllBookings(ctx context.Context) ([]marketdata.Booking, error)
}

// TrendingCategory ranks one listing category market-wide.
type TrendingCategory struct {
	Category     string  `json:"category"`
	ListingCount int     `json:"listing_count"`
	TrendScore   float64 `json:"trend_score"`
}

// Portfolio summarises the owner's side of the market.
type Portfolio struct {
	TotalListings int      `json:"total_listings"`
	Categories    []string `json:"categories"`
	TotalBookings int      `json:"total_bookings"`
	TotalRevenue  float64  `json:"total_revenue"`
}

// Recommendation classifies one trending category for the owner.
type Recommendation struct {
	Category string `json:"category"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Advice   string `json:"advice"`
}

// Report is the market-trend analysis for one owner.
type Report struct {
	Title              string             `json:"title"`
	Portfolio          Portfolio          `json:"portfolio"`
	TrendingCategories []TrendingCategory `json:"trending_categories"`
	Recommendations    []Recommendation   `json:"recommendations"`
	Message            string             `json:"message"`
}

// Service computes market-trend reports. Read-only.
type Service struct {
	store  Store
	cache  *cache.Reports
	logger *slog.Logger
}

// NewService builds a trend Service. The cache may be nil.
func NewService(store Store, reports *cache.Reports, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: reports, logger: logger}
}

// Analyze builds the market-trend report for one owner.
func (s *Service) Analyze(ctx context.Context, ownerID string) (*Report, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		return s.analyze(ctx, ownerID)
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return value.(*Report), nil
	}

	key, err := s.cache.BuildKey(ctx, "reports", "trends", ownerID)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := s.cache.FetchJSON(ctx, key, &report, loader); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) analyze(ctx context.Context, ownerID string) (*Report, error) {
	var (
		all      []marketdata.Listing
		owned    []marketdata.Listing
		bookings []marketdata.Booking
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.store.GetAllListings(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		owned, err = s.store.GetListingsByOwner(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		loaded, err := s.store.GetAllBookings(gctx)
		if err != nil {
			// Scores degrade to zero instead of failing the whole report.
			s.logger.Warn("trends: bookings unavailable", slog.Any("error", err))
			return nil
		}
		bookings = loaded
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(all) == 0 {
		return &Report{
			Title:              reportTitle,
			Portfolio:          Portfolio{Categories: []string{}},
			TrendingCategories: []TrendingCategory{},
			Recommendations:    []Recommendation{},
			Message:            "No market data available for analysis.",
		}, nil
	}

	bookingsByListing := make(map[string][]marketdata.Booking, len(all))
	for _, b := range bookings {
		bookingsByListing[b.ListingID] = append(bookingsByListing[b.ListingID], b)
	}

	trending := rankCategories(all, bookingsByListing)
	if len(trending) > topCategories {
		trending = trending[:topCategories]
	}

	portfolio, ownerListings, ownerBookings := buildPortfolio(owned, bookingsByListing)

	recommendations := make([]Recommendation, 0, len(trending))
	for _, trend := range trending {
		_, held := ownerListings[trend.Category]
		rec, ok := recommend(trend, held, ownerListings[trend.Category], ownerBookings[trend.Category])
		if ok {
			recommendations = append(recommendations, rec)
		}
	}

	return &Report{
		Title:              reportTitle,
		Portfolio:          portfolio,
		TrendingCategories: trending,
		Recommendations:    recommendations,
		Message:            "Market trend analysis complete.",
	}, nil
}

type categoryStats struct {
	listings int
	bookings int
	revenue  float64
}

// rankCategories aggregates market listings per category and sorts by trend
// score. Booking counts include every status; revenue only realised ones.
func rankCategories(all []marketdata.Listing, bookingsByListing map[string][]marketdata.Booking) []TrendingCategory {
	stats := make(map[string]*categoryStats)
	for _, l := range all {
		category := categoryOf(l)
		st := stats[category]
		if st == nil {
			st = &categoryStats{}
			stats[category] = st
		}
		st.listings++
		for _, b := range bookingsByListing[l.ID] {
			st.bookings++
			if revenueCounts(b) {
				st.revenue += b.TotalPrice
			}
		}
	}

	trending := make([]TrendingCategory, 0, len(stats))
	for category, st := range stats {
		avgBookings := float64(st.bookings) / float64(st.listings)
		avgRevenue := st.revenue / float64(st.listings)
		trending = append(trending, TrendingCategory{
			Category:     category,
			ListingCount: st.listings,
			TrendScore:   round2(avgBookings*2 + avgRevenue/100),
		})
	}

	sort.SliceStable(trending, func(i, j int) bool {
		if trending[i].TrendScore != trending[j].TrendScore {
			return trending[i].TrendScore > trending[j].TrendScore
		}
		return trending[i].Category < trending[j].Category
	})
	return trending
}

// buildPortfolio summarises the owner's listings and returns per-category
// listing and realised-booking counts for the recommendation pass.
func buildPortfolio(owned []marketdata.Listing, bookingsByListing map[string][]marketdata.Booking) (Portfolio, map[string]int, map[string]int) {
	ownerListings := make(map[string]int)
	ownerBookings := make(map[string]int)

	var totalBookings int
	var totalRevenue float64
	for _, l := range owned {
		category := categoryOf(l)
		ownerListings[category]++
		for _, b := range bookingsByListing[l.ID] {
			if !revenueCounts(b) {
				continue
			}
			ownerBookings[category]++
			totalBookings++
			totalRevenue += b.TotalPrice
		}
	}

	categories := make([]string, 0, len(ownerListings))
	for category := range ownerListings {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	portfolio := Portfolio{
		TotalListings: len(owned),
		Categories:    categories,
		TotalBookings: totalBookings,
		TotalRevenue:  round2(totalRevenue),
	}
	return portfolio, ownerListings, ownerBookings
}

func categoryOf(l marketdata.Listing) string {
	if l.Category == "" {
		return "Other"
	}
	return l.Category
}

// revenueCounts reports whether a booking contributes to realised revenue.
func revenueCounts(b marketdata.Booking) bool {
	return b.Status == marketdata.BookingStatusConfirmed || b.Status == marketdata.BookingStatusCompleted
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
