package trends

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Statuses a trending category can be classified into for an owner.
const (
	StatusOnTrack          = "on_track"
	StatusNeedsImprovement = "needs_improvement"
	StatusOpportunity      = "opportunity"
	StatusLowDemand        = "low_demand"
)

// displayCategory renders a category key for prose ("vehicle" -> "Vehicle").
// Casers are stateful, so one is built per call.
func displayCategory(category string) string {
	return cases.Title(language.English).String(category)
}

// recommend classifies one trending category against the owner's holdings.
// The second return is false when the category warrants no recommendation
// (not held and not trending strongly enough).
func recommend(trend TrendingCategory, held bool, ownerListingCount, ownerBookingCount int) (Recommendation, bool) {
	name := displayCategory(trend.Category)

	if !held {
		if trend.TrendScore > 3 {
			return Recommendation{
				Category: trend.Category,
				Status:   StatusOpportunity,
				Message:  fmt.Sprintf("Consider adding %s listings to your portfolio.", name),
				Advice:   fmt.Sprintf("This category is trending with %d listings in the market and a trend score of %v.", trend.ListingCount, trend.TrendScore),
			}, true
		}
		return Recommendation{}, false
	}

	switch {
	case trend.TrendScore > 5 && ownerBookingCount > 0:
		return Recommendation{
			Category: trend.Category,
			Status:   StatusOnTrack,
			Message:  fmt.Sprintf("Excellent! Your %d %s listing(s) are performing well in a high-demand category.", ownerListingCount, name),
			Advice:   "Keep maintaining quality and competitive pricing to maximize bookings.",
		}, true
	case trend.TrendScore > 0 && ownerBookingCount == 0:
		return Recommendation{
			Category: trend.Category,
			Status:   StatusNeedsImprovement,
			Message:  fmt.Sprintf("Your %d %s listing(s) are in a trending category but have no completed bookings yet.", ownerListingCount, name),
			Advice:   "Try these improvements: 1) Add high-quality photos, 2) Write detailed descriptions, 3) Set competitive pricing, 4) Respond quickly to inquiries, 5) Offer flexible booking options.",
		}, true
	case ownerBookingCount > 0:
		return Recommendation{
			Category: trend.Category,
			Status:   StatusOnTrack,
			Message:  fmt.Sprintf("Good job! Your %d %s listing(s) are getting bookings.", ownerListingCount, name),
			Advice:   "Continue optimizing your listings to capture more bookings.",
		}, true
	default:
		return Recommendation{
			Category: trend.Category,
			Status:   StatusLowDemand,
			Message:  fmt.Sprintf("You have %d %s listing(s). Market activity for this category is currently low.", ownerListingCount, name),
			Advice:   "Monitor market trends and consider diversifying your portfolio.",
		}, true
	}
}
