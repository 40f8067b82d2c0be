package marketdata

import (
	"time"
)

// ============================================================================
// LISTING
// ============================================================================

// Listing is a snapshot of a marketplace listing. Category is a free-text
// grouping key ("vehicle", "item", "accommodation", ...), not an enum.
type Listing struct {
	ID              string  `json:"id" db:"id"`
	OwnerID         string  `json:"owner_id" db:"owner_id"`
	Title           string  `json:"title" db:"title"`
	Description     string  `json:"description" db:"description"`
	Category        string  `json:"category" db:"category"`
	BasePrice       float64 `json:"base_price" db:"base_price"`
	Status          string  `json:"status" db:"status"`
	DiscountPercent float64 `json:"discount_percent" db:"-"`
}

// ============================================================================
// BOOKING
// ============================================================================

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking covers [StartAt, EndAt); EndAt is never before StartAt.
type Booking struct {
	ID         string        `json:"id" db:"id"`
	ListingID  string        `json:"listing_id" db:"listing_id"`
	RenterID   string        `json:"renter_id" db:"renter_id"`
	StartAt    time.Time     `json:"start_at" db:"start_at"`
	EndAt      time.Time     `json:"end_at" db:"end_at"`
	TotalPrice float64       `json:"total_price" db:"total_price"`
	Status     BookingStatus `json:"status" db:"status"`
}

// Days returns the whole days covered by the booking, clamped to zero.
func (b Booking) Days() int {
	d := int(b.EndAt.Sub(b.StartAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// ============================================================================
// REVIEW
// ============================================================================

type Review struct {
	ID        string    `json:"id" db:"id"`
	ListingID string    `json:"listing_id" db:"listing_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Flagged   bool      `json:"flagged" db:"flagged"`
}

// ============================================================================
// PRICE UPDATE
// ============================================================================

// PriceUpdate reports the outcome of a price change accepted by the store.
type PriceUpdate struct {
	ListingID string  `json:"listing_id"`
	Message   string  `json:"message"`
	OldPrice  float64 `json:"old_price"`
	NewPrice  float64 `json:"new_price"`
}
