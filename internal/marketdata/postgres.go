package marketdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightd/insightd/internal/platform/db"
)

// PostgresStore reads marketplace records straight from the marketplace
// database. It owns no schema: the listings/bookings/reviews tables belong to
// the booking subsystem and are only read here, except for the price column.
type PostgresStore struct {
	db        *pgxpool.Pool
	discounts DiscountStore
}

func NewPostgresStore(pool *pgxpool.Pool, discounts DiscountStore) *PostgresStore {
	return &PostgresStore{db: pool, discounts: discounts}
}

const listingColumns = `id, owner_id, title, COALESCE(description, ''), category, base_price, status`

func (s *PostgresStore) GetListing(ctx context.Context, listingID string) (*Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	var l Listing
	err := s.db.QueryRow(ctx, query, listingID).
		Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Category, &l.BasePrice, &l.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
		}
		return nil, fmt.Errorf("get listing: %w: %w", ErrUpstream, err)
	}
	annotateDiscount(ctx, s.discounts, &l)
	return &l, nil
}

func (s *PostgresStore) GetAllListings(ctx context.Context) ([]Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings ORDER BY id`
	listings, err := s.queryListings(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all listings: %w: %w", ErrUpstream, err)
	}
	annotateDiscounts(ctx, s.discounts, listings)
	return listings, nil
}

func (s *PostgresStore) GetListingsByOwner(ctx context.Context, ownerID string) ([]Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE owner_id = $1 ORDER BY id`
	listings, err := s.queryListings(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get listings by owner: %w: %w", ErrUpstream, err)
	}
	annotateDiscounts(ctx, s.discounts, listings)
	return listings, nil
}

func (s *PostgresStore) queryListings(ctx context.Context, query string, args ...any) ([]Listing, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var l Listing
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Category, &l.BasePrice, &l.Status); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

const bookingColumns = `id, listing_id, renter_id, start_at, end_at, total_price, status`

func (s *PostgresStore) GetBookings(ctx context.Context, listingID string) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE listing_id = $1 ORDER BY start_at`
	bookings, err := s.queryBookings(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("get bookings: %w: %w", ErrUpstream, err)
	}
	return bookings, nil
}

func (s *PostgresStore) GetAllBookings(ctx context.Context) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY start_at`
	bookings, err := s.queryBookings(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all bookings: %w: %w", ErrUpstream, err)
	}
	return bookings, nil
}

func (s *PostgresStore) queryBookings(ctx context.Context, query string, args ...any) ([]Booking, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.ListingID, &b.RenterID, &b.StartAt, &b.EndAt, &b.TotalPrice, &b.Status); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (s *PostgresStore) GetReviews(ctx context.Context, listingID string) ([]Review, error) {
	query := `SELECT id, listing_id, rating, COALESCE(comment, ''), created_at, flagged FROM reviews WHERE listing_id = $1 ORDER BY created_at`
	rows, err := s.db.Query(ctx, query, listingID)
	if err != nil {
		return nil, fmt.Errorf("get reviews: %w: %w", ErrUpstream, err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.ListingID, &r.Rating, &r.Comment, &r.CreatedAt, &r.Flagged); err != nil {
			return nil, fmt.Errorf("get reviews: %w: %w", ErrUpstream, err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get reviews: %w: %w", ErrUpstream, err)
	}
	return reviews, nil
}

// UpdatePrice adjusts base_price inside a transaction; the row is locked so
// the old/new pair in the result is consistent, but two concurrent updates
// still apply in arrival order.
func (s *PostgresStore) UpdatePrice(ctx context.Context, listingID string, percentChange float64) (PriceUpdate, error) {
	var update PriceUpdate
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var title string
		var oldPrice float64
		err := tx.QueryRow(ctx, `SELECT title, base_price FROM listings WHERE id = $1 FOR UPDATE`, listingID).
			Scan(&title, &oldPrice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
			}
			return fmt.Errorf("update price: %w: %w", ErrUpstream, err)
		}

		newPrice := applyPercent(oldPrice, percentChange)
		if _, err := tx.Exec(ctx, `UPDATE listings SET base_price = $2, updated_at = now() WHERE id = $1`, listingID, newPrice); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.ConstraintName == "listings_base_price_check" {
				return fmt.Errorf("price %.2f rejected for listing %s: %w", newPrice, listingID, ErrInvalidPrice)
			}
			return fmt.Errorf("update price: %w: %w", ErrUpstream, err)
		}

		update = PriceUpdate{
			ListingID: listingID,
			Message:   priceUpdateMessage(title, oldPrice, newPrice, percentChange),
			OldPrice:  oldPrice,
			NewPrice:  newPrice,
		}
		return nil
	})
	if err != nil {
		return PriceUpdate{}, err
	}
	return update, nil
}

// FlagReviews marks matching reviews in one statement. ILIKE keeps the match
// case-insensitive, mirroring the in-memory behavior.
func (s *PostgresStore) FlagReviews(ctx context.Context, listingID, issue string) (int, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reviews WHERE listing_id = $1)`, listingID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("flag reviews: %w: %w", ErrUpstream, err)
	}
	if !exists {
		return 0, fmt.Errorf("reviews for listing %s: %w", listingID, ErrNotFound)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE reviews SET flagged = TRUE WHERE listing_id = $1 AND comment ILIKE '%' || $2 || '%'`,
		listingID, issue)
	if err != nil {
		return 0, fmt.Errorf("flag reviews: %w: %w", ErrUpstream, err)
	}
	return int(tag.RowsAffected()), nil
}
