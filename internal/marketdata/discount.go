package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DiscountStore keeps per-listing discount percentages in a side table. The
// marketplace schema has no discount column, so stores annotate
// Listing.DiscountPercent from here on read. Injected into store constructors;
// tests reset state by constructing a fresh instance.
type DiscountStore interface {
	Get(ctx context.Context, listingID string) (float64, error)
	GetAll(ctx context.Context) (map[string]float64, error)
	Set(ctx context.Context, listingID string, percent float64) error
}

// ============================================================================
// IN-MEMORY DISCOUNTS
// ============================================================================

type MemoryDiscounts struct {
	mu       sync.RWMutex
	percents map[string]float64
}

func NewMemoryDiscounts() *MemoryDiscounts {
	return &MemoryDiscounts{percents: make(map[string]float64)}
}

func (m *MemoryDiscounts) Get(_ context.Context, listingID string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.percents[listingID], nil
}

func (m *MemoryDiscounts) GetAll(_ context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.percents))
	for id, pct := range m.percents {
		out[id] = pct
	}
	return out, nil
}

func (m *MemoryDiscounts) Set(_ context.Context, listingID string, percent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.percents[listingID] = percent
	return nil
}

// ============================================================================
// REDIS DISCOUNTS
// ============================================================================

const defaultDiscountKey = "insightd:discounts"

// RedisDiscounts stores discounts in a single redis hash so they survive
// restarts and are shared between the API and the worker.
type RedisDiscounts struct {
	client *redis.Client
	key    string
}

func NewRedisDiscounts(client *redis.Client, key string) *RedisDiscounts {
	if key == "" {
		key = defaultDiscountKey
	}
	return &RedisDiscounts{client: client, key: key}
}

func (r *RedisDiscounts) Get(ctx context.Context, listingID string) (float64, error) {
	raw, err := r.client.HGet(ctx, r.key, listingID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("discounts: get %s: %w", listingID, err)
	}
	pct, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("discounts: parse %s: %w", listingID, err)
	}
	return pct, nil
}

func (r *RedisDiscounts) GetAll(ctx context.Context) (map[string]float64, error) {
	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("discounts: get all: %w", err)
	}
	out := make(map[string]float64, len(raw))
	for id, val := range raw {
		pct, err := strconv.ParseFloat(val, 64)
		if err != nil {
			continue
		}
		out[id] = pct
	}
	return out, nil
}

func (r *RedisDiscounts) Set(ctx context.Context, listingID string, percent float64) error {
	if err := r.client.HSet(ctx, r.key, listingID, strconv.FormatFloat(percent, 'f', -1, 64)).Err(); err != nil {
		return fmt.Errorf("discounts: set %s: %w", listingID, err)
	}
	return nil
}

// annotateDiscount fills DiscountPercent on a single listing, best effort:
// a failed lookup leaves the zero value in place.
func annotateDiscount(ctx context.Context, ds DiscountStore, l *Listing) {
	if ds == nil || l == nil {
		return
	}
	if pct, err := ds.Get(ctx, l.ID); err == nil {
		l.DiscountPercent = pct
	}
}

// annotateDiscounts fills DiscountPercent across a slice with one bulk read.
func annotateDiscounts(ctx context.Context, ds DiscountStore, listings []Listing) {
	if ds == nil || len(listings) == 0 {
		return
	}
	all, err := ds.GetAll(ctx)
	if err != nil {
		return
	}
	for i := range listings {
		if pct, ok := all[listings[i].ID]; ok {
			listings[i].DiscountPercent = pct
		}
	}
}
