package marketdata

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestDiscounts(t *testing.T) (*RedisDiscounts, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisDiscounts(client, ""), func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestRedisDiscountsRoundTrip(t *testing.T) {
	ds, cleanup := newTestDiscounts(t)
	defer cleanup()

	ctx := context.Background()
	if err := ds.Set(ctx, "car001", 12.5); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := ds.Get(ctx, "car001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != 12.5 {
		t.Fatalf("expected 12.5 got %v", got)
	}
}

func TestRedisDiscountsMissingIsZero(t *testing.T) {
	ds, cleanup := newTestDiscounts(t)
	defer cleanup()

	got, err := ds.Get(context.Background(), "never-set")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected zero discount got %v", got)
	}
}

func TestRedisDiscountsGetAll(t *testing.T) {
	ds, cleanup := newTestDiscounts(t)
	defer cleanup()

	ctx := context.Background()
	if err := ds.Set(ctx, "car001", 10); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := ds.Set(ctx, "acc001", 5); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	all, err := ds.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries got %d", len(all))
	}
	if all["car001"] != 10 || all["acc001"] != 5 {
		t.Fatalf("unexpected values: %v", all)
	}
}
