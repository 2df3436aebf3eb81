package reporting

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheBumpOrphansOldKeys(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, keyReport(PeriodDay, "2025-09-14_2025-09-14", "-"))
	if err != nil {
		t.Fatalf("build key: %v", err)
	}
	if err := cache.SetJSON(ctx, key, map[string]int{"v": 1}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got map[string]int
	hit, err := cache.GetJSON(ctx, key, &got)
	if err != nil || !hit {
		t.Fatalf("get: hit=%v err=%v", hit, err)
	}

	if err := cache.Bump(ctx); err != nil {
		t.Fatalf("bump: %v", err)
	}
	// The same logical key now resolves to a fresh versioned key.
	bumpedKey, err := cache.BuildKey(ctx, keyReport(PeriodDay, "2025-09-14_2025-09-14", "-"))
	if err != nil {
		t.Fatalf("build key after bump: %v", err)
	}
	if bumpedKey == key {
		t.Fatal("bump did not change the versioned key")
	}
	hit, err = cache.GetJSON(ctx, bumpedKey, &got)
	if err != nil {
		t.Fatalf("get after bump: %v", err)
	}
	if hit {
		t.Fatal("value survived a version bump")
	}
}

func TestCacheFetchJSONLoadsOnce(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) (interface{}, error) {
		loads++
		return []string{"2025-09-14"}, nil
	}

	key, err := cache.BuildKey(ctx, keyAvailability("-"))
	if err != nil {
		t.Fatalf("build key: %v", err)
	}
	var dates []string
	if err := cache.FetchJSON(ctx, key, &dates, loader); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := cache.FetchJSON(ctx, key, &dates, loader); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if loads != 1 {
		t.Fatalf("loader ran %d times, want 1", loads)
	}
	if len(dates) != 1 || dates[0] != "2025-09-14" {
		t.Fatalf("dates = %v", dates)
	}
}

func TestCacheNilDegradesToPassthrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	// All operations succeed without a backing client; loads go straight
	// to the loader.
	if err := cache.Bump(ctx); err != nil {
		t.Fatalf("bump: %v", err)
	}
	var dates []string
	err := cache.FetchJSON(ctx, "any", &dates, func(ctx context.Context) (interface{}, error) {
		return []string{"2025-09-14"}, nil
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(dates) != 1 {
		t.Fatalf("dates = %v", dates)
	}
}

func TestCacheKeyTokens(t *testing.T) {
	if got := barberToken(nil); got != "-" {
		t.Fatalf("nil barber token = %q", got)
	}
	key := keyReport(PeriodWeek, "2025-09-08_2025-09-14", "-")
	if key != "reports:window:week:2025-09-08_2025-09-14:-" {
		t.Fatalf("report key = %q", key)
	}
}
