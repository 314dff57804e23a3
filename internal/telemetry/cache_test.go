package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheStoreAndGet(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	ctx := context.Background()

	if _, ok, err := cache.GetLiveStats(ctx, "s1"); err != nil || ok {
		t.Fatalf("expected miss on empty cache, ok=%v err=%v", ok, err)
	}

	if err := cache.StoreLiveStats(ctx, "s1", 42, 672, "Song A"); err != nil {
		t.Fatalf("StoreLiveStats: %v", err)
	}

	stats, ok, err := cache.GetLiveStats(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if stats.Listeners != 42 || stats.Bandwidth != 672 || stats.CurrentSong != "Song A" {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.UpdatedAt.IsZero() {
		t.Fatal("expected updatedAt stamp")
	}
}

func TestMemoryCacheExpiresStaleEntries(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	current := time.Now()
	cache.now = func() time.Time { return current }

	ctx := context.Background()
	if err := cache.StoreLiveStats(ctx, "s1", 10, 160, ""); err != nil {
		t.Fatalf("StoreLiveStats: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, ok, err := cache.GetLiveStats(ctx, "s1"); err != nil || ok {
		t.Fatalf("expected stale entry to be dropped, ok=%v err=%v", ok, err)
	}
}
