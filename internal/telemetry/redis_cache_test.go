package telemetry

import (
	"context"
	"testing"
	"time"

	"radiowave/internal/testsupport/redisstub"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	stub, err := redisstub.Start(redisstub.Options{Password: "secret"})
	if err != nil {
		t.Fatalf("redisstub.Start: %v", err)
	}
	defer stub.Close()

	cache, err := NewRedisCache(RedisCacheConfig{
		Addr:     stub.Addr(),
		Password: "secret",
		TTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if err := cache.StoreLiveStats(ctx, "stream-1", 42, 672, "Night Drive"); err != nil {
		t.Fatalf("StoreLiveStats: %v", err)
	}

	stats, ok, err := cache.GetLiveStats(ctx, "stream-1")
	if err != nil {
		t.Fatalf("GetLiveStats: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if stats.Listeners != 42 || stats.Bandwidth != 672 || stats.CurrentSong != "Night Drive" {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if _, ok, err := cache.GetLiveStats(ctx, "stream-2"); err != nil || ok {
		t.Fatalf("expected clean miss for unknown stream, ok=%v err=%v", ok, err)
	}
}
