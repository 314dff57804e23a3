package server

import (
	"context"
	"testing"
	"time"

	"radiowave/internal/testsupport/redisstub"
)

func TestRedisThrottleSharesBudget(t *testing.T) {
	stub, err := redisstub.Start(redisstub.Options{Password: "secret"})
	if err != nil {
		t.Fatalf("redisstub.Start: %v", err)
	}
	defer stub.Close()

	rl := newRateLimiter(RateLimitConfig{
		LoginLimit:    2,
		LoginWindow:   time.Minute,
		RedisAddr:     stub.Addr(),
		RedisPassword: "secret",
		RedisTimeout:  2 * time.Second,
	})
	defer rl.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		allowed, _, err := rl.AllowLogin(ctx, "203.0.113.9")
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("attempt %d: expected allow within budget", i)
		}
	}

	allowed, retryAfter, err := rl.AllowLogin(ctx, "203.0.113.9")
	if err != nil {
		t.Fatalf("over-budget attempt: %v", err)
	}
	if allowed {
		t.Fatal("expected deny after exhausting the login budget")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected a positive retry hint, got %v", retryAfter)
	}

	allowed, _, err = rl.AllowLogin(ctx, "198.51.100.7")
	if err != nil {
		t.Fatalf("other ip: %v", err)
	}
	if !allowed {
		t.Fatal("expected a different IP to keep its own budget")
	}
}

func TestRedisThrottleSurfacesConnectionErrors(t *testing.T) {
	stub, err := redisstub.Start(redisstub.Options{})
	if err != nil {
		t.Fatalf("redisstub.Start: %v", err)
	}
	addr := stub.Addr()
	stub.Close()

	rl := newRateLimiter(RateLimitConfig{
		LoginLimit:   1,
		LoginWindow:  time.Minute,
		RedisAddr:    addr,
		RedisTimeout: 500 * time.Millisecond,
	})
	defer rl.Close()

	if _, _, err := rl.AllowLogin(context.Background(), "203.0.113.9"); err == nil {
		t.Fatal("expected an error when the throttle store is unreachable")
	}
}
