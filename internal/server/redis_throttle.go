package server

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisThrottleConfig struct {
	Addr     string
	Username string
	Password string
	Timeout  time.Duration
}

// redisThrottle maintains fixed-window login counters in Redis so the budget
// is shared across replicas. A counter key expires with the window; the
// remaining TTL becomes the Retry-After hint once the limit is exhausted.
type redisThrottle struct {
	client redis.UniversalClient
}

func newRedisThrottle(cfg redisThrottleConfig) *redisThrottle {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.Addr},
		Username:     cfg.Username,
		Password:     cfg.Password,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   2,
	})
	return &redisThrottle{client: client}
}

func (s *redisThrottle) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if window < time.Second {
			window = time.Second
		}
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, err
		}
	}
	if count <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		return false, window, nil
	}
	return false, ttl, nil
}

func (s *redisThrottle) Close() error {
	return s.client.Close()
}
