package telemetry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisTLSConfig controls TLS behaviour for Redis connections.
type RedisTLSConfig struct {
	CAFile             string
	CertFile           string
	KeyFile            string
	ServerName         string
	InsecureSkipVerify bool
}

// RedisCacheConfig configures the Redis-backed live stats cache.
type RedisCacheConfig struct {
	Addr         string
	Addrs        []string
	Username     string
	Password     string
	KeyPrefix    string
	TTL          time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MasterName   string
	TLS          RedisTLSConfig
}

type redisCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCache initialises a live stats cache backed by Redis. The caller is
// responsible for ensuring the Redis instance is reachable.
func NewRedisCache(cfg RedisCacheConfig) (Cache, error) {
	addrs := make([]string, 0, len(cfg.Addrs)+1)
	for _, addr := range cfg.Addrs {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	if addr := strings.TrimSpace(cfg.Addr); addr != "" {
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("redis addr is required")
	}
	keyPrefix := strings.TrimSpace(cfg.KeyPrefix)
	if keyPrefix == "" {
		keyPrefix = "radiowave:live"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	tlsConfig, err := buildTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		MasterName:   strings.TrimSpace(cfg.MasterName),
		Username:     strings.TrimSpace(cfg.Username),
		Password:     cfg.Password,
		TLSConfig:    tlsConfig,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   2,
	})
	return &redisCache{client: client, keyPrefix: keyPrefix, ttl: ttl}, nil
}

func (c *redisCache) key(streamID string) string {
	return c.keyPrefix + ":" + streamID
}

func (c *redisCache) StoreLiveStats(ctx context.Context, streamID string, listeners int, bandwidth float64, currentSong string) error {
	if strings.TrimSpace(streamID) == "" {
		return errors.New("streamID is required")
	}
	payload, err := json.Marshal(LiveStats{
		StreamID:    streamID,
		Listeners:   listeners,
		Bandwidth:   bandwidth,
		CurrentSong: currentSong,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal live stats: %w", err)
	}
	if err := c.client.Set(ctx, c.key(streamID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("store live stats: %w", err)
	}
	return nil
}

func (c *redisCache) GetLiveStats(ctx context.Context, streamID string) (LiveStats, bool, error) {
	payload, err := c.client.Get(ctx, c.key(streamID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return LiveStats{}, false, nil
	} else if err != nil {
		return LiveStats{}, false, fmt.Errorf("load live stats: %w", err)
	}
	var stats LiveStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return LiveStats{}, false, fmt.Errorf("decode live stats: %w", err)
	}
	return stats, true, nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

// Ping verifies the Redis connection.
func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func buildTLSConfig(cfg RedisTLSConfig) (*tls.Config, error) {
	if cfg.CAFile == "" && cfg.CertFile == "" && cfg.KeyFile == "" && !cfg.InsecureSkipVerify {
		return nil, nil
	}
	tlsCfg := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
	if cfg.ServerName != "" {
		tlsCfg.ServerName = cfg.ServerName
	}
	if cfg.CAFile != "" {
		caPath := filepath.Clean(cfg.CAFile)
		pemData, err := os.ReadFile(caPath)
		if err != nil {
			return nil, fmt.Errorf("read redis tls ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, fmt.Errorf("redis tls ca is invalid")
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.CertFile != "" || cfg.KeyFile != "" {
		certPath := filepath.Clean(cfg.CertFile)
		keyPath := filepath.Clean(cfg.KeyFile)
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, fmt.Errorf("load redis tls certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}
