package cache

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "chatflow:"
	defaultTTL    = 60 * time.Second
)

// CacheModule provides caching services. When Redis is unreachable at
// startup the module degrades to a disabled cache instead of failing,
// since every caller treats a miss as "load from storage".
type CacheModule struct {
	cache  *Cache
	client *redis.Client

	redisURL string
	prefix   string
	ttl      time.Duration
}

// Compile-time interface checks.
var _ mono.Module = (*CacheModule)(nil)
var _ mono.HealthCheckableModule = (*CacheModule)(nil)

// NewModule creates a new CacheModule configured from REDIS_URL.
func NewModule() *CacheModule {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	return &CacheModule{
		redisURL: redisURL,
		prefix:   defaultPrefix,
		ttl:      defaultTTL,
	}
}

// Name returns the module name.
func (m *CacheModule) Name() string {
	return "cache"
}

// Start connects to Redis and creates the cache.
func (m *CacheModule) Start(ctx context.Context) error {
	opts, err := redis.ParseURL(m.redisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[cache] Redis unreachable at %s, caching disabled: %v", opts.Addr, err)
		client.Close()
		return nil
	}

	m.client = client
	m.cache = New(client, m.prefix, m.ttl)
	log.Printf("[cache] Connected to Redis at %s (prefix: %s, TTL: %s)", opts.Addr, m.prefix, m.ttl)
	return nil
}

// Stop closes the Redis connection.
func (m *CacheModule) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			log.Printf("[cache] Error closing Redis connection: %v", err)
			return fmt.Errorf("failed to close Redis connection: %w", err)
		}
	}
	log.Println("[cache] Module stopped")
	return nil
}

// Health reports the Redis connection state. A disabled cache is
// reported healthy because the application works without it.
func (m *CacheModule) Health(ctx context.Context) mono.HealthStatus {
	if m.cache == nil {
		return mono.HealthStatus{
			Healthy: true,
			Message: "caching disabled",
		}
	}

	if err := m.cache.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}

	stats := m.cache.GetStats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"hits":     stats.Hits,
			"misses":   stats.Misses,
			"hit_rate": stats.HitRate,
		},
	}
}

// GetCache returns the cache instance. May be nil when caching is
// disabled; the nil cache always misses.
func (m *CacheModule) GetCache() *Cache {
	return m.cache
}
