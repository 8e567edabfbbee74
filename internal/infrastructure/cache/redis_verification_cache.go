package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appbanking "github.com/hanainplan/backend/internal/application/banking"
	"github.com/hanainplan/backend/internal/infrastructure/config"
)

// verificationKeyPrefix namespaces verification entries in Redis
const verificationKeyPrefix = "banking:verify:"

// RedisVerificationCache caches remote account verification results in
// Redis. Suitable for distributed deployments where multiple instances
// share the cache. Contribution limit totals are never cached here.
type RedisVerificationCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisClient creates and pings a Redis client from configuration
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisVerificationCache creates a cache on an existing Redis client
func NewRedisVerificationCache(client *redis.Client, ttl time.Duration) *RedisVerificationCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisVerificationCache{
		client:    client,
		keyPrefix: verificationKeyPrefix,
		ttl:       ttl,
	}
}

// Get returns the cached verification result, or (nil, nil) on a miss
func (c *RedisVerificationCache) Get(ctx context.Context, accountNumber string) (*appbanking.VerificationResult, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+accountNumber).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read verification cache: %w", err)
	}

	var result appbanking.VerificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it
		return nil, nil
	}
	return &result, nil
}

// Set stores the verification result for the configured TTL
func (c *RedisVerificationCache) Set(ctx context.Context, result *appbanking.VerificationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode verification result: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+result.AccountNumber, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write verification cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisVerificationCache) Close() error {
	return c.client.Close()
}

// Ensure RedisVerificationCache implements VerificationCache
var _ appbanking.VerificationCache = (*RedisVerificationCache)(nil)
