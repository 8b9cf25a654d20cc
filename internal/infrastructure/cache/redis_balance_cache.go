package cache

import (
	"context"
	"fmt"
	"time"

	appledger "github.com/finbooks/backend/internal/application/ledger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// defaultBalanceTTL bounds how long a closed-period balance stays cached.
// Closed periods are immutable, so the TTL only guards against unbounded
// key growth, not staleness.
const defaultBalanceTTL = 24 * time.Hour

// RedisBalanceCache implements BalanceCache using Redis
// This is suitable for distributed deployments where multiple instances
// need to share cached closed-period balances
type RedisBalanceCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisBalanceCache creates a new Redis-based balance cache
func NewRedisBalanceCache(cfg RedisConfig) (*RedisBalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBalanceCache{
		client:    client,
		keyPrefix: "ledger:balance:",
		ttl:       defaultBalanceTTL,
	}, nil
}

// NewRedisBalanceCacheWithClient creates a cache with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisBalanceCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisBalanceCache {
	if keyPrefix == "" {
		keyPrefix = "ledger:balance:"
	}
	if ttl <= 0 {
		ttl = defaultBalanceTTL
	}
	return &RedisBalanceCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// balanceKey builds the cache key. The tenant segment comes first so that
// InvalidateTenant can match every key of one tenant with a single pattern.
func (c *RedisBalanceCache) balanceKey(tenantID, accountID, periodID uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s:%s", c.keyPrefix, tenantID, accountID, periodID)
}

// GetClosedBalance returns the cached closed-period balance, with a hit flag
func (c *RedisBalanceCache) GetClosedBalance(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, c.balanceKey(tenantID, accountID, periodID)).Result()
	if err == redis.Nil {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to read cached balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		// A corrupt value is treated as a miss so the caller recomputes it
		return decimal.Zero, false, nil
	}
	return balance, true, nil
}

// SetClosedBalance caches the closed-period balance for an account
func (c *RedisBalanceCache) SetClosedBalance(ctx context.Context, tenantID, accountID, periodID uuid.UUID, balance decimal.Decimal) error {
	key := c.balanceKey(tenantID, accountID, periodID)
	if err := c.client.Set(ctx, key, balance.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache balance: %w", err)
	}
	return nil
}

// InvalidateTenant drops all cached balances for a tenant.
// Called when a period close rolls balances forward.
func (c *RedisBalanceCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	pattern := c.keyPrefix + tenantID.String() + ":*"

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	keys := make([]string, 0, 64)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached balances: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached balances: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisBalanceCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisBalanceCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisBalanceCache implements BalanceCache
var _ appledger.BalanceCache = (*RedisBalanceCache)(nil)
