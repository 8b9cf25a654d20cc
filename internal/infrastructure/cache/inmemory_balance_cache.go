package cache

import (
	"context"
	"sync"
	"time"

	appledger "github.com/finbooks/backend/internal/application/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// balanceKey identifies one cached balance within a tenant
type balanceKey struct {
	accountID uuid.UUID
	periodID  uuid.UUID
}

// balanceEntry holds a cached balance with its expiration
type balanceEntry struct {
	balance   decimal.Decimal
	expiresAt time.Time
}

// InMemoryBalanceCache implements BalanceCache using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryBalanceCache struct {
	mu        sync.RWMutex
	tenants   map[uuid.UUID]map[balanceKey]balanceEntry
	ttl       time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryBalanceCache creates a new in-memory balance cache
// It starts a background goroutine to clean up expired entries
func NewInMemoryBalanceCache() *InMemoryBalanceCache {
	cache := &InMemoryBalanceCache{
		tenants:  make(map[uuid.UUID]map[balanceKey]balanceEntry),
		ttl:      defaultBalanceTTL,
		stopChan: make(chan struct{}),
	}

	cache.wg.Add(1)
	go cache.cleanupLoop()

	return cache
}

// GetClosedBalance returns the cached closed-period balance, with a hit flag
func (c *InMemoryBalanceCache) GetClosedBalance(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (decimal.Decimal, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries, exists := c.tenants[tenantID]
	if !exists {
		return decimal.Zero, false, nil
	}

	e, exists := entries[balanceKey{accountID: accountID, periodID: periodID}]
	if !exists {
		return decimal.Zero, false, nil
	}
	if time.Now().After(e.expiresAt) {
		return decimal.Zero, false, nil
	}

	return e.balance, true, nil
}

// SetClosedBalance caches the closed-period balance for an account
func (c *InMemoryBalanceCache) SetClosedBalance(ctx context.Context, tenantID, accountID, periodID uuid.UUID, balance decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, exists := c.tenants[tenantID]
	if !exists {
		entries = make(map[balanceKey]balanceEntry)
		c.tenants[tenantID] = entries
	}

	entries[balanceKey{accountID: accountID, periodID: periodID}] = balanceEntry{
		balance:   balance,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

// InvalidateTenant drops all cached balances for a tenant
func (c *InMemoryBalanceCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.tenants, tenantID)
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (c *InMemoryBalanceCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryBalanceCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries from the cache
func (c *InMemoryBalanceCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for tenantID, entries := range c.tenants {
		for key, e := range entries {
			if now.After(e.expiresAt) {
				delete(entries, key)
			}
		}
		if len(entries) == 0 {
			delete(c.tenants, tenantID)
		}
	}
}

// Size returns the number of cached balances (for testing/monitoring)
func (c *InMemoryBalanceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, entries := range c.tenants {
		total += len(entries)
	}
	return total
}

// Ensure InMemoryBalanceCache implements BalanceCache
var _ appledger.BalanceCache = (*InMemoryBalanceCache)(nil)
