package tracker

import (
	"context"
	"fmt"
	"sync"

	"log/slog"

	"github.com/v01dsy/Azurewrath/azurewrath/database/repositories"
)

// StateCache holds the last committed price and RAP per item. It is
// loaded once at startup from the persisted history and then mutated
// only in memory, strictly after a cycle's writes have committed, so it
// never reflects uncommitted state.
type StateCache struct {
	mu     sync.RWMutex
	prices map[int64]int64
	raps   map[int64]int64
}

func NewStateCache() *StateCache {
	return &StateCache{
		prices: make(map[int64]int64),
		raps:   make(map[int64]int64),
	}
}

// Load populates the cache with the newest non-null value on each axis.
// Price and RAP can go stale independently, so each axis gets its own
// latest-value query.
func (c *StateCache) Load(ctx context.Context, repo repositories.HistoryRepository) error {
	prices, err := repo.LatestPrices(ctx)
	if err != nil {
		return fmt.Errorf("failed to load price axis: %w", err)
	}

	raps, err := repo.LatestRAPs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rap axis: %w", err)
	}

	c.mu.Lock()
	c.prices = prices
	c.raps = raps
	c.mu.Unlock()

	slog.Info("State cache loaded",
		slog.String("type", "cycle"),
		slog.Int("price_entries", len(prices)),
		slog.Int("rap_entries", len(raps)))

	return nil
}

// Get returns the cached price and RAP for an item; nil means the axis
// has never been observed.
func (c *StateCache) Get(itemID int64) (price, rap *int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.prices[itemID]; ok {
		price = &p
	}
	if r, ok := c.raps[itemID]; ok {
		rap = &r
	}
	return price, rap
}

// Update overwrites an axis when a fresh value is given; nil leaves the
// existing entry untouched.
func (c *StateCache) Update(itemID int64, price, rap *int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if price != nil {
		c.prices[itemID] = *price
	}
	if rap != nil {
		c.raps[itemID] = *rap
	}
}

// ApplyResults folds a committed cycle's results into the cache.
func (c *StateCache) ApplyResults(results []Result) {
	for i := range results {
		rap := results[i].RAP
		c.Update(results[i].ItemID, results[i].Price, &rap)
	}
}

// Len reports how many items have at least one cached axis.
func (c *StateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[int64]struct{}, len(c.raps))
	for id := range c.raps {
		seen[id] = struct{}{}
	}
	for id := range c.prices {
		seen[id] = struct{}{}
	}
	return len(seen)
}
