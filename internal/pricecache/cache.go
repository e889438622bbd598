// Package pricecache holds the latest streamed mark price per symbol.
package pricecache

import (
	"sync"
	"time"
)

type entry struct {
	price     float64
	updatedAt time.Time
}

// Cache is a concurrent last-write-wins store of the most recent price per
// symbol. Writers are the ticker ingestion goroutines; readers are the
// monitor loop and HTTP handlers. There is no cross-symbol ordering
// guarantee.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Set records the latest price for a symbol.
func (c *Cache) Set(symbol string, price float64) {
	c.mu.Lock()
	c.entries[symbol] = entry{price: price, updatedAt: time.Now()}
	c.mu.Unlock()
}

// Get returns the latest price for a symbol, or false if no price has been
// received yet. Callers must treat a missing price as "skip", never as zero.
func (c *Cache) Get(symbol string) (float64, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return e.price, true
}

// GetMany returns the latest prices for the given symbols. Symbols without a
// cached price are absent from the result.
func (c *Cache) GetMany(symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	c.mu.RLock()
	for _, s := range symbols {
		if e, ok := c.entries[s]; ok {
			out[s] = e.price
		}
	}
	c.mu.RUnlock()
	return out
}

// Age returns how long ago the symbol's price was updated, or false if the
// symbol has never been seen.
func (c *Cache) Age(symbol string) (time.Duration, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return time.Since(e.updatedAt), true
}

// Len returns the number of symbols currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
