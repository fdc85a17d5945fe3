package cache

import (
	"sync"
	"time"

	"hyprice/metrics"
	"hyprice/models"
	"hyprice/utils"
)

type entry struct {
	snap     models.Snapshot
	storedAt time.Time
	ttl      time.Duration
}

// PriceCache is a TTL-bounded store mapping token addresses to their
// last-fetched snapshot. Expired entries behave as absent on read and
// are physically removed by the background sweep, so memory stays
// bounded even for tokens nobody re-requests.
type PriceCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration

	sweepInterval time.Duration
	done          chan struct{}
	closeOnce     sync.Once

	now func() time.Time
}

func New(ttl, sweepInterval time.Duration) *PriceCache {
	return &PriceCache{
		entries:       make(map[string]entry),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		done:          make(chan struct{}),
		now:           time.Now,
	}
}

// Get returns the cached snapshot iff present and not expired. Expired
// entries are left in place for the sweeper; reads never mutate.
func (c *PriceCache) Get(key string) (models.Snapshot, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(e.storedAt.Add(e.ttl)) {
		metrics.IncrementCacheMisses()
		return models.Snapshot{}, false
	}
	metrics.IncrementCacheHits()
	return e.snap, true
}

// Put inserts or overwrites the snapshot for key with a fresh TTL.
func (c *PriceCache) Put(key string, snap models.Snapshot) {
	c.mu.Lock()
	c.entries[key] = entry{snap: snap, storedAt: c.now(), ttl: c.ttl}
	c.mu.Unlock()
}

// Sweep removes every expired entry and returns how many were purged.
func (c *PriceCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	purged := 0
	for key, e := range c.entries {
		if e.storedAt.Add(e.ttl).Before(now) {
			delete(c.entries, key)
			purged++
		}
	}
	return purged
}

// Len reports the number of entries currently held, expired or not.
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartSweeper runs Sweep on a fixed cadence until Close.
func (c *PriceCache) StartSweeper() {
	go func() {
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if purged := c.Sweep(); purged > 0 {
					utils.Logger.Debugw("Price cache swept", "purged", purged)
				}
			case <-c.done:
				return
			}
		}
	}()
}

// Close stops the background sweeper. Safe to call more than once.
func (c *PriceCache) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
