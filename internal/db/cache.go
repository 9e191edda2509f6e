package db

import (
	"sync"
	"time"

	"github.com/chalkline-data/edufinance.report/internal/timeutil"
)

// CachedExecutor memoizes query results for a fixed TTL. Entries are keyed by
// the exact query text, so two queries that differ in any byte never share a
// result. Errors are never cached; an expired entry is simply refetched on
// the next call.
type CachedExecutor struct {
	inner Executor
	ttl   time.Duration
	clock timeutil.Clock

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	table   *Table
	fetched time.Time
}

// NewCachedExecutor wraps inner with a TTL cache. A nil clock uses real time.
func NewCachedExecutor(inner Executor, ttl time.Duration, clock timeutil.Clock) *CachedExecutor {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &CachedExecutor{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

// Query returns the cached table for query while its entry is fresh,
// otherwise fetches through the inner executor and caches the new result.
// Callers must treat the returned table as read-only.
func (c *CachedExecutor) Query(query string) (*Table, error) {
	c.mu.Lock()
	if e, ok := c.entries[query]; ok && c.clock.Since(e.fetched) < c.ttl {
		c.mu.Unlock()
		return e.table, nil
	}
	delete(c.entries, query)
	c.mu.Unlock()

	table, err := c.inner.Query(query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[query] = cacheEntry{table: table, fetched: c.clock.Now()}
	c.mu.Unlock()

	return table, nil
}
