package webhook

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Response cache defaults per the ingestion design: entries are only
// relevant for the duplicate-delivery window, and the sweep is a
// backstop against unbounded growth, not the primary eviction path.
const (
	DefaultResponseTTL    = 5 * time.Second
	DefaultSweepThreshold = 1000
)

type cachedResponse struct {
	response Response
	storedAt time.Time
}

// ResponseCache serves cached success responses for duplicate webhook
// deliveries within a short TTL window. It is a best-effort fast path;
// store-level constraints remain the correctness guarantee. Safe for
// concurrent use.
type ResponseCache struct {
	mu             sync.RWMutex
	entries        map[string]cachedResponse
	ttl            time.Duration
	sweepThreshold int

	now func() time.Time
}

// NewResponseCache creates an empty response cache. Non-positive
// arguments fall back to the defaults.
func NewResponseCache(ttl time.Duration, sweepThreshold int) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultResponseTTL
	}
	if sweepThreshold <= 0 {
		sweepThreshold = DefaultSweepThreshold
	}
	return &ResponseCache{
		entries:        make(map[string]cachedResponse),
		ttl:            ttl,
		sweepThreshold: sweepThreshold,
		now:            time.Now,
	}
}

// Key derives the idempotency key for a request. Two deliveries with
// identical userId, action, symbol, price, quantity and timestamp are
// the same logical event; distinct trades sharing all six values
// within the TTL window collide by design.
func (c *ResponseCache) Key(req *Request) string {
	return strings.Join([]string{
		req.UserID,
		req.Action,
		req.Symbol,
		strconv.FormatFloat(req.Price, 'f', -1, 64),
		strconv.FormatFloat(req.Quantity, 'f', -1, 64),
		req.Timestamp,
	}, ":")
}

// Get returns the cached response for the key if it is younger than
// the TTL
func (c *ResponseCache) Get(key string) (Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.now().Sub(entry.storedAt) > c.ttl {
		return Response{}, false
	}
	return entry.response, true
}

// Put stores a success response under the key, then sweeps expired
// entries if the cache has grown past the threshold
func (c *ResponseCache) Put(key string, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cachedResponse{
		response: resp,
		storedAt: c.now(),
	}

	if len(c.entries) > c.sweepThreshold {
		cutoff := c.now().Add(-c.ttl)
		for k, entry := range c.entries {
			if entry.storedAt.Before(cutoff) {
				delete(c.entries, k)
			}
		}
	}
}

// Size returns the number of live entries, expired or not
func (c *ResponseCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTL returns the cache's duplicate-delivery window
func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}
