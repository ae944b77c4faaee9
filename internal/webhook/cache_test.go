package webhook

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDerivation(t *testing.T) {
	cache := NewResponseCache(0, 0)

	req := &Request{
		UserID:    "u1",
		Action:    ActionBuy,
		Symbol:    "AAPL",
		Price:     187.5,
		Quantity:  10,
		Timestamp: "2025-06-01T12:00:00Z",
	}
	assert.Equal(t, "u1:BUY:AAPL:187.5:10:2025-06-01T12:00:00Z", cache.Key(req))

	req.Timestamp = ""
	assert.Equal(t, "u1:BUY:AAPL:187.5:10:", cache.Key(req))
}

func TestKeyDistinguishesFields(t *testing.T) {
	cache := NewResponseCache(0, 0)
	base := Request{UserID: "u1", Action: ActionBuy, Symbol: "AAPL", Price: 100, Quantity: 1}

	other := base
	other.Price = 101
	assert.NotEqual(t, cache.Key(&base), cache.Key(&other))

	other = base
	other.Action = ActionSell
	assert.NotEqual(t, cache.Key(&base), cache.Key(&other))

	// The secret does not participate in the key
	other = base
	other.WebhookSecret = "different"
	assert.Equal(t, cache.Key(&base), cache.Key(&other))
}

func TestCacheHitWithinTTL(t *testing.T) {
	cache := NewResponseCache(5*time.Second, 1000)

	resp := Response{Success: true, TradeID: "TV_1", Message: "ok"}
	cache.Put("k1", resp)

	got, hit := cache.Get("k1")
	require.True(t, hit)
	assert.Equal(t, resp, got)

	_, hit = cache.Get("k2")
	assert.False(t, hit)
}

func TestCacheExpiryAfterTTL(t *testing.T) {
	cache := NewResponseCache(5*time.Second, 1000)

	now := time.Now()
	cache.now = func() time.Time { return now }
	cache.Put("k1", Response{Success: true})

	cache.now = func() time.Time { return now.Add(4999 * time.Millisecond) }
	_, hit := cache.Get("k1")
	assert.True(t, hit)

	cache.now = func() time.Time { return now.Add(5001 * time.Millisecond) }
	_, hit = cache.Get("k1")
	assert.False(t, hit)
}

func TestSweepRemovesOnlyExpiredEntries(t *testing.T) {
	cache := NewResponseCache(5*time.Second, 10)

	now := time.Now()
	cache.now = func() time.Time { return now }
	for i := 0; i < 10; i++ {
		cache.Put(fmt.Sprintf("old-%d", i), Response{Success: true})
	}
	require.Equal(t, 10, cache.Size())

	// Crossing the threshold triggers a sweep; the old entries are
	// past TTL by then and are dropped, the new one stays
	cache.now = func() time.Time { return now.Add(6 * time.Second) }
	cache.Put("fresh", Response{Success: true})

	assert.Equal(t, 1, cache.Size())
	_, hit := cache.Get("fresh")
	assert.True(t, hit)
}

func TestSweepKeepsEntriesWithinTTL(t *testing.T) {
	cache := NewResponseCache(5*time.Second, 10)

	now := time.Now()
	cache.now = func() time.Time { return now }
	for i := 0; i < 11; i++ {
		cache.Put(fmt.Sprintf("k-%d", i), Response{Success: true})
	}

	// All entries are young, so the sweep removes nothing
	assert.Equal(t, 11, cache.Size())
}
