package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	cleanupInterval = time.Minute
	maxIdle         = 10 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter gates webhook deliveries with one token bucket per user.
// Safe for concurrent use; buckets for independent users never block
// each other beyond the map access.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
}

// New creates a limiter allowing perMinute sustained requests per user
// with the given burst capacity
func New(perMinute float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perMinute / 60.0),
		burst:   burst,
	}
}

func (l *Limiter) bucketFor(userID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[userID]
	if !exists {
		b = &bucket{
			limiter: rate.NewLimiter(l.limit, l.burst),
		}
		l.buckets[userID] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

// Allow reports whether the user may proceed, consuming one token if so
func (l *Limiter) Allow(userID string) bool {
	return l.bucketFor(userID).Allow()
}

// Remaining returns the user's currently available token count. A pure
// read: it neither creates a bucket nor refreshes lastSeen, so
// diagnostics polling cannot keep an idle bucket alive.
func (l *Limiter) Remaining(userID string) float64 {
	l.mu.Lock()
	b, exists := l.buckets[userID]
	l.mu.Unlock()

	if !exists {
		return float64(l.burst)
	}
	tokens := b.limiter.Tokens()
	if tokens < 0 {
		return 0
	}
	return tokens
}

// Users returns the number of live buckets
func (l *Limiter) Users() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Start runs the janitor loop that drops buckets for users not seen
// recently. Blocks until the context is cancelled.
func (l *Limiter) Start(ctx context.Context) {
	logger := log.With().Str("component", "rate_limiter").Logger()
	logger.Info().Msg("starting rate limiter janitor")

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down rate limiter janitor")
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, b := range l.buckets {
		if time.Since(b.lastSeen) > maxIdle {
			delete(l.buckets, userID)
		}
	}
}
