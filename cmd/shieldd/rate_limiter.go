// rate_limiter.go - Per-client token buckets for the prove endpoint.
package main

import (
	"sync"
	"time"
)

const (
	// bucketMaxIdle is how long an untouched bucket survives before the
	// next sweep drops it.
	bucketMaxIdle = 10 * time.Minute

	// bucketSweepEvery spaces the sweeps piggybacked on Allow.
	bucketSweepEvery = time.Minute
)

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// clientLimiter rate limits expensive requests per client key (remote IP).
// Each client gets a token bucket of the configured burst size refilled at a
// fixed per-second rate.
type clientLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	burst     float64
	perSecond float64
	now       func() time.Time
	lastSweep time.Time
}

func newClientLimiter(burst, perSecond int) *clientLimiter {
	l := &clientLimiter{
		buckets:   make(map[string]*bucket),
		burst:     float64(burst),
		perSecond: float64(perSecond),
		now:       time.Now,
	}
	l.lastSweep = l.now()
	return l
}

// Allow consumes one token for the client, creating a full bucket on first
// sight. Returns false when the bucket is empty.
func (l *clientLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[client]
	if !ok {
		b = &bucket{tokens: l.burst, lastRefill: now}
		l.buckets[client] = b
	}

	b.tokens += now.Sub(b.lastRefill).Seconds() * l.perSecond
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastRefill = now

	// Sweep idle buckets as a side effect of traffic so the map stays
	// bounded without a background goroutine.
	if now.Sub(l.lastSweep) >= bucketSweepEvery {
		l.pruneLocked(now.Add(-bucketMaxIdle))
		l.lastSweep = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Prune drops buckets idle longer than maxIdle, bounding memory on churny
// client populations. Allow sweeps on its own; Prune forces one.
func (l *clientLimiter) Prune(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.now().Add(-maxIdle))
}

func (l *clientLimiter) pruneLocked(cutoff time.Time) {
	for k, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
}
