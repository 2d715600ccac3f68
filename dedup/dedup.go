// Package dedup provides bounded-lifetime memory of already-processed event keys.
// It guards the event pipeline against at-least-once gateway redeliveries: a key, once
// marked, reads as seen until its TTL elapses. The test-and-mark is a single atomic
// step, so concurrent deliveries of the same event admit exactly one. Expiry is
// enforced both lazily on lookup and by a single shared sweep ticker per instance, so
// memory stays bounded even for keys that are marked once and never queried again.
package dedup

import (
	"sync"
	"time"

	"github.com/templeashkandi/raidwatch/telemetry"
)

// Deduplicator remembers string keys for a fixed TTL.
type Deduplicator struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
	ticker  *time.Ticker
	done    chan struct{}
	stopped bool
}

// Option customizes a Deduplicator.
type Option func(*Deduplicator)

// WithClock replaces the wall clock, letting tests simulate time without sleeping.
func WithClock(now func() time.Time) Option {
	return func(d *Deduplicator) { d.now = now }
}

// New creates a Deduplicator and starts its sweep goroutine. sweepInterval <= 0 disables
// the periodic sweep (lazy expiry on Seen still applies; used by tests).
func New(ttl, sweepInterval time.Duration, opts ...Option) *Deduplicator {
	d := &Deduplicator{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if sweepInterval > 0 {
		d.ticker = time.NewTicker(sweepInterval)
		go d.sweepLoop()
	}
	return d
}

// Seen tests and marks key under a single lock acquisition. It returns true when the
// key is already live; otherwise the key is inserted and Seen returns false. Of any
// number of concurrent callers racing on the same key, exactly one gets false. A live
// key keeps its original insertion time, so a key's lifetime is measured from first
// sight; an expired key starts a fresh lifetime.
func (d *Deduplicator) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if at, ok := d.seen[key]; ok && !d.expired(at, d.now()) {
		return true
	}
	d.seen[key] = d.now()
	telemetry.SetDedupEntries(len(d.seen))
	return false
}

// Len returns the number of entries currently held, expired or not.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Sweep removes every expired entry. Called periodically from the sweep goroutine;
// exported so tests can drive it with a simulated clock.
func (d *Deduplicator) Sweep() {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for key, at := range d.seen {
		if d.expired(at, now) {
			delete(d.seen, key)
		}
	}
	telemetry.SetDedupEntries(len(d.seen))
}

// Stop terminates the sweep goroutine. Entries remain queryable.
func (d *Deduplicator) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.ticker != nil {
		d.ticker.Stop()
	}
	close(d.done)
}

// expired is the single expiry predicate shared by Seen and Sweep, so the two
// mechanisms can never disagree about whether an entry is live.
func (d *Deduplicator) expired(insertedAt, now time.Time) bool {
	return now.Sub(insertedAt) > d.ttl
}

func (d *Deduplicator) sweepLoop() {
	for {
		select {
		case <-d.ticker.C:
			d.Sweep()
		case <-d.done:
			return
		}
	}
}
