// Package cache bounds calls to the external identity provider: verified
// identities are kept behind a one-way digest of the presenting token for a
// limited time.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"pulse/internal/identity"
)

// Clock abstracts time.Now for testability.
type Clock func() time.Time

// Cache maps a bearer token to a previously verified identity record.
// Implementations never return errors; a failed backend read is a miss.
type Cache interface {
	// Lookup returns the cached record for token, or false on miss/expiry.
	Lookup(ctx context.Context, token string) (*identity.Record, bool)

	// Store caches record under the token's digest.
	Store(ctx context.Context, token string, record *identity.Record)

	// Invalidate removes the token's entry unconditionally.
	Invalidate(ctx context.Context, token string)
}

// DigestKey derives the cache key from a token. The raw token never enters the
// key space; a 16-char SHA-256 hex prefix is enough to avoid storing bearer
// secrets verbatim while keeping collisions implausible at this cache size.
func DigestKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:16]
}

type entry struct {
	record   *identity.Record
	cachedAt time.Time
}

// Memory is the default single-process Cache. A single mutex serializes
// lookup/store/invalidate so the read-check-evict-write sequence cannot race.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	clock      Clock
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) MemoryOption {
	return func(c *Memory) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewMemory constructs an in-memory cache. Entries older than ttl are evicted
// lazily on read; once the entry count exceeds maxEntries, Store sweeps all
// expired entries inline. Sweep cost is linear in entry count, which is fine
// at this ceiling.
func NewMemory(ttl time.Duration, maxEntries int, opts ...MemoryOption) *Memory {
	c := &Memory{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Memory) Lookup(_ context.Context, token string) (*identity.Record, bool) {
	key := DigestKey(token)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock().Sub(e.cachedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.record, true
}

func (c *Memory) Store(_ context.Context, token string, record *identity.Record) {
	key := DigestKey(token)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{record: record, cachedAt: c.clock()}

	if len(c.entries) > c.maxEntries {
		c.sweepLocked()
	}
}

func (c *Memory) Invalidate(_ context.Context, token string) {
	key := DigestKey(token)

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len reports the current entry count.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweepLocked removes every expired entry. Caller must hold c.mu.
func (c *Memory) sweepLocked() {
	now := c.clock()
	for key, e := range c.entries {
		if now.Sub(e.cachedAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
}
