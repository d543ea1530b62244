// Package cache keeps parsed call groups per document, guarded by a content
// fingerprint so unchanged text is never parsed twice.
package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	phphints "github.com/php-hints/phphints"
)

// Defaults mirror the editor extension this cache serves.
const (
	DefaultTTL           = 600 * time.Second
	DefaultCheckInterval = 60 * time.Second
	DefaultCapacity      = 512
)

type entry struct {
	fingerprint uint64
	length      int
	groups      []phphints.CallGroup
	expires     time.Time
}

// Cache maps document ids to their last parsed call groups. It is safe for
// concurrent use.
type Cache struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, *entry]
	ttl      time.Duration
	interval time.Duration
	capacity int
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long an entry lives without being read.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCheckInterval sets how often Run sweeps expired entries.
func WithCheckInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCapacity bounds the number of documents held. The least recently used
// document is dropped first.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:      DefaultTTL,
		interval: DefaultCheckInterval,
		capacity: DefaultCapacity,
		now:      time.Now,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	entries, err := lru.New[string, *entry](c.capacity)
	if err != nil {
		// Only reachable with a non-positive size, which the options rule out.
		panic(err)
	}

	c.entries = entries

	return c
}

// Fingerprint hashes document text.
func Fingerprint(text string) uint64 {
	return xxh3.HashString(text)
}

// Set stores a copy of groups for id, replacing any previous entry and
// restarting its TTL.
func (c *Cache) Set(id, text string, groups []phphints.CallGroup) {
	e := &entry{
		fingerprint: Fingerprint(text),
		length:      len(text),
		groups:      phphints.CloneGroups(groups),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e.expires = c.now().Add(c.ttl)

	if c.entries.Add(id, e) {
		c.logger.Debug("cache full, evicted least recently used document", zap.Int("capacity", c.capacity))
	}
}

// Get returns a copy of the groups stored for id, or nil when there is no
// live entry. A hit restarts the TTL.
func (c *Cache) Get(id string) []phphints.CallGroup {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live(id)
	if !ok {
		return nil
	}

	e.expires = c.now().Add(c.ttl)

	return phphints.CloneGroups(e.groups)
}

// IsValid reports whether the entry for id was built from text. Lengths are
// compared before hashing. Equal-length collisions are accepted.
func (c *Cache) IsValid(id, text string) bool {
	c.mu.Lock()
	e, ok := c.live(id)
	c.mu.Unlock()

	if !ok || e.length != len(text) {
		return false
	}

	return e.fingerprint == Fingerprint(text)
}

// Delete drops the entry for id.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Remove(id)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0

	for _, id := range c.entries.Keys() {
		e, ok := c.entries.Peek(id)
		if ok && !now.Before(e.expires) {
			c.entries.Remove(id)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("swept expired documents", zap.Int("removed", removed))
	}

	return removed
}

// Run sweeps every check interval until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// live returns the entry for id if present and unexpired. Expired entries are
// removed. Callers hold mu.
func (c *Cache) live(id string) (*entry, bool) {
	e, ok := c.entries.Get(id)
	if !ok {
		return nil, false
	}

	if !c.now().Before(e.expires) {
		c.entries.Remove(id)

		return nil, false
	}

	return e, true
}
