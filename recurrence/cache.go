package recurrence

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"
)

// CacheEntry is a cached instance
type CacheEntry struct {
	Instance   *Instance
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// InstanceCache keeps constructed instances keyed by their rule text and
// options, so callers that rebuild the same recurrence on every request
// parse it once. Instances are immutable and may be shared freely.
type InstanceCache struct {
	entries         map[string]*CacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
	logger          *slog.Logger

	hits   int
	misses int
}

// CacheConfig holds configuration for the instance cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before eviction
	CleanupInterval time.Duration // How often to drop expired entries
	Logger          *slog.Logger
}

// DefaultCacheConfig provides sensible defaults
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewInstanceCache creates a cache and starts its cleanup goroutine. Call
// Close to stop it.
func NewInstanceCache(config CacheConfig) *InstanceCache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}
	if config.Logger == nil {
		config.Logger = discardLogger()
	}

	cache := &InstanceCache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
		logger:          config.Logger,
	}

	go cache.cleanupLoop()

	return cache
}

// cacheKey hashes everything that changes the constructed instance.
func cacheKey(text string, opts InstanceOptions) string {
	hasher := sha256.New()
	hasher.Write([]byte(text))
	hasher.Write([]byte{0})
	hasher.Write([]byte(opts.Timezone))
	hasher.Write([]byte{0})
	hasher.Write([]byte(strconv.Itoa(opts.MaxIterations)))

	if ref := opts.ReferenceEvent; ref != nil {
		hasher.Write([]byte(ref.StartsAt.UTC().Format(time.RFC3339Nano)))
		hasher.Write([]byte(strconv.Itoa(ref.DurationMinutes)))
		hasher.Write([]byte(ref.Kind.String()))
	}

	excluded := slices.Clone(opts.Exclude)
	slices.SortFunc(excluded, func(a, b time.Time) int { return a.Compare(b) })
	for _, ex := range excluded {
		hasher.Write([]byte(ex.UTC().Format(time.RFC3339Nano)))
	}

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get returns a live cached instance.
func (c *InstanceCache) Get(text string, opts InstanceOptions) (*Instance, bool) {
	key := cacheKey(text, opts)
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}
	if now.After(entry.ExpiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	entry.AccessedAt = now
	c.hits++
	return entry.Instance, true
}

// Set stores an instance.
func (c *InstanceCache) Set(text string, opts InstanceOptions, instance *Instance) {
	key := cacheKey(text, opts)
	now := time.Now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &CacheEntry{
		Instance:   instance,
		ExpiresAt:  now.Add(c.ttl),
		AccessedAt: now,
	}
	if len(c.entries) > c.maxEntries {
		c.cleanup(now)
	}
}

// GetOrParse returns the cached instance for text or parses and caches a new
// one. Parse errors are not cached.
func (c *InstanceCache) GetOrParse(text string, opts InstanceOptions) (*Instance, error) {
	if inst, ok := c.Get(text, opts); ok {
		return inst, nil
	}
	inst, err := ParseInstance(text, opts)
	if err != nil {
		return nil, err
	}
	c.Set(text, opts, inst)
	return inst, nil
}

// cleanup drops expired entries, then the least recently used ones while
// over the limit. Callers hold the write lock.
func (c *InstanceCache) cleanup(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	over := len(c.entries) - c.maxEntries
	if over <= 0 {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}
	byAccess := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		byAccess = append(byAccess, keyAccess{key: key, accessedAt: entry.AccessedAt})
	}
	slices.SortFunc(byAccess, func(a, b keyAccess) int { return a.accessedAt.Compare(b.accessedAt) })

	for _, ka := range byAccess[:over] {
		delete(c.entries, ka.key)
	}
	c.logger.Debug("evicted cached instances", "count", over, "remaining", len(c.entries))
}

func (c *InstanceCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup(time.Now())
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. It is safe to call
// more than once.
func (c *InstanceCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *InstanceCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := time.Now()
	expired := 0
	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expired++
		}
	}

	return CacheStats{
		TotalEntries:   len(c.entries),
		ExpiredEntries: expired,
		ActiveEntries:  len(c.entries) - expired,
		Hits:           c.hits,
		Misses:         c.misses,
	}
}

// CacheStats provides information about cache usage
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
	Hits           int
	Misses         int
}
