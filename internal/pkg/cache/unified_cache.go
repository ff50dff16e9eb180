// Package cache holds the generic TTL cache used for provider responses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Stats counts cache traffic.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// UnifiedCache is a TTL cache for any value type.
type UnifiedCache[T any] struct {
	mu     sync.RWMutex
	items  map[string]entry[T]
	ttl    time.Duration
	name   string
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

type entry[T any] struct {
	value   T
	expires time.Time
}

// NewUnifiedCache creates a cache whose entries live for ttl. A janitor
// goroutine evicts expired entries until Close is called.
func NewUnifiedCache[T any](ttl time.Duration, name string, logger *zap.Logger) *UnifiedCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &UnifiedCache[T]{
		items:  make(map[string]entry[T]),
		ttl:    ttl,
		name:   name,
		logger: logger,
		stop:   make(chan struct{}),
	}
	if ttl > 0 {
		go c.janitor(ttl / 2)
	}
	return c
}

// Set stores value under key.
func (c *UnifiedCache[T]) Set(key string, value T) {
	c.mu.Lock()
	c.items[key] = entry[T]{value: value, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	c.sets.Add(1)

	c.logger.Debug("Cache set", zap.String("cache", c.name), zap.String("key", key))
}

// Get returns the live value for key.
func (c *UnifiedCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	if !found || (c.ttl > 0 && time.Now().After(item.expires)) {
		c.misses.Add(1)
		var zero T
		return zero, false
	}
	c.hits.Add(1)
	return item.value, true
}

// Delete removes key.
func (c *UnifiedCache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *UnifiedCache[T]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry[T])
	c.mu.Unlock()
	c.logger.Info("Cache cleared", zap.String("cache", c.name))
}

// Stats returns the traffic counters.
func (c *UnifiedCache[T]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Sets: c.sets.Load()}
}

// Len returns the number of stored entries, expired or not.
func (c *UnifiedCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the janitor.
func (c *UnifiedCache[T]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *UnifiedCache[T]) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *UnifiedCache[T]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	evicted := 0
	for key, item := range c.items {
		if now.After(item.expires) {
			delete(c.items, key)
			evicted++
		}
	}
	if evicted > 0 {
		c.logger.Debug("Cache cleanup",
			zap.String("cache", c.name),
			zap.Int("expired_items", evicted),
			zap.Int("remaining_items", len(c.items)))
	}
}

// KeyBuilder builds stable cache keys from ordered components.
type KeyBuilder struct {
	components []keyPart
}

type keyPart struct {
	Name  string `json:"n"`
	Value any    `json:"v"`
}

// NewKeyBuilder starts an empty key.
func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{components: make([]keyPart, 0, 4)}
}

// Add appends a named component. Order matters.
func (b *KeyBuilder) Add(name string, value any) *KeyBuilder {
	b.components = append(b.components, keyPart{Name: name, Value: value})
	return b
}

// Build hashes the components into a hex key.
func (b *KeyBuilder) Build() (string, error) {
	raw, err := json.Marshal(b.components)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key components: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
