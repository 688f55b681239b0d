// Package cache holds the report caches behind port.Cache: an in-process
// TTL map and a Redis-backed variant shared between replicas.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-process cache with a fixed TTL.
type InMemory[T any] struct {
	mu     sync.RWMutex
	items  map[string]entry[T]
	ttl    time.Duration
	now    func() time.Time
	cancel context.CancelFunc
}

// New creates an in-memory cache and starts its sweeper. Close stops it.
func New[T any](ttl time.Duration) *InMemory[T] {
	ctx, cancel := context.WithCancel(context.Background())
	c := &InMemory[T]{
		items:  make(map[string]entry[T]),
		ttl:    ttl,
		now:    time.Now,
		cancel: cancel,
	}
	go c.sweep(ctx)
	return c
}

// Get returns the value for key unless it is absent or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{value: value, expiresAt: c.now().Add(c.ttl)}
}

func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len reports the number of stored entries, expired or not.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the sweeper.
func (c *InMemory[T]) Close() {
	c.cancel()
}

func (c *InMemory[T]) sweep(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *InMemory[T]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, v := range c.items {
		if now.After(v.expiresAt) {
			delete(c.items, k)
		}
	}
}
