// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache implements the generic TTL cache substrate (C12): a
// (compute_fn, key) -> value cache with RWMutex-guarded state and
// singleflight-deduplicated misses, plus heap-based hot-key tracking for
// warming frequently recalled entries.
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for a cache miss.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Options configures a Cache.
type Options struct {
	// MaxSize is the maximum number of entries before eviction runs.
	// Default: 1000.
	MaxSize int

	// TTL is how long an entry remains valid after being stored.
	// Default: 5 minutes.
	TTL time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{MaxSize: 1000, TTL: 5 * time.Minute}
}

type entry[V any] struct {
	value       V
	computedAt  time.Time
	insertOrder *list.Element
}

// Cache is a generic TTL cache with singleflight-deduplicated misses.
//
// Safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
	order   *list.List // front = most recently inserted
	flight  singleflight.Group
	opts    Options

	hits      int64
	misses    int64
	evictions int64

	hot *HotKeyTracker
}

// New builds a Cache with the given options.
func New[K comparable, V any](opts Options) *Cache[K, V] {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultOptions().MaxSize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions().TTL
	}
	return &Cache[K, V]{
		entries: make(map[K]*entry[V]),
		order:   list.New(),
		opts:    opts,
		hot:     NewHotKeyTracker(opts.MaxSize),
	}
}

// keyOrder is the insertion-order list value recording a key for eviction
// bookkeeping.
type keyOrder[K comparable] struct {
	key K
}

func (c *Cache[K, V]) isExpired(e *entry[V]) bool {
	if c.opts.TTL <= 0 {
		return false
	}
	return time.Since(e.computedAt) > c.opts.TTL
}

// peek returns a still-valid cached value without triggering computation.
func (c *Cache[K, V]) peek(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if c.isExpired(e) {
		c.mu.Lock()
		c.removeLocked(key)
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Get returns the cached value for key, computing and storing it via
// computeFn on a miss. Concurrent misses for the same key compute once;
// all callers observe the same result.
func (c *Cache[K, V]) Get(ctx context.Context, key K, computeFn ComputeFunc[V]) (V, error) {
	if v, ok := c.peek(key); ok {
		atomic.AddInt64(&c.hits, 1)
		c.hot.RecordAccess(anyKey(key))
		return v, nil
	}
	atomic.AddInt64(&c.misses, 1)

	flightKey := anyKey(key)
	result, err, _ := c.flight.Do(flightKey, func() (interface{}, error) {
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := computeFn(ctx)
		if err != nil {
			return v, err
		}
		c.put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	c.hot.RecordAccess(flightKey)
	return result.(V), nil
}

func (c *Cache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.value = value
		existing.computedAt = time.Now()
		c.order.MoveToFront(existing.insertOrder)
		return
	}

	c.evictIfNeededLocked()

	e := &entry[V]{value: value, computedAt: time.Now()}
	e.insertOrder = c.order.PushFront(keyOrder[K]{key: key})
	c.entries[key] = e
}

// Set writes value directly, bypassing computation.
func (c *Cache[K, V]) Set(key K, value V) {
	c.put(key, value)
}

// Invalidate removes a single key.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

func (c *Cache[K, V]) removeLocked(key K) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	c.order.Remove(e.insertOrder)
	delete(c.entries, key)
}

// evictIfNeededLocked implements spec.md §5's "Caches" eviction policy:
// remove expired entries first; if still over budget, evict a 10% head
// sample by insertion order. Must be called with the lock held.
func (c *Cache[K, V]) evictIfNeededLocked() {
	if len(c.entries) < c.opts.MaxSize {
		return
	}

	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		ko := elem.Value.(keyOrder[K])
		if e, ok := c.entries[ko.key]; ok && c.isExpired(e) {
			c.order.Remove(elem)
			delete(c.entries, ko.key)
			atomic.AddInt64(&c.evictions, 1)
		}
		elem = prev
	}

	if len(c.entries) < c.opts.MaxSize {
		return
	}

	sampleSize := len(c.entries) / 10
	if sampleSize < 1 {
		sampleSize = 1
	}
	for i := 0; i < sampleSize; i++ {
		elem := c.order.Back()
		if elem == nil {
			break
		}
		ko := elem.Value.(keyOrder[K])
		c.order.Remove(elem)
		delete(c.entries, ko.key)
		atomic.AddInt64(&c.evictions, 1)
	}
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*entry[V])
	c.order.Init()
}

// Len returns the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats reports cache hit/miss/eviction counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns the hit percentage, or 0 with no traffic.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Stats returns current counters.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
}

// HotKeys returns the top n most-accessed keys tracked by this cache.
func (c *Cache[K, V]) HotKeys(n int) []string {
	return c.hot.Top(n)
}

func anyKey[K comparable](key K) string {
	return fmt.Sprint(key)
}
