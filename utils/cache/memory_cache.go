/*
 * Copyright 2024 The AspectGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cache provides the in-memory types.Cache implementation used as the
// default chain cache.
package cache

import (
	"sync"
	"time"

	"github.com/aspectgo/aspectgo/api/types"
)

var _ types.Cache = (*MemoryCache)(nil)

// DefaultCache is a process-wide memory cache with a 5 minute GC interval.
var DefaultCache = NewMemoryCache(time.Minute * 5)

// MemoryCache is an in-memory key-value cache with optional per-item
// expiration. Expired items are collected by a lazily started GC loop.
type MemoryCache struct {
	items      map[string]item
	mu         sync.RWMutex
	stopGc     chan struct{}
	ticker     *time.Ticker
	gcInterval time.Duration
}

// item holds a cached value and its expiration as a Unix nano timestamp.
// A zero expiration means the item never expires.
type item struct {
	value      interface{}
	expiration int64
}

// NewMemoryCache creates a new MemoryCache instance. The GC loop is not
// started until the first expirable item is stored.
func NewMemoryCache(gcInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		items:      make(map[string]item),
		stopGc:     make(chan struct{}),
		gcInterval: time.Minute * 5,
	}
	if gcInterval > 0 {
		c.gcInterval = gcInterval
	}
	return c
}

// Set stores a key-value pair with an optional ttl duration string
// (e.g. "10m"). A zero or empty ttl means the item never expires.
func (c *MemoryCache) Set(key string, value interface{}, ttl string) error {
	var expiration int64
	var dur time.Duration
	var err error

	if ttl != "" {
		dur, err = time.ParseDuration(ttl)
		if err != nil {
			return err
		}
	}
	if dur > 0 {
		expiration = time.Now().Add(dur).UnixNano()
	}

	c.mu.Lock()
	c.items[key] = item{
		value:      value,
		expiration: expiration,
	}
	shouldStartGC := expiration > 0 && c.ticker == nil
	c.mu.Unlock()

	if shouldStartGC {
		c.StartGC()
	}
	return nil
}

// Get returns the value stored under key, or nil if absent or expired.
// Expired items are left for the GC loop to collect.
func (c *MemoryCache) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found {
		return nil
	}
	if it.expiration > 0 && time.Now().UnixNano() > it.expiration {
		return nil
	}
	return it.value
}

// Has reports whether key exists and has not expired.
func (c *MemoryCache) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found {
		return false
	}
	if it.expiration > 0 && time.Now().UnixNano() > it.expiration {
		return false
	}
	return true
}

// Delete removes the item stored under key.
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// DeleteByPrefix removes all items whose keys start with prefix.
func (c *MemoryCache) DeleteByPrefix(prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.items, k)
		}
	}
	return nil
}

// StartGC starts the background collection loop if it is not running yet.
func (c *MemoryCache) StartGC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker != nil {
		return
	}
	c.ticker = time.NewTicker(c.gcInterval)
	go c.gcLoop(c.ticker)
}

// StopGC stops the background collection loop.
func (c *MemoryCache) StopGC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	c.ticker = nil
	close(c.stopGc)
	c.stopGc = make(chan struct{})
}

func (c *MemoryCache) gcLoop(ticker *time.Ticker) {
	c.mu.RLock()
	stop := c.stopGc
	c.mu.RUnlock()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-stop:
			return
		}
	}
}

func (c *MemoryCache) deleteExpired() {
	now := time.Now().UnixNano()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.items {
		if v.expiration > 0 && now > v.expiration {
			delete(c.items, k)
		}
	}
}
