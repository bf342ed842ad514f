/*
 * Copyright 2025 The RuleGo Authors.
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

// Package cache provides the default store of the Caching advice.
//
// MemoryCache keeps results in memory with an optional time-to-live. Expired
// entries are invisible immediately and removed by a janitor goroutine that
// only runs while expirable entries exist. NamespaceCache isolates the keys of
// one proxy or method inside a shared cache.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/rulego/aop/api/types"
)

// MemoryCache is an in-memory cache implementation.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	gcInterval time.Duration
	// expirable counts the entries that carry a deadline
	expirable int
	stopGc    chan struct{}
}

type entry struct {
	value interface{}
	// deadline in unix nano, 0 never expires
	deadline int64
}

func (e entry) expired(now int64) bool {
	return e.deadline > 0 && now > e.deadline
}

// NewMemoryCache creates a new MemoryCache. gcInterval is the janitor period, 5 minutes when <= 0.
func NewMemoryCache(gcInterval time.Duration) *MemoryCache {
	if gcInterval <= 0 {
		gcInterval = time.Minute * 5
	}
	return &MemoryCache{
		items:      make(map[string]entry),
		gcInterval: gcInterval,
	}
}

// Set stores a value. ttl is a duration string such as "10m"; empty or zero never expires.
func (c *MemoryCache) Set(key string, value interface{}, ttl string) error {
	var deadline int64
	if ttl != "" {
		dur, err := time.ParseDuration(ttl)
		if err != nil {
			return err
		}
		if dur > 0 {
			deadline = time.Now().Add(dur).UnixNano()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.items[key]; ok && old.deadline > 0 {
		c.expirable--
	}
	c.items[key] = entry{value: value, deadline: deadline}
	if deadline > 0 {
		c.expirable++
		c.startGCLocked()
	}
	return nil
}

// Get returns the value of key, nil if it does not exist or expired.
func (c *MemoryCache) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || e.expired(time.Now().UnixNano()) {
		return nil
	}
	return e.value
}

// Has checks if a key exists and has not expired.
func (c *MemoryCache) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	return ok && !e.expired(time.Now().UnixNano())
}

func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
	return nil
}

// DeleteByPrefix removes all items whose key starts with prefix.
func (c *MemoryCache) DeleteByPrefix(prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			c.deleteLocked(k)
		}
	}
	return nil
}

// Len returns the number of stored items, expired ones not yet collected included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// StopGC stops the janitor goroutine. It is safe to call it several times.
func (c *MemoryCache) StopGC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopGCLocked()
}

// GCRunning reports whether the janitor goroutine is running.
func (c *MemoryCache) GCRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopGc != nil
}

func (c *MemoryCache) deleteLocked(key string) {
	if e, ok := c.items[key]; ok {
		if e.deadline > 0 {
			c.expirable--
		}
		delete(c.items, key)
	}
	if c.expirable == 0 {
		c.stopGCLocked()
	}
}

func (c *MemoryCache) startGCLocked() {
	if c.stopGc != nil {
		return
	}
	stop := make(chan struct{})
	c.stopGc = stop
	go func() {
		ticker := time.NewTicker(c.gcInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.deleteExpired()
			case <-stop:
				return
			}
		}
	}()
}

func (c *MemoryCache) stopGCLocked() {
	if c.stopGc != nil {
		close(c.stopGc)
		c.stopGc = nil
	}
}

// deleteExpired collects expired keys under the read lock, then removes those still expired.
func (c *MemoryCache) deleteExpired() {
	now := time.Now().UnixNano()
	c.mu.RLock()
	var keys []string
	for k, e := range c.items {
		if e.expired(now) {
			keys = append(keys, k)
		}
	}
	c.mu.RUnlock()
	if len(keys) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if e, ok := c.items[k]; ok && e.expired(now) {
			c.deleteLocked(k)
		}
	}
}

// NamespaceCache prefixes every key of an underlying cache with a namespace,
// isolating the entries of one proxy or method.
type NamespaceCache struct {
	Cache     types.Cache // 底层缓存实现
	Namespace string      // 命名空间前缀
}

// NewNamespaceCache returns nil when cache is nil.
func NewNamespaceCache(cache types.Cache, namespace string) *NamespaceCache {
	if cache == nil {
		return nil
	}
	if namespace != "" && !strings.HasSuffix(namespace, types.NamespaceSeparator) {
		namespace += types.NamespaceSeparator
	}
	return &NamespaceCache{Cache: cache, Namespace: namespace}
}

func (c *NamespaceCache) Set(key string, value interface{}, ttl string) error {
	if c == nil || c.Cache == nil {
		return types.ErrCacheNotInitialized
	}
	return c.Cache.Set(c.Namespace+key, value, ttl)
}

func (c *NamespaceCache) Get(key string) interface{} {
	if c == nil || c.Cache == nil {
		return nil
	}
	return c.Cache.Get(c.Namespace + key)
}

func (c *NamespaceCache) Has(key string) bool {
	if c == nil || c.Cache == nil {
		return false
	}
	return c.Cache.Has(c.Namespace + key)
}

func (c *NamespaceCache) Delete(key string) error {
	if c == nil || c.Cache == nil {
		return types.ErrCacheNotInitialized
	}
	return c.Cache.Delete(c.Namespace + key)
}

func (c *NamespaceCache) DeleteByPrefix(prefix string) error {
	if c == nil || c.Cache == nil {
		return types.ErrCacheNotInitialized
	}
	return c.Cache.DeleteByPrefix(c.Namespace + prefix)
}

// Clear removes every entry of the namespace.
func (c *NamespaceCache) Clear() error {
	return c.DeleteByPrefix("")
}

var _ types.Cache = (*NamespaceCache)(nil)
var _ types.Cache = (*MemoryCache)(nil)
