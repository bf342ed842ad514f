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

package aspect

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/rulego/aop/utils/cache"
	"github.com/rulego/aop/utils/json"
	"github.com/rulego/aop/utils/maps"
)

// CacheNamespace prefixes every key written by CachingAspect.
const CacheNamespace = "aop" + types.NamespaceSeparator + "cache"

var _ types.AroundAdvice = (*CachingAspect)(nil)

// CachingConfig configures CachingAspect.
type CachingConfig struct {
	// Ttl is the time-to-live of an entry such as "10m". Empty never expires.
	Ttl string
	// Evict is an optional cron spec such as "@every 1h" or "0 0 * * *"; every run clears the cache.
	Evict string
}

// cachedResult wraps a stored value so that a cached nil can be told apart from a miss
type cachedResult struct {
	value interface{}
}

// CachingAspect returns the stored result of a previous successful call with the same arguments.
// The key is the method key followed by the JSON array of the arguments; a context argument is
// not part of the key. Calls whose arguments cannot be encoded, and failed calls, are never cached.
//
// CachingAspect 缓存成功调用的返回值，相同参数的调用直接返回缓存结果，失败的调用不会被缓存。
type CachingAspect struct {
	Config CachingConfig
	cache  *cache.NamespaceCache
	// owned is the in-memory store created by NewCachingAspect, stopped by Stop
	owned  *cache.MemoryCache
	logger types.Logger
	cron   *cron.Cron
	lock   sync.Mutex
}

// NewCachingAspect stores results in config.Cache, or in a new in-memory cache when not configured.
func NewCachingAspect(config types.Config, ttl string) *CachingAspect {
	a := &CachingAspect{
		Config: CachingConfig{Ttl: ttl},
		logger: config.Logger,
	}
	if config.Cache != nil {
		a.cache = cache.NewNamespaceCache(config.Cache, CacheNamespace)
	} else {
		a.owned = cache.NewMemoryCache(time.Minute)
		a.cache = cache.NewNamespaceCache(a.owned, CacheNamespace)
	}
	return a
}

func NewCachingAdvisor(pointcut types.Pointcut, config types.Config, ttl string) *engine.DefaultPointcutAdvisor {
	return engine.NewPointcutAdvisor(pointcut, NewCachingAspect(config, ttl))
}

func (a *CachingAspect) Order() int {
	return 50
}

// Init decodes configuration into Config and schedules the eviction when Evict is set.
func (a *CachingAspect) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &a.Config); err != nil {
		return err
	}
	if config.Cache != nil {
		a.lock.Lock()
		if a.owned != nil {
			a.owned.StopGC()
			a.owned = nil
		}
		a.lock.Unlock()
		a.cache = cache.NewNamespaceCache(config.Cache, CacheNamespace)
	}
	if config.Logger != nil {
		a.logger = config.Logger
	}
	if a.Config.Evict != "" {
		return a.Schedule(a.Config.Evict)
	}
	return nil
}

// Schedule clears the cache on every run of the cron spec, replacing the previous schedule.
func (a *CachingAspect) Schedule(spec string) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.cron != nil {
		a.cron.Stop()
		a.cron = nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := a.Clear(); err != nil {
			types.Printf(a.logger, "cache eviction error: %s", err.Error())
		}
	}); err != nil {
		return err
	}
	c.Start()
	a.cron = c
	return nil
}

// Stop stops the scheduled eviction and the expiry collector of the in-memory store created by NewCachingAspect.
// Stop 停止定时清理以及内部缓存的过期回收协程
func (a *CachingAspect) Stop() {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.cron != nil {
		<-a.cron.Stop().Done()
		a.cron = nil
	}
	if a.owned != nil {
		a.owned.StopGC()
	}
}

func (a *CachingAspect) Around(inv types.Invocation) (interface{}, error) {
	if a.cache == nil {
		return nil, types.ErrCacheNotInitialized
	}
	key, err := CacheKey(inv.Method(), inv.Args())
	if err != nil {
		types.Printf(a.logger, "cache key of %s error: %s", inv.Method().Name, err.Error())
		return inv.Proceed()
	}
	if v := a.cache.Get(key); v != nil {
		if cached, ok := v.(cachedResult); ok {
			return cached.value, nil
		}
	}
	result, err := inv.Proceed()
	if err != nil {
		return result, err
	}
	if err := a.cache.Set(key, cachedResult{value: result}, a.Config.Ttl); err != nil {
		types.Printf(a.logger, "cache %s error: %s", key, err.Error())
	}
	return result, nil
}

// Evict removes the cached results of method.
func (a *CachingAspect) Evict(method *types.Method) error {
	return a.cache.DeleteByPrefix(types.MethodKey(method) + "(")
}

// Clear removes every cached result.
func (a *CachingAspect) Clear() error {
	return a.cache.Clear()
}

// CacheKey returns the key of a call, for example `*service.UserService#Get(["a",1])`.
// Context arguments are skipped.
func CacheKey(method *types.Method, args []interface{}) (string, error) {
	values := make([]interface{}, 0, len(args))
	for _, arg := range args {
		if _, ok := arg.(context.Context); ok {
			continue
		}
		values = append(values, arg)
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return types.MethodKey(method) + "(" + string(encoded) + ")", nil
}
