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

package types

// Cache is the store behind the Caching advice.
// Cache 缓存接口，Caching 增强点的存储
type Cache interface {
	// Set stores a value with an optional time-to-live such as "10m". An empty ttl never expires.
	Set(key string, value interface{}, ttl string) error
	// Get returns the stored value, nil if it does not exist or expired.
	Get(key string) interface{}
	// Has checks if a key exists and has not expired.
	Has(key string) bool
	// Delete removes a cache item by key.
	Delete(key string) error
	// DeleteByPrefix removes all cache items with the specified prefix.
	DeleteByPrefix(prefix string) error
}

// Pool is the goroutine pool interface used by the Async advice.
type Pool interface {
	//Submit 往协程池提交一个任务
	//如果协程池满返回错误
	Submit(task func()) error
	//Release 释放
	Release()
}
