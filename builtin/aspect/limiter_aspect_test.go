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
	"sync"
	"testing"
	"time"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/test/assert"
)

func TestConcurrencyLimiterAspect(t *testing.T) {
	limiter := NewConcurrencyLimiterAspect(2)
	assert.Equal(t, 10, limiter.Order())
	assert.Equal(t, int64(2), limiter.Max)

	target := newItemService()
	proxy := newProxy(t, types.NewConfig(), target, NewConcurrencyLimiterAdvisor(nil, 0))
	advisor := proxy.Advisors()[0]
	limiter = advisor.Advice().(*ConcurrencyLimiterAspect)
	assert.Nil(t, limiter.Init(types.NewConfig(), types.Configuration{"max": 2}))
	assert.Equal(t, int64(2), limiter.Max)

	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := proxy.Invoke("Block", release)
			assert.Nil(t, err)
		}()
	}
	deadline := time.Now().Add(5 * time.Second)
	for limiter.Current() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, int64(2), limiter.Current())

	// the third call is rejected before reaching the target
	_, err := proxy.Invoke("Get", "a")
	assert.Equal(t, types.ErrConcurrencyLimitReached, err)
	assert.Equal(t, 2, target.Calls())

	close(release)
	wg.Wait()
	assert.Equal(t, int64(0), limiter.Current(), "Current count should be zero after all goroutines complete")

	_, err = proxy.Invoke("Get", "a")
	assert.Nil(t, err)
}

func TestConcurrencyLimiterReleaseOnPanic(t *testing.T) {
	limiter := NewConcurrencyLimiterAspect(1)
	proxy := newProxy(t, types.NewConfig(), newItemService(), NewConcurrencyLimiterAdvisor(nil, 1))
	limiter = proxy.Advisors()[0].Advice().(*ConcurrencyLimiterAspect)
	assert.Panics(t, func() {
		_, _ = proxy.Invoke("Explode")
	})
	assert.Equal(t, int64(0), limiter.Current())
	_, err := proxy.Invoke("Get", "a")
	assert.Nil(t, err)
}

func TestConcurrencyLimiterParallel(t *testing.T) {
	const maxConcurrent = 5
	limiter := NewConcurrencyLimiterAspect(maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	peak := int64(0)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.acquire() {
				mu.Lock()
				if c := limiter.Current(); c > peak {
					peak = c
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				limiter.release()
			}
		}()
	}
	wg.Wait()
	assert.True(t, peak <= maxConcurrent)
	assert.Equal(t, int64(0), limiter.Current())
}
