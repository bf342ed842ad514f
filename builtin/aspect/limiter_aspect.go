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
	"sync/atomic"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/rulego/aop/utils/maps"
)

var _ types.AroundAdvice = (*ConcurrencyLimiterAspect)(nil)

// ConcurrencyLimiterAspect limits the number of concurrent calls of the matched methods.
// Calls over the limit fail with types.ErrConcurrencyLimitReached without reaching the target.
//
// ConcurrencyLimiterAspect 限制匹配方法的并发调用数量，
// 超过限制的调用返回 types.ErrConcurrencyLimitReached，不会执行目标方法。
//
// 功能特性：
//   - Compare-and-swap (CAS) for consistent state  比较并交换（CAS）确保状态一致性
//   - Automatic release when the call returns or panics  调用返回或 panic 时自动释放
//
// Usage:
// 使用方法：
//
//	// At most 100 calls of Fetch* in flight
//	// 最多 100 个 Fetch* 调用同时执行
//	advisor := aspect.NewConcurrencyLimiterAdvisor(engine.NameMatchPointcut("Fetch*"), 100)
type ConcurrencyLimiterAspect struct {
	Max          int64 // Maximum number of concurrent calls  最大并发调用数量
	currentCount int64 // Current number of concurrent calls  当前并发调用数量
}

// NewConcurrencyLimiterAspect creates a limiter allowing max concurrent calls.
func NewConcurrencyLimiterAspect(max int) *ConcurrencyLimiterAspect {
	return &ConcurrencyLimiterAspect{
		Max: int64(max),
	}
}

// NewConcurrencyLimiterAdvisor binds a new limiter to pointcut.
// All the methods matched by the pointcut share the same limit.
func NewConcurrencyLimiterAdvisor(pointcut types.Pointcut, max int) *engine.DefaultPointcutAdvisor {
	return engine.NewPointcutAdvisor(pointcut, NewConcurrencyLimiterAspect(max))
}

// Order returns 10, making the limiter one of the outermost advice.
// Order 返回 10，限流在最外层执行
func (a *ConcurrencyLimiterAspect) Order() int {
	return 10
}

// Init reads the limit from configuration key "max".
func (a *ConcurrencyLimiterAspect) Init(_ types.Config, configuration types.Configuration) error {
	var c struct {
		Max int64
	}
	if err := maps.Map2Struct(configuration, &c); err != nil {
		return err
	}
	if c.Max > 0 {
		a.Max = c.Max
	}
	return nil
}

func (a *ConcurrencyLimiterAspect) Around(inv types.Invocation) (interface{}, error) {
	if !a.acquire() {
		return nil, types.ErrConcurrencyLimitReached
	}
	defer a.release()
	return inv.Proceed()
}

// Current returns the number of calls in flight.
func (a *ConcurrencyLimiterAspect) Current() int64 {
	return atomic.LoadInt64(&a.currentCount)
}

func (a *ConcurrencyLimiterAspect) acquire() bool {
	// 使用原子操作确保检查和增加操作的原子性
	for {
		current := atomic.LoadInt64(&a.currentCount)
		if current >= a.Max {
			return false
		}
		if atomic.CompareAndSwapInt64(&a.currentCount, current, current+1) {
			return true
		}
		// 如果CAS失败，说明有其他goroutine修改了计数器，重试
	}
}

func (a *ConcurrencyLimiterAspect) release() {
	atomic.AddInt64(&a.currentCount, -1)
}
