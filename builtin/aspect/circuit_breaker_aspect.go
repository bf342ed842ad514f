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
	"errors"
	"sync"
	"time"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/rulego/aop/utils/maps"
	"github.com/sony/gobreaker"
)

var _ types.AroundAdvice = (*CircuitBreakerAspect)(nil)

// CircuitBreakerConfig configures the breaker of each method.
type CircuitBreakerConfig struct {
	// MaxRequests is the number of calls allowed in the half-open state.
	MaxRequests uint32
	// Interval is the cyclic period of the closed state to clear the counts. 0 never clears them.
	Interval time.Duration
	// Timeout is the period of the open state, after which the breaker becomes half-open.
	Timeout time.Duration
	// MinRequests is the number of calls needed before the breaker can trip.
	MinRequests uint32
	// FailureRatio trips the breaker when failures/requests reaches it.
	FailureRatio float64
}

// FallbackFunc serves a call rejected by an open breaker.
type FallbackFunc func(inv types.Invocation, err error) (interface{}, error)

// CircuitBreakerAspect keeps one circuit breaker per method. Once a method failed too often
// its calls are rejected with gobreaker.ErrOpenState (or served by Fallback) until Timeout elapses.
//
// CircuitBreakerAspect 每个方法一个熔断器。方法失败次数过多时熔断，
// 在 Timeout 时间内的调用直接返回 gobreaker.ErrOpenState，或者由 Fallback 处理。
type CircuitBreakerAspect struct {
	Config CircuitBreakerConfig
	// Fallback is optional
	Fallback FallbackFunc
	logger   types.Logger
	breakers sync.Map
}

// NewCircuitBreakerAspect creates an aspect with the default settings: trip after 5 calls when
// at least 60% failed, stay open for 30 seconds.
func NewCircuitBreakerAspect(config types.Config) *CircuitBreakerAspect {
	return &CircuitBreakerAspect{
		Config: CircuitBreakerConfig{
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      30 * time.Second,
			MinRequests:  5,
			FailureRatio: 0.6,
		},
		logger: config.Logger,
	}
}

func NewCircuitBreakerAdvisor(pointcut types.Pointcut, config types.Config, fallback FallbackFunc) *engine.DefaultPointcutAdvisor {
	aspect := NewCircuitBreakerAspect(config)
	aspect.Fallback = fallback
	return engine.NewPointcutAdvisor(pointcut, aspect)
}

func (a *CircuitBreakerAspect) Order() int {
	return 10
}

// Init decodes configuration into Config, for example {"timeout": "10s", "failureRatio": 0.5}.
// Breakers created before are dropped.
func (a *CircuitBreakerAspect) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &a.Config); err != nil {
		return err
	}
	a.logger = config.Logger
	a.breakers.Range(func(key, _ interface{}) bool {
		a.breakers.Delete(key)
		return true
	})
	return nil
}

func (a *CircuitBreakerAspect) Around(inv types.Invocation) (interface{}, error) {
	cb := a.breaker(inv.Method())
	result, err := cb.Execute(func() (interface{}, error) {
		return inv.Proceed()
	})
	if err != nil && a.Fallback != nil && isBreakerError(err) {
		return a.Fallback(inv, err)
	}
	return result, err
}

// State returns the state of the breaker of method, closed if it was never called.
func (a *CircuitBreakerAspect) State(method *types.Method) gobreaker.State {
	if cb, ok := a.breakers.Load(types.MethodKey(method)); ok {
		return cb.(*gobreaker.CircuitBreaker).State()
	}
	return gobreaker.StateClosed
}

func (a *CircuitBreakerAspect) breaker(method *types.Method) *gobreaker.CircuitBreaker {
	key := types.MethodKey(method)
	if cb, ok := a.breakers.Load(key); ok {
		return cb.(*gobreaker.CircuitBreaker)
	}
	c := a.Config
	settings := gobreaker.Settings{
		Name:        key,
		MaxRequests: c.MaxRequests,
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < c.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			types.Printf(a.logger, "circuit breaker %s changed from %s to %s", name, from, to)
		},
	}
	actual, _ := a.breakers.LoadOrStore(key, gobreaker.NewCircuitBreaker(settings))
	return actual.(*gobreaker.CircuitBreaker)
}

func isBreakerError(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
