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
	"time"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/rulego/aop/utils/maps"
)

var _ types.AroundAdvice = (*RetryAspect)(nil)

// RetryConfig configures RetryAspect.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// Backoff is the wait before the second attempt, doubled for each further attempt.
	Backoff time.Duration
	// MaxBackoff caps the wait. 0 means no cap.
	MaxBackoff time.Duration
}

// RetryAspect runs the rest of the chain again when it returns an error.
// Each attempt runs on a clone of the invocation, so inner advice is applied again.
// Waiting stops early when the context argument of the call is done.
//
// RetryAspect 调用链返回错误时重试，每次重试都在调用上下文的副本上重新执行剩余的调用链。
type RetryAspect struct {
	Config RetryConfig
	// RetryOn decides whether err is worth another attempt. nil retries every error
	// except configuration and invocation errors.
	RetryOn func(err error) bool
}

func NewRetryAspect(maxAttempts int, backoff time.Duration) *RetryAspect {
	return &RetryAspect{
		Config: RetryConfig{MaxAttempts: maxAttempts, Backoff: backoff},
	}
}

func NewRetryAdvisor(pointcut types.Pointcut, maxAttempts int, backoff time.Duration) *engine.DefaultPointcutAdvisor {
	return engine.NewPointcutAdvisor(pointcut, NewRetryAspect(maxAttempts, backoff))
}

func (a *RetryAspect) Order() int {
	return 40
}

// Init decodes configuration into Config, for example {"maxAttempts": 3, "backoff": "100ms"}.
func (a *RetryAspect) Init(_ types.Config, configuration types.Configuration) error {
	return maps.Map2Struct(configuration, &a.Config)
}

func (a *RetryAspect) Around(inv types.Invocation) (interface{}, error) {
	attempts := a.Config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := a.Config.Backoff
	var result interface{}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if !a.wait(inv, backoff) {
				return result, err
			}
			backoff = a.next(backoff)
		}
		result, err = inv.Clone().Proceed()
		if err == nil || !a.retryable(err) {
			return result, err
		}
	}
	return result, err
}

func (a *RetryAspect) retryable(err error) bool {
	if a.RetryOn != nil {
		return a.RetryOn(err)
	}
	return !types.IsConfigError(err) && !types.IsInvocationError(err)
}

// wait sleeps d, returning false when the call context is done first.
func (a *RetryAspect) wait(jp types.JoinPoint, d time.Duration) bool {
	ctx := jp.Context()
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *RetryAspect) next(d time.Duration) time.Duration {
	d *= 2
	if a.Config.MaxBackoff > 0 && d > a.Config.MaxBackoff {
		return a.Config.MaxBackoff
	}
	return d
}
