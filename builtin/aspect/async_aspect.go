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
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/rulego/aop/utils/pool"
	"github.com/rulego/aop/utils/runtime"
)

var _ types.AroundAdvice = (*AsyncAspect)(nil)

// AsyncAspect runs void methods in the background and returns immediately with a nil result.
// Methods with a return value proceed synchronously.
// Tasks run on Config.Pool when configured, otherwise on the shared pool.DefaultPool().
// A non-static target is released only after its background call completed.
// The error of a background call goes to OnError, or is logged.
//
// AsyncAspect 在后台执行无返回值的方法并立即返回。有返回值的方法同步执行。
// 配置了 Config.Pool 时使用该协程池，否则使用共享的默认协程池。
type AsyncAspect struct {
	pool   types.Pool
	logger types.Logger
	// OnError receives the errors of background calls
	OnError func(method *types.Method, err error)
}

func NewAsyncAspect(config types.Config) *AsyncAspect {
	p := config.Pool
	if p == nil {
		p = pool.DefaultPool()
	}
	return &AsyncAspect{pool: p, logger: config.Logger}
}

func NewAsyncAdvisor(pointcut types.Pointcut, config types.Config) *engine.DefaultPointcutAdvisor {
	return engine.NewPointcutAdvisor(pointcut, NewAsyncAspect(config))
}

func (a *AsyncAspect) Order() int {
	return 60
}

func (a *AsyncAspect) Around(inv types.Invocation) (interface{}, error) {
	if !inv.Method().IsVoid() {
		return inv.Proceed()
	}
	background := inv.Clone()
	release := inv.Hold()
	task := func() {
		defer release()
		defer func() {
			if e := recover(); e != nil {
				types.Printf(a.logger, "async %s panic: %v\n%s", background.Method().Name, e, runtime.Stack())
			}
		}()
		if _, err := background.Proceed(); err != nil {
			a.onError(background.Method(), err)
		}
	}
	if err := a.pool.Submit(task); err != nil {
		release()
		return nil, err
	}
	return nil, nil
}

func (a *AsyncAspect) onError(method *types.Method, err error) {
	if a.OnError != nil {
		a.OnError(method, err)
		return
	}
	types.Printf(a.logger, "async %s error: %s", method.Name, err.Error())
}
