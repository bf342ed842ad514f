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

import (
	"time"
)

// OnDebugFunc receives the IN and OUT events of the Debug advice.
//   - proxyId: The ID of the proxy.
//   - flowType: The event type, either IN (before the method) or OUT (after the method).
//   - method: The invoked method.
//   - args: The arguments of the call.
//   - result: The return value, only set for OUT events.
//   - err: Error information, if any.
type OnDebugFunc func(proxyId string, flowType string, method *Method, args []interface{}, result interface{}, err error)

// Configuration is the free-form configuration of a builtin advice, decoded with mapstructure.
// Configuration 内置增强点的配置
type Configuration map[string]interface{}

// Config defines the configuration shared by the proxies of a factory.
// Config 代理工厂的配置
type Config struct {
	// OnDebug is a callback function for the Debug advice. If nil the advice writes to Logger.
	OnDebug OnDebugFunc
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Frozen makes the advisor list of every created proxy immutable.
	// Frozen 为 true 时代理创建后不能再增加或删除 Advisor
	Frozen bool
	// RecoverPanics converts panics of the target into *PanicError so that error advice can observe them.
	// RecoverPanics 把目标方法的 panic 转换为 *PanicError，使异常增强可以处理
	RecoverPanics bool
	// EagerInit builds the interceptor chain of every method when the proxy is created,
	// so that configuration errors surface before the first call.
	// EagerInit 创建代理时立即构建所有方法的拦截器链
	EagerInit bool
	// ScriptMaxExecutionTime is the maximum execution time for pointcut scripts, defaulting to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
	// Pool runs the asynchronous join points of the Async advice. If not configured, the shared
	// pool.DefaultPool() of utils/pool is used.
	// Pool 异步增强使用的协程池，未配置时使用 utils/pool 的共享协程池
	Pool Pool
	// Cache is the default store of the Caching advice.
	Cache Cache
	// Properties are global properties in key-value format, visible to pointcut scripts as `global`.
	Properties map[string]string
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		ScriptMaxExecutionTime: time.Millisecond * 2000,
		Logger:                 DefaultLogger(),
		Properties:             make(map[string]string),
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
