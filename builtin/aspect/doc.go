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

// Package aspect provides built-in advice for proxies created by the engine.
// Every aspect is an around advice (or a before advice) with a fixed Order, and can be bound to any
// pointcut with its New...Advisor constructor.
//
// Package aspect 提供内置的增强点，每个切面都有固定的执行顺序，可以通过 New...Advisor 绑定到任意切入点。
//
// Available Built-in Aspects:
// 可用的内置切面：
//
//   - ConcurrencyLimiterAspect: Limits the number of calls in flight
//     ConcurrencyLimiterAspect：限制并发调用数量
//
//   - CircuitBreakerAspect: Circuit breaker per method, backed by sony/gobreaker
//     CircuitBreakerAspect：基于 gobreaker 的方法级熔断器
//
//   - ValidatorAspect: Validates struct arguments with go-playground/validator and custom rules
//     ValidatorAspect：使用 validator 标签和自定义规则校验参数
//
//   - MetricsAspect: Counts calls and records their latency with prometheus
//     MetricsAspect：统计调用次数和耗时
//
//   - TracingAspect: Starts an OpenTelemetry span per call
//     TracingAspect：为每次调用创建 OpenTelemetry span
//
//   - RetryAspect: Runs the remaining chain again when it fails
//     RetryAspect：失败时重新执行剩余的调用链
//
//   - CachingAspect: Caches the results of successful calls
//     CachingAspect：缓存成功调用的返回值
//
//   - AsyncAspect: Runs void methods on a worker pool
//     AsyncAspect：在协程池中异步执行无返回值的方法
//
//   - DebugAspect: Reports the IN and OUT events of every call
//     DebugAspect：报告每次调用的 IN 和 OUT 事件
//
// Aspect Execution Order:
// 切面执行顺序：
//
// The smaller the order, the further outside the advice wraps the call:
// 顺序值越小，增强点越靠外层：
//  1. ConcurrencyLimiterAspect, CircuitBreakerAspect, ValidatorAspect (order: 10)
//  2. MetricsAspect (order: 20)
//  3. TracingAspect (order: 30)
//  4. RetryAspect (order: 40)
//  5. CachingAspect (order: 50)
//  6. AsyncAspect (order: 60)
//  7. DebugAspect (order: 900)
//
// Usage Examples:
// 使用示例：
//
//	config := types.NewConfig()
//	proxy, err := aop.NewProxy(&OrderService{},
//		aspect.NewConcurrencyLimiterAdvisor(nil, 100),
//		aspect.NewRetryAdvisor(engine.NameMatchPointcut("Fetch*"), 3, 10*time.Millisecond),
//		aspect.NewDebugAdvisor(nil, config),
//	)
package aspect
