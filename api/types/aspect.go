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
	"reflect"
)

// The interfaces in this file provide the AOP (Aspect Oriented Programming) contracts of the proxy engine.
//
//   - A Pointcut decides where an advice applies: a ClassFilter over the target type and a MethodMatcher over its methods.
//   - An Advisor binds one Advice to a Pointcut (or, for introductions, to a ClassFilter) together with ordering metadata.
//   - At call time every applicable advice is adapted to a MethodInterceptor and the interceptors run as a chain around the real method.
//
// 该文件中的接口提供代理引擎的 AOP(面向切面编程，Aspect Oriented Programming) 契约。
//
//   - Pointcut 决定增强点作用的位置：目标类型的 ClassFilter 和方法的 MethodMatcher。
//   - Advisor 把一个 Advice 绑定到 Pointcut(引入增强则绑定到 ClassFilter)，并携带排序元数据。
//   - 调用时每个适用的增强点都会被适配为 MethodInterceptor，这些拦截器以链的方式包裹真实方法执行。

// Ordered is implemented by advisors that declare a precedence.
// Ordered 由声明了优先级的 Advisor 实现
type Ordered interface {
	//Order returns the execution order, the smaller the value, the higher the priority
	//Order 返回执行顺序，值越小，优先级越高
	Order() int
}

// PriorityOrdered marks an advisor that wins ties against plain Ordered advisors with the same order value.
// PriorityOrdered 标记在相同顺序值下优先于普通 Ordered 的 Advisor
type PriorityOrdered interface {
	Ordered
	PriorityOrdered() bool
}

// AspectMetadata exposes the declaring aspect of an advisor and the position of the advice inside that aspect.
// AspectMetadata 提供 Advisor 所属切面的标识以及增强点在切面内的声明顺序
type AspectMetadata interface {
	AspectName() string
	DeclarationOrder() int
}

// ClassFilter is a predicate over the target type.
// ClassFilter 目标类型过滤器
type ClassFilter interface {
	MatchesType(t reflect.Type) bool
}

// MethodMatcher is a predicate over a method of the target type.
// MethodMatcher 方法匹配器
type MethodMatcher interface {
	// MatchesStatically checks the method signature. Runtime matchers must return a superset (true when undecided).
	// MatchesStatically 静态匹配方法签名。运行时匹配器无法判断时必须返回 true。
	MatchesStatically(m *Method, targetType reflect.Type) bool
	// IsRuntime reports whether MatchesDynamically has to be evaluated on every call.
	// IsRuntime 是否需要在每次调用时执行 MatchesDynamically
	IsRuntime() bool
	// MatchesDynamically checks the actual arguments of a call. Only called when IsRuntime returns true.
	// MatchesDynamically 根据实际参数匹配，仅当 IsRuntime 为 true 时调用
	MatchesDynamically(m *Method, targetType reflect.Type, args []interface{}) bool
}

// IntroductionAwareMethodMatcher is a MethodMatcher that takes introductions into account,
// for example to match methods only present because of an introduced interface.
// IntroductionAwareMethodMatcher 感知引入增强的方法匹配器
type IntroductionAwareMethodMatcher interface {
	MethodMatcher
	MatchesWithIntroductions(m *Method, targetType reflect.Type, hasIntroductions bool) bool
}

// Pointcut pairs a type filter with a method matcher.
// Pointcut 切入点，由类型过滤器和方法匹配器组成
type Pointcut interface {
	ClassFilter() ClassFilter
	MethodMatcher() MethodMatcher
}

// Advice is the marker interface of a behavior unit.
// The supported shapes are BeforeAdvice, AfterReturningAdvice, AfterThrowingAdvice, AfterAdvice, AroundAdvice and MethodInterceptor.
// Advice 增强点标记接口
type Advice interface{}

// BeforeAdvice runs before the join point. A returned error aborts the call: the method and all later advice are skipped.
// BeforeAdvice 前置增强。返回错误时中断调用，目标方法和后续增强都不会执行。
type BeforeAdvice interface {
	Before(jp JoinPoint) error
}

// AfterReturningAdvice runs after the join point returned without error.
// AfterReturningAdvice 返回后增强，仅在目标方法没有返回错误时执行
type AfterReturningAdvice interface {
	AfterReturning(jp JoinPoint, returnValue interface{}) error
}

// ReturningTyped is optionally implemented by an AfterReturningAdvice to restrict the return values it receives.
// A nil type or the empty interface type accepts any value.
// ReturningTyped 限定返回后增强接收的返回值类型，nil 或空接口类型表示任意类型
type ReturningTyped interface {
	ReturningType() reflect.Type
}

// AfterThrowingAdvice runs when the join point returned an error. The original error keeps propagating
// unless the advice returns a new one.
// AfterThrowingAdvice 异常增强。原始错误会继续向上传播，除非增强返回新的错误。
type AfterThrowingAdvice interface {
	AfterThrowing(jp JoinPoint, err error) error
}

// ThrowingTyped is optionally implemented by an AfterThrowingAdvice to restrict the errors it receives.
// ThrowingTyped 限定异常增强接收的错误类型
type ThrowingTyped interface {
	ThrowingType() reflect.Type
}

// AfterAdvice runs after the join point whatever its outcome (finally semantics).
// An error returned by the advice overrides the outcome of the call.
// AfterAdvice 最终增强，无论目标方法成功与否都会执行。增强返回的错误会覆盖调用结果。
type AfterAdvice interface {
	After(jp JoinPoint) error
}

// AroundAdvice fully controls the join point: it decides whether, when and how many times to proceed.
// AroundAdvice 环绕增强，决定是否、何时以及执行多少次目标方法
type AroundAdvice interface {
	Around(inv Invocation) (interface{}, error)
}

// MethodInterceptor is the uniform runtime unit every advice is adapted to.
// MethodInterceptor 运行时拦截器，所有增强点都会被适配为该接口
type MethodInterceptor interface {
	Invoke(inv Invocation) (interface{}, error)
}

// BeforeFunc is a function adapter for BeforeAdvice.
type BeforeFunc func(jp JoinPoint) error

func (f BeforeFunc) Before(jp JoinPoint) error {
	return f(jp)
}

// AfterReturningFunc is a function adapter for AfterReturningAdvice, accepting every return value.
type AfterReturningFunc func(jp JoinPoint, returnValue interface{}) error

func (f AfterReturningFunc) AfterReturning(jp JoinPoint, returnValue interface{}) error {
	return f(jp, returnValue)
}

// AfterThrowingFunc is a function adapter for AfterThrowingAdvice, receiving every error.
type AfterThrowingFunc func(jp JoinPoint, err error) error

func (f AfterThrowingFunc) AfterThrowing(jp JoinPoint, err error) error {
	return f(jp, err)
}

// AfterFunc is a function adapter for AfterAdvice.
type AfterFunc func(jp JoinPoint) error

func (f AfterFunc) After(jp JoinPoint) error {
	return f(jp)
}

// AroundFunc is a function adapter for AroundAdvice.
type AroundFunc func(inv Invocation) (interface{}, error)

func (f AroundFunc) Around(inv Invocation) (interface{}, error) {
	return f(inv)
}

// MethodInterceptorFunc is a function adapter for MethodInterceptor.
type MethodInterceptorFunc func(inv Invocation) (interface{}, error)

func (f MethodInterceptorFunc) Invoke(inv Invocation) (interface{}, error) {
	return f(inv)
}

// Advisor holds an advice. It is either a PointcutAdvisor or an IntroductionAdvisor.
// Advisor 持有一个增强点，分为切入点 Advisor 和引入 Advisor
type Advisor interface {
	Advice() Advice
}

// PointcutAdvisor is an advisor driven by a pointcut.
// PointcutAdvisor 由切入点驱动的 Advisor
type PointcutAdvisor interface {
	Advisor
	Pointcut() Pointcut
}

// IntroductionAdvisor adds interfaces to every type accepted by its class filter.
// Its advice must be an IntroductionInterceptor.
// IntroductionAdvisor 为匹配的类型引入新的接口，其增强点必须是 IntroductionInterceptor
type IntroductionAdvisor interface {
	Advisor
	ClassFilter() ClassFilter
	// Interfaces returns the introduced interface types.
	Interfaces() []reflect.Type
	// ValidateInterfaces checks that the advice is able to serve every introduced interface.
	ValidateInterfaces() error
}

// IntroductionInterceptor serves the methods of introduced interfaces and proceeds for all other methods.
// IntroductionInterceptor 处理引入接口的方法，其它方法继续执行调用链
type IntroductionInterceptor interface {
	MethodInterceptor
	ImplementsInterface(iface reflect.Type) bool
}
