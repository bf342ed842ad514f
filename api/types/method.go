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
	"context"
	"fmt"
	"reflect"
	"strings"
)

var (
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
	contextType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	multiValueType = reflect.TypeOf([]interface{}{})
)

// Method describes a method exposed by a proxy.
// Method 代理暴露的方法描述
type Method struct {
	// Name is the method name.
	Name string
	// DeclaringType is the interface or concrete type that declares the method.
	// DeclaringType 声明该方法的接口或具体类型
	DeclaringType reflect.Type
	// Signature is the func type of the method without receiver.
	// Signature 不包含接收者的方法签名
	Signature reflect.Type
}

// NewMethod creates a method description. signature must be a func type without receiver.
func NewMethod(name string, declaringType reflect.Type, signature reflect.Type) *Method {
	return &Method{Name: name, DeclaringType: declaringType, Signature: signature}
}

// NumIn returns the number of parameters.
func (m *Method) NumIn() int {
	return m.Signature.NumIn()
}

// In returns the type of the i'th parameter.
func (m *Method) In(i int) reflect.Type {
	return m.Signature.In(i)
}

// IsVariadic reports whether the final parameter is variadic.
func (m *Method) IsVariadic() bool {
	return m.Signature.IsVariadic()
}

// ReturnsError reports whether the last result is an error.
// ReturnsError 最后一个返回值是否为 error
func (m *Method) ReturnsError() bool {
	n := m.Signature.NumOut()
	return n > 0 && m.Signature.Out(n-1) == errorType
}

// NumValues returns the number of results that are not the trailing error.
func (m *Method) NumValues() int {
	n := m.Signature.NumOut()
	if m.ReturnsError() {
		n--
	}
	return n
}

// IsVoid reports whether the method returns no value besides an optional error.
// IsVoid 除了可选的 error 之外没有返回值
func (m *Method) IsVoid() bool {
	return m.NumValues() == 0
}

// ReturnType returns the static type of the return value: nil for void methods,
// the result type for single-value methods and []interface{} for several values.
// ReturnType 返回值的静态类型：void 方法为 nil，单返回值为该类型，多返回值为 []interface{}
func (m *Method) ReturnType() reflect.Type {
	switch m.NumValues() {
	case 0:
		return nil
	case 1:
		return m.Signature.Out(0)
	default:
		return multiValueType
	}
}

// AcceptsContext reports whether the first parameter is a context.Context.
func (m *Method) AcceptsContext() bool {
	return m.Signature.NumIn() > 0 && m.Signature.In(0) == contextType
}

// String returns a readable signature such as "service.UserService.Get(string) (string, error)".
func (m *Method) String() string {
	var b strings.Builder
	if m.DeclaringType != nil {
		b.WriteString(strings.TrimPrefix(m.DeclaringType.String(), "*"))
		b.WriteString(".")
	}
	b.WriteString(m.Name)
	sig := m.Signature.String()
	b.WriteString(strings.TrimPrefix(sig, "func"))
	return b.String()
}

// Equal reports whether both describe the same method of the same declaring type.
func (m *Method) Equal(other *Method) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Name == other.Name && m.DeclaringType == other.DeclaringType && m.Signature == other.Signature
}

// JoinPoint is a read-only view of one method call.
// JoinPoint 连接点，一次方法调用的只读视图
type JoinPoint interface {
	// Proxy returns the proxy the call was made on.
	Proxy() interface{}
	// Target returns the target instance serving the call.
	Target() interface{}
	// TargetType returns the type of the target.
	TargetType() reflect.Type
	// Method returns the invoked method.
	Method() *Method
	// Args returns the current arguments. The slice must not be modified; use Invocation.SetArgs instead.
	Args() []interface{}
	// Context returns the first argument when it is a context.Context, otherwise context.Background().
	// Context 第一个参数为 context.Context 时返回该参数，否则返回 context.Background()
	Context() context.Context
}

// Invocation is the continuation handed to interceptors and around advice.
// Invocation 方法调用上下文，拦截器和环绕增强通过它继续执行调用链
type Invocation interface {
	JoinPoint
	// Proceed runs the next interceptor, or the real method when the chain is exhausted.
	// Repeated calls after the chain is exhausted invoke the real method again.
	// Proceed 执行下一个拦截器，如果已经到达链尾则执行真实方法
	Proceed() (interface{}, error)
	// ProceedWith replaces the arguments and proceeds.
	ProceedWith(args ...interface{}) (interface{}, error)
	// SetArgs replaces the arguments used by the rest of the chain.
	SetArgs(args ...interface{}) error
	// Clone returns an independent copy positioned at the same interceptor, used to run the remaining chain again.
	// Clone 复制一个位于相同拦截器位置的调用上下文，用于重新执行剩余的调用链
	Clone() Invocation
	// Hold keeps a non-static target from being released when the proxied call returns.
	// The target is released once the call returned and every returned func has been called.
	// Hold 延迟释放非静态目标对象，直到调用返回并且所有返回的函数都被调用
	Hold() (release func())
	// Attribute returns a user attribute shared by the interceptors of this call.
	Attribute(key string) (interface{}, bool)
	// SetAttribute stores a user attribute.
	SetAttribute(key string, value interface{})
}

// Advised is implemented by proxies created by the engine and exposes read-only introspection.
// Advised 由引擎创建的代理实现，提供只读的内省信息
type Advised interface {
	// ProxyId returns the unique id of the proxy.
	ProxyId() string
	// TargetType returns the ultimate (unproxied) target type.
	TargetType() reflect.Type
	// Advisors returns a copy of the advisors currently applied, in chain order.
	Advisors() []Advisor
	// IsFrozen reports whether the advisor list can no longer change.
	IsFrozen() bool
}

// TargetSource provides the target instance of each call.
// TargetSource 提供每次调用的目标对象
type TargetSource interface {
	TargetType() reflect.Type
	// IsStatic reports whether GetTarget always returns the same instance.
	IsStatic() bool
	GetTarget() (interface{}, error)
	ReleaseTarget(target interface{})
}

// MethodKey returns the cache key of a method of a given declaring type.
func MethodKey(m *Method) string {
	if m.DeclaringType == nil {
		return m.Name
	}
	return fmt.Sprintf("%s#%s", m.DeclaringType.String(), m.Name)
}
