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

package engine

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/runtime"
)

// MethodInvocation is the invocation context of one proxied call.
// It holds the interceptor chain and a cursor that only moves forward: every Proceed runs the
// interceptor at the cursor, or the real method once the chain is exhausted.
// A MethodInvocation must not be shared between goroutines.
//
// MethodInvocation 一次代理调用的上下文，持有拦截器链和只会前进的游标
type MethodInvocation struct {
	proxy         interface{}
	target        interface{}
	targetType    reflect.Type
	method        *types.Method
	args          []interface{}
	chain         []interface{}
	cursor        int
	attributes    map[string]interface{}
	recoverPanics bool
	// shared by clones
	lease *targetLease
}

// targetLease releases a non-static target when its reference count drops to zero
type targetLease struct {
	refs    int32
	release func()
}

func newTargetLease(release func()) *targetLease {
	return &targetLease{refs: 1, release: release}
}

func (l *targetLease) acquire() {
	atomic.AddInt32(&l.refs, 1)
}

func (l *targetLease) done() {
	if atomic.AddInt32(&l.refs, -1) == 0 {
		l.release()
	}
}

// NewMethodInvocation creates an invocation. chain units are types.MethodInterceptor or
// *InterceptorAndDynamicMethodMatcher.
func NewMethodInvocation(proxy, target interface{}, targetType reflect.Type, method *types.Method, args []interface{}, chain []interface{}) *MethodInvocation {
	if targetType == nil && target != nil {
		targetType = reflect.TypeOf(target)
	}
	return &MethodInvocation{
		proxy:      proxy,
		target:     target,
		targetType: targetType,
		method:     method,
		args:       args,
		chain:      chain,
	}
}

// RecoverPanics converts panics of the target into *types.PanicError.
func (mi *MethodInvocation) RecoverPanics(recoverPanics bool) *MethodInvocation {
	mi.recoverPanics = recoverPanics
	return mi
}

// Proceed runs the next interceptor, skipping dynamic units whose matcher declines the current
// arguments. When the chain is exhausted it calls the target method, again on every further call.
// Proceed 执行下一个拦截器，链执行完后调用目标方法
func (mi *MethodInvocation) Proceed() (interface{}, error) {
	if mi.cursor >= len(mi.chain) {
		return mi.invokeJoinPoint()
	}
	unit := mi.chain[mi.cursor]
	mi.cursor++
	switch u := unit.(type) {
	case *InterceptorAndDynamicMethodMatcher:
		if u.MethodMatcher.MatchesDynamically(mi.method, mi.targetType, mi.args) {
			return u.Interceptor.Invoke(mi)
		}
		return mi.Proceed()
	case types.MethodInterceptor:
		return u.Invoke(mi)
	default:
		return nil, &types.InvocationError{Method: mi.method.String(), Reason: fmt.Errorf("invalid interceptor chain unit %T", unit)}
	}
}

// ProceedWith replaces the arguments and proceeds.
func (mi *MethodInvocation) ProceedWith(args ...interface{}) (interface{}, error) {
	if err := mi.SetArgs(args...); err != nil {
		return nil, err
	}
	return mi.Proceed()
}

// SetArgs replaces the arguments. The count must match the method parameters.
func (mi *MethodInvocation) SetArgs(args ...interface{}) error {
	if len(args) != mi.method.NumIn() {
		return &types.InvocationError{
			Method: mi.method.String(),
			Reason: fmt.Errorf("want %d arguments, got %d", mi.method.NumIn(), len(args)),
		}
	}
	mi.args = append([]interface{}(nil), args...)
	return nil
}

// Clone returns a copy positioned at the same interceptor, with its own arguments and attributes.
func (mi *MethodInvocation) Clone() types.Invocation {
	clone := *mi
	clone.args = append([]interface{}(nil), mi.args...)
	if mi.attributes != nil {
		clone.attributes = make(map[string]interface{}, len(mi.attributes))
		for k, v := range mi.attributes {
			clone.attributes[k] = v
		}
	}
	return &clone
}

// Hold delays the release of a non-static target until the returned func is called.
// It is a no-op for static targets. Calling the returned func more than once has no further effect.
func (mi *MethodInvocation) Hold() func() {
	if mi.lease == nil {
		return func() {}
	}
	mi.lease.acquire()
	var once sync.Once
	return func() {
		once.Do(mi.lease.done)
	}
}

func (mi *MethodInvocation) Proxy() interface{} {
	return mi.proxy
}

func (mi *MethodInvocation) Target() interface{} {
	return mi.target
}

func (mi *MethodInvocation) TargetType() reflect.Type {
	return mi.targetType
}

func (mi *MethodInvocation) Method() *types.Method {
	return mi.method
}

func (mi *MethodInvocation) Args() []interface{} {
	return mi.args
}

// Context returns the first argument when it is a context.Context.
func (mi *MethodInvocation) Context() context.Context {
	if len(mi.args) > 0 {
		if ctx, ok := mi.args[0].(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

func (mi *MethodInvocation) Attribute(key string) (interface{}, bool) {
	v, ok := mi.attributes[key]
	return v, ok
}

func (mi *MethodInvocation) SetAttribute(key string, value interface{}) {
	if mi.attributes == nil {
		mi.attributes = make(map[string]interface{})
	}
	mi.attributes[key] = value
}

func (mi *MethodInvocation) invokeJoinPoint() (interface{}, error) {
	if mi.target == nil {
		return nil, &types.InvocationError{Method: mi.method.String(), Reason: types.ErrNilTarget}
	}
	return callMethod(reflect.ValueOf(mi.target).MethodByName(mi.method.Name), mi.method, mi.args, mi.recoverPanics)
}

// callMethod calls fn with args and converts its results. Failures to call are *types.InvocationError;
// the error returned by fn itself is passed through unchanged.
// callMethod 反射调用方法并转换返回值。无法调用时返回 *types.InvocationError，方法自身的错误原样返回
func callMethod(fn reflect.Value, m *types.Method, args []interface{}, recoverPanics bool) (result interface{}, err error) {
	if !fn.IsValid() {
		return nil, &types.InvocationError{Method: m.String(), Reason: types.ErrMethodNotFound}
	}
	in, convErr := convertArgs(fn.Type(), args)
	if convErr != nil {
		return nil, &types.InvocationError{Method: m.String(), Reason: convErr}
	}
	if recoverPanics {
		defer func() {
			if e := recover(); e != nil {
				result = nil
				err = &types.PanicError{Method: m.String(), Value: e, Stack: runtime.Stack()}
			}
		}()
	}
	var out []reflect.Value
	if fn.Type().IsVariadic() {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}
	return convertResults(fn.Type(), out)
}

// convertArgs checks arity and assignability. nil is the zero value of nilable parameters.
// The final argument of a variadic method is the whole slice.
func convertArgs(ft reflect.Type, args []interface{}) ([]reflect.Value, error) {
	if len(args) != ft.NumIn() {
		return nil, fmt.Errorf("want %d arguments, got %d", ft.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		want := ft.In(i)
		if arg == nil {
			if !isNilable(want) {
				return nil, fmt.Errorf("argument %d: nil is not a valid %v", i, want)
			}
			in[i] = reflect.Zero(want)
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(want) {
			return nil, fmt.Errorf("argument %d: %v is not assignable to %v", i, v.Type(), want)
		}
		in[i] = v
	}
	return in, nil
}

// convertResults splits the trailing error and returns nil, the single value, or []interface{}.
func convertResults(ft reflect.Type, out []reflect.Value) (interface{}, error) {
	n := len(out)
	var err error
	if n > 0 && ft.Out(n-1) == errorType {
		if !out[n-1].IsNil() {
			err = out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		values := make([]interface{}, len(out))
		for i, v := range out {
			values[i] = v.Interface()
		}
		return values, err
	}
}

// splitResults converts a return value and error back into the results of the func type ft.
// A result that does not fit ft is reported through the error result, or panics when ft has none.
func splitResults(ft reflect.Type, m *types.Method, result interface{}, err error) []reflect.Value {
	n := ft.NumOut()
	out := make([]reflect.Value, n)
	valueCount := n
	hasErr := n > 0 && ft.Out(n-1) == errorType
	if hasErr {
		valueCount--
	}
	var values []interface{}
	switch valueCount {
	case 0:
	case 1:
		values = []interface{}{result}
	default:
		if multi, ok := result.([]interface{}); ok && len(multi) == valueCount {
			values = multi
		} else if result != nil || err == nil {
			err = &types.InvocationError{Method: m.String(), Reason: fmt.Errorf("want %d results, got %T", valueCount, result)}
		}
	}
	for i := 0; i < valueCount; i++ {
		want := ft.Out(i)
		out[i] = reflect.Zero(want)
		if i >= len(values) || values[i] == nil {
			continue
		}
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(want) {
			err = &types.InvocationError{Method: m.String(), Reason: fmt.Errorf("result %d: %v is not assignable to %v", i, v.Type(), want)}
			continue
		}
		out[i] = v
	}
	if hasErr {
		if err != nil {
			out[n-1] = reflect.ValueOf(&err).Elem()
		} else {
			out[n-1] = reflect.Zero(errorType)
		}
	} else if err != nil {
		panic(err)
	}
	return out
}

// InterceptorAndDynamicMethodMatcher gates an interceptor with a runtime matcher evaluated on every call.
// InterceptorAndDynamicMethodMatcher 带运行时匹配器的拦截器，每次调用都会检查参数
type InterceptorAndDynamicMethodMatcher struct {
	Interceptor   types.MethodInterceptor
	MethodMatcher types.MethodMatcher
}

var _ types.Invocation = (*MethodInvocation)(nil)
