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
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/test/assert"
)

// beforeAndAfter implements two advice shapes
type beforeAndAfter struct {
	r *recorder
}

func (b *beforeAndAfter) Before(types.JoinPoint) error {
	b.r.add("before")
	return nil
}

func (b *beforeAndAfter) After(types.JoinPoint) error {
	b.r.add("after")
	return nil
}

type unknownAdvice struct{}

// logAdvice is a custom advice shape adapted by logAdviceAdapter
type logAdvice struct {
	r *recorder
}

type logAdviceAdapter struct{}

func (logAdviceAdapter) SupportsAdvice(advice types.Advice) bool {
	_, ok := advice.(*logAdvice)
	return ok
}

func (logAdviceAdapter) GetInterceptor(advisor types.Advisor) types.MethodInterceptor {
	advice := advisor.Advice().(*logAdvice)
	return types.MethodInterceptorFunc(func(inv types.Invocation) (interface{}, error) {
		advice.r.add("log " + inv.Method().Name)
		return inv.Proceed()
	})
}

func TestAdapterRegistry(t *testing.T) {
	registry := NewAdvisorAdapterRegistry()
	r := &recorder{}

	interceptors, err := registry.GetInterceptors(NewPointcutAdvisor(nil, &beforeAndAfter{r: r}))
	assert.Nil(t, err)
	assert.Equal(t, 2, len(interceptors))

	mi := types.MethodInterceptorFunc(func(inv types.Invocation) (interface{}, error) { return inv.Proceed() })
	interceptors, err = registry.GetInterceptors(NewPointcutAdvisor(nil, mi))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(interceptors))

	_, err = registry.GetInterceptors(NewPointcutAdvisor(nil, unknownAdvice{}))
	assert.True(t, types.IsConfigError(err))

	_, err = registry.GetInterceptors(NewPointcutAdvisor(nil, nil))
	assert.True(t, types.IsConfigError(err))

	_, err = registry.GetInterceptors(NewPointcutAdvisor(nil, &logAdvice{r: r}))
	assert.True(t, types.IsConfigError(err))
	registry.Register(logAdviceAdapter{})
	interceptors, err = registry.GetInterceptors(NewPointcutAdvisor(nil, &logAdvice{r: r}))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(interceptors))

	//自定义适配器只作用于该注册表
	_, err = DefaultAdvisorAdapterRegistry.GetInterceptors(NewPointcutAdvisor(nil, &logAdvice{r: r}))
	assert.True(t, types.IsConfigError(err))
}

func TestCustomAdapterOnProxy(t *testing.T) {
	registry := NewAdvisorAdapterRegistry()
	registry.Register(logAdviceAdapter{})
	r := &recorder{}
	proxy, err := NewProxyFactory(types.NewConfig()).WithAdapterRegistry(registry).
		GetProxy(&userService{}, WithAdvisors(NewPointcutAdvisor(NameMatchPointcut("Get"), &logAdvice{r: r})))
	assert.Nil(t, err)
	_, err = proxy.Invoke("Get", "a")
	assert.Nil(t, err)
	assert.Equal(t, []string{"log Get"}, r.list())
}

func invokeWith(t *testing.T, target interface{}, name string, args []interface{}, interceptors ...types.MethodInterceptor) (interface{}, error) {
	chain := make([]interface{}, 0, len(interceptors))
	for _, i := range interceptors {
		chain = append(chain, i)
	}
	return NewMethodInvocation(nil, target, nil, methodOf(t, target, name), args, chain).Proceed()
}

func TestBeforeAdviceInterceptor(t *testing.T) {
	target := &userService{}
	denied := errors.New("denied")
	_, err := invokeWith(t, target, "Get", []interface{}{"a"}, &BeforeAdviceInterceptor{Advice: types.BeforeFunc(func(types.JoinPoint) error {
		return denied
	})})
	assert.Equal(t, denied, err)
	assert.Equal(t, 0, target.Calls())
}

func TestAfterReturningAdviceInterceptor(t *testing.T) {
	target := &userService{}
	var seen interface{}
	advice := types.AfterReturningFunc(func(jp types.JoinPoint, returnValue interface{}) error {
		seen = returnValue
		return nil
	})
	result, err := invokeWith(t, target, "Get", []interface{}{"a"}, &AfterReturningAdviceInterceptor{Advice: advice})
	assert.Nil(t, err)
	assert.Equal(t, "value-for-a", seen)
	assert.Equal(t, result, seen)

	seen = nil
	_, err = invokeWith(t, target, "Fail", []interface{}{"a"}, &AfterReturningAdviceInterceptor{Advice: advice})
	assert.NotNil(t, err)
	assert.Nil(t, seen)

	auditErr := errors.New("audit failed")
	_, err = invokeWith(t, target, "Get", []interface{}{"a"}, &AfterReturningAdviceInterceptor{Advice: types.AfterReturningFunc(func(types.JoinPoint, interface{}) error {
		return auditErr
	})})
	assert.Equal(t, auditErr, err)
}

func TestAfterThrowingAdviceInterceptor(t *testing.T) {
	target := &userService{}
	var seen error
	advice := types.AfterThrowingFunc(func(jp types.JoinPoint, err error) error {
		seen = err
		return nil
	})
	_, err := invokeWith(t, target, "Fail", []interface{}{"a"}, &AfterThrowingAdviceInterceptor{Advice: advice})
	assert.NotNil(t, err)
	assert.Equal(t, err, seen)

	seen = nil
	_, err = invokeWith(t, target, "Get", []interface{}{"a"}, &AfterThrowingAdviceInterceptor{Advice: advice})
	assert.Nil(t, err)
	assert.Nil(t, seen)

	translated := errors.New("translated")
	_, err = invokeWith(t, target, "Fail", []interface{}{"a"}, &AfterThrowingAdviceInterceptor{Advice: types.AfterThrowingFunc(func(types.JoinPoint, error) error {
		return translated
	})})
	assert.Equal(t, translated, err)
}

func TestAfterAdviceInterceptor(t *testing.T) {
	target := &userService{}
	count := 0
	advice := types.AfterFunc(func(types.JoinPoint) error {
		count++
		return nil
	})
	_, _ = invokeWith(t, target, "Get", []interface{}{"a"}, &AfterAdviceInterceptor{Advice: advice})
	_, _ = invokeWith(t, target, "Fail", []interface{}{"a"}, &AfterAdviceInterceptor{Advice: advice})
	assert.Panics(t, func() {
		_, _ = invokeWith(t, target, "Explode", nil, &AfterAdviceInterceptor{Advice: advice})
	})
	assert.Equal(t, 3, count)

	cleanup := errors.New("cleanup failed")
	_, err := invokeWith(t, target, "Get", []interface{}{"a"}, &AfterAdviceInterceptor{Advice: types.AfterFunc(func(types.JoinPoint) error {
		return cleanup
	})})
	assert.Equal(t, cleanup, err)
}

func TestMatchesReturning(t *testing.T) {
	target := &userService{}
	get := methodOf(t, target, "Get")
	find := methodOf(t, target, "Find")
	touch := methodOf(t, target, "Touch")
	stringType := reflect.TypeOf("")
	userPtrType := reflect.TypeOf(&user{})

	assert.True(t, MatchesReturning(nil, get, "x"))
	assert.True(t, MatchesReturning(anyType, touch, nil))
	assert.True(t, MatchesReturning(stringType, get, "x"))
	assert.False(t, MatchesReturning(reflect.TypeOf(0), get, "x"))
	// nil of a compatible static type
	assert.True(t, MatchesReturning(userPtrType, find, nil))
	assert.False(t, MatchesReturning(stringType, find, nil))
	// void methods only match untyped advice
	assert.False(t, MatchesReturning(stringType, touch, nil))
}

func TestMatchesThrowing(t *testing.T) {
	nf := &notFoundError{Key: "a"}
	wrapped := fmt.Errorf("wrap: %w", nf)
	joined := errors.Join(errors.New("other"), wrapped)
	nfType := reflect.TypeOf(nf)
	validationType := reflect.TypeOf(&validationError{})

	matched, ok := MatchesThrowing(nil, wrapped)
	assert.True(t, ok)
	assert.Equal(t, wrapped, matched)

	matched, ok = MatchesThrowing(errorType, wrapped)
	assert.True(t, ok)
	assert.Equal(t, wrapped, matched)

	matched, ok = MatchesThrowing(nfType, wrapped)
	assert.True(t, ok)
	assert.True(t, matched == error(nf))

	matched, ok = MatchesThrowing(nfType, joined)
	assert.True(t, ok)
	assert.True(t, matched == error(nf))

	_, ok = MatchesThrowing(validationType, joined)
	assert.False(t, ok)

	_, ok = MatchesThrowing(nil, nil)
	assert.False(t, ok)
}
