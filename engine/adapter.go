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
	"sync"

	"github.com/rulego/aop/api/types"
)

// AdvisorAdapter turns one advice shape into a MethodInterceptor.
// AdvisorAdapter 把一种增强点适配为 MethodInterceptor
type AdvisorAdapter interface {
	SupportsAdvice(advice types.Advice) bool
	GetInterceptor(advisor types.Advisor) types.MethodInterceptor
}

// AdvisorAdapterRegistry holds the adapters used by the chain factory.
// Custom adapters can be registered to support new advice shapes.
type AdvisorAdapterRegistry struct {
	mu       sync.RWMutex
	adapters []AdvisorAdapter
}

// DefaultAdvisorAdapterRegistry supports the five builtin advice shapes.
var DefaultAdvisorAdapterRegistry = NewAdvisorAdapterRegistry()

// NewAdvisorAdapterRegistry creates a registry with the Before, AfterReturning, AfterThrowing, After and Around adapters.
func NewAdvisorAdapterRegistry() *AdvisorAdapterRegistry {
	return &AdvisorAdapterRegistry{
		adapters: []AdvisorAdapter{
			beforeAdviceAdapter{},
			afterReturningAdviceAdapter{},
			afterThrowingAdviceAdapter{},
			afterAdviceAdapter{},
			aroundAdviceAdapter{},
		},
	}
}

// Register adds an adapter.
func (r *AdvisorAdapterRegistry) Register(adapter AdvisorAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = append(r.adapters, adapter)
}

// GetInterceptors adapts the advice of advisor. A MethodInterceptor is used as is, and every adapter
// supporting the advice contributes one interceptor. An advice nothing can adapt, or an aspect method
// advice with a wrong signature, is a *types.ConfigError.
// GetInterceptors 把 Advisor 的增强点适配为拦截器列表，无法适配时返回 *types.ConfigError
func (r *AdvisorAdapterRegistry) GetInterceptors(advisor types.Advisor) ([]types.MethodInterceptor, error) {
	advice := advisor.Advice()
	if advice == nil {
		return nil, &types.ConfigError{Advisor: describe(advisor), Reason: errors.New("advisor has no advice")}
	}
	if v, ok := advice.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, &types.ConfigError{Advisor: describe(advisor), Reason: err}
		}
	}
	var interceptors []types.MethodInterceptor
	if mi, ok := advice.(types.MethodInterceptor); ok {
		interceptors = append(interceptors, mi)
	}
	r.mu.RLock()
	for _, adapter := range r.adapters {
		if adapter.SupportsAdvice(advice) {
			interceptors = append(interceptors, adapter.GetInterceptor(advisor))
		}
	}
	r.mu.RUnlock()
	if len(interceptors) == 0 {
		return nil, &types.ConfigError{Advisor: describe(advisor), Reason: fmt.Errorf("unknown advice type %T", advice)}
	}
	return interceptors, nil
}

func describe(advisor types.Advisor) string {
	if s, ok := advisor.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", advisor)
}

type beforeAdviceAdapter struct{}

func (beforeAdviceAdapter) SupportsAdvice(advice types.Advice) bool {
	_, ok := advice.(types.BeforeAdvice)
	return ok
}

func (beforeAdviceAdapter) GetInterceptor(advisor types.Advisor) types.MethodInterceptor {
	return &BeforeAdviceInterceptor{Advice: advisor.Advice().(types.BeforeAdvice)}
}

type afterReturningAdviceAdapter struct{}

func (afterReturningAdviceAdapter) SupportsAdvice(advice types.Advice) bool {
	_, ok := advice.(types.AfterReturningAdvice)
	return ok
}

func (afterReturningAdviceAdapter) GetInterceptor(advisor types.Advisor) types.MethodInterceptor {
	return &AfterReturningAdviceInterceptor{Advice: advisor.Advice().(types.AfterReturningAdvice)}
}

type afterThrowingAdviceAdapter struct{}

func (afterThrowingAdviceAdapter) SupportsAdvice(advice types.Advice) bool {
	_, ok := advice.(types.AfterThrowingAdvice)
	return ok
}

func (afterThrowingAdviceAdapter) GetInterceptor(advisor types.Advisor) types.MethodInterceptor {
	return &AfterThrowingAdviceInterceptor{Advice: advisor.Advice().(types.AfterThrowingAdvice)}
}

type afterAdviceAdapter struct{}

func (afterAdviceAdapter) SupportsAdvice(advice types.Advice) bool {
	_, ok := advice.(types.AfterAdvice)
	return ok
}

func (afterAdviceAdapter) GetInterceptor(advisor types.Advisor) types.MethodInterceptor {
	return &AfterAdviceInterceptor{Advice: advisor.Advice().(types.AfterAdvice)}
}

type aroundAdviceAdapter struct{}

func (aroundAdviceAdapter) SupportsAdvice(advice types.Advice) bool {
	_, ok := advice.(types.AroundAdvice)
	return ok
}

func (aroundAdviceAdapter) GetInterceptor(advisor types.Advisor) types.MethodInterceptor {
	return &AroundAdviceInterceptor{Advice: advisor.Advice().(types.AroundAdvice)}
}

// BeforeAdviceInterceptor runs the advice then proceeds. An advice error aborts the call.
type BeforeAdviceInterceptor struct {
	Advice types.BeforeAdvice
}

func (i *BeforeAdviceInterceptor) Invoke(inv types.Invocation) (interface{}, error) {
	if err := i.Advice.Before(inv); err != nil {
		return nil, err
	}
	return inv.Proceed()
}

// AfterReturningAdviceInterceptor runs the advice with the return value of a successful call.
type AfterReturningAdviceInterceptor struct {
	Advice types.AfterReturningAdvice
}

func (i *AfterReturningAdviceInterceptor) Invoke(inv types.Invocation) (interface{}, error) {
	result, err := inv.Proceed()
	if err != nil {
		return result, err
	}
	var declared reflect.Type
	if typed, ok := i.Advice.(types.ReturningTyped); ok {
		declared = typed.ReturningType()
	}
	if MatchesReturning(declared, inv.Method(), result) {
		if err := i.Advice.AfterReturning(inv, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// AfterThrowingAdviceInterceptor runs the advice when the call failed with a matching error.
// The original error keeps propagating unless the advice returns another one.
type AfterThrowingAdviceInterceptor struct {
	Advice types.AfterThrowingAdvice
}

func (i *AfterThrowingAdviceInterceptor) Invoke(inv types.Invocation) (interface{}, error) {
	result, err := inv.Proceed()
	if err == nil {
		return result, nil
	}
	var declared reflect.Type
	if typed, ok := i.Advice.(types.ThrowingTyped); ok {
		declared = typed.ThrowingType()
	}
	if matched, ok := MatchesThrowing(declared, err); ok {
		if adviceErr := i.Advice.AfterThrowing(inv, matched); adviceErr != nil {
			return result, adviceErr
		}
	}
	return result, err
}

// AfterAdviceInterceptor runs the advice whatever the outcome, even when the chain panics.
// An advice error overrides the outcome.
type AfterAdviceInterceptor struct {
	Advice types.AfterAdvice
}

func (i *AfterAdviceInterceptor) Invoke(inv types.Invocation) (result interface{}, err error) {
	defer func() {
		if adviceErr := i.Advice.After(inv); adviceErr != nil {
			err = adviceErr
		}
	}()
	return inv.Proceed()
}

// AroundAdviceInterceptor hands the invocation to the advice.
type AroundAdviceInterceptor struct {
	Advice types.AroundAdvice
}

func (i *AroundAdviceInterceptor) Invoke(inv types.Invocation) (interface{}, error) {
	return i.Advice.Around(inv)
}

// MatchesReturning decides whether an after returning advice declared for type declared receives value,
// returned by method m.
//   - A nil or empty interface declared type accepts every value. This includes void methods, whose
//     nil return value is always accepted by such an advice.
//   - A non-nil value must be assignable to the declared type.
//   - A nil value is accepted when the static return type of m is assignable to the declared type.
//
// MatchesReturning 判断返回后增强是否接收该返回值
func MatchesReturning(declared reflect.Type, m *types.Method, value interface{}) bool {
	if declared == nil || declared == anyType {
		// void method with an any-typed parameter: always matches
		return true
	}
	if value != nil {
		return reflect.TypeOf(value).AssignableTo(declared)
	}
	returnType := m.ReturnType()
	return returnType != nil && returnType.AssignableTo(declared)
}

// MatchesThrowing finds the first error of the chain of err whose type is assignable to declared.
// A nil or `error` declared type matches err itself.
// MatchesThrowing 在错误链中查找类型匹配的错误
func MatchesThrowing(declared reflect.Type, err error) (error, bool) {
	if err == nil {
		return nil, false
	}
	if declared == nil || declared == errorType {
		return err, true
	}
	var found error
	walkErrors(err, func(e error) bool {
		if reflect.TypeOf(e).AssignableTo(declared) {
			found = e
			return true
		}
		return false
	})
	return found, found != nil
}

// walkErrors visits err and its wrapped errors depth first until visit returns true.
func walkErrors(err error, visit func(error) bool) bool {
	if err == nil {
		return false
	}
	if visit(err) {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() error }:
		return walkErrors(x.Unwrap(), visit)
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if walkErrors(e, visit) {
				return true
			}
		}
	}
	return false
}
