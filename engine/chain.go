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
	"reflect"

	"github.com/rulego/aop/api/types"
)

// AdvisorChainFactory builds the interceptor chain of a method from an ordered advisor list.
// AdvisorChainFactory 根据有序的 Advisor 列表构建方法的拦截器链
type AdvisorChainFactory struct {
	registry *AdvisorAdapterRegistry
}

// NewAdvisorChainFactory creates a chain factory. A nil registry uses DefaultAdvisorAdapterRegistry.
func NewAdvisorChainFactory(registry *AdvisorAdapterRegistry) *AdvisorChainFactory {
	if registry == nil {
		registry = DefaultAdvisorAdapterRegistry
	}
	return &AdvisorChainFactory{registry: registry}
}

// Registry returns the adapter registry of the factory.
func (f *AdvisorChainFactory) Registry() *AdvisorAdapterRegistry {
	return f.registry
}

// GetInterceptors returns the chain units of method, in the order of advisors. A unit is either a
// types.MethodInterceptor or, for runtime matchers, an *InterceptorAndDynamicMethodMatcher.
// When preFiltered is true the class filters were already checked by the applicability filter.
// An advice that can not be adapted stops the build with a *types.ConfigError.
//
// GetInterceptors 按 Advisor 的顺序返回方法的拦截器链，不做任何重新排序
func (f *AdvisorChainFactory) GetInterceptors(advisors []types.Advisor, method *types.Method, targetType reflect.Type, hasIntroductions, preFiltered bool) ([]interface{}, error) {
	chain := make([]interface{}, 0, len(advisors))
	for _, advisor := range advisors {
		switch a := advisor.(type) {
		case types.PointcutAdvisor:
			pc := a.Pointcut()
			if !preFiltered && !MatchesType(pc, targetType) {
				continue
			}
			mm := pc.MethodMatcher()
			if !MatchesMethod(mm, method, targetType, hasIntroductions) {
				continue
			}
			interceptors, err := f.interceptors(a, method)
			if err != nil {
				return nil, err
			}
			for _, interceptor := range interceptors {
				if mm.IsRuntime() {
					chain = append(chain, &InterceptorAndDynamicMethodMatcher{Interceptor: interceptor, MethodMatcher: mm})
				} else {
					chain = append(chain, interceptor)
				}
			}
		case types.IntroductionAdvisor:
			if !preFiltered && !a.ClassFilter().MatchesType(targetType) {
				continue
			}
			interceptors, err := f.interceptors(a, method)
			if err != nil {
				return nil, err
			}
			for _, interceptor := range interceptors {
				chain = append(chain, interceptor)
			}
		default:
			interceptors, err := f.interceptors(a, method)
			if err != nil {
				return nil, err
			}
			for _, interceptor := range interceptors {
				chain = append(chain, interceptor)
			}
		}
	}
	return chain, nil
}

func (f *AdvisorChainFactory) interceptors(advisor types.Advisor, method *types.Method) ([]types.MethodInterceptor, error) {
	interceptors, err := f.registry.GetInterceptors(advisor)
	if err != nil {
		var ce *types.ConfigError
		if errors.As(err, &ce) {
			return nil, &types.ConfigError{Advisor: ce.Advisor, Method: method.String(), Reason: ce.Reason}
		}
		return nil, err
	}
	return interceptors, nil
}
