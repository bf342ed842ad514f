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
	"strings"
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/test/assert"
)

func TestChainFactory(t *testing.T) {
	target := &userService{}
	targetType := reflect.TypeOf(target)
	get := methodOf(t, target, "Get")
	noop := types.BeforeFunc(func(types.JoinPoint) error { return nil })

	advisors := []types.Advisor{
		NewPointcutAdvisor(NameMatchPointcut("Get"), noop),
		NewPointcutAdvisor(NameMatchPointcut("Find"), noop),
		NewPointcutAdvisor(NewPointcut(nil, NewArgTypesMatcher(reflect.TypeOf(""))), noop),
		NewPointcutAdvisor(NewPointcut(NewTypeNameFilter("order*"), nil), noop),
		plainAdvisor{advice: noop},
	}
	factory := NewAdvisorChainFactory(nil)
	assert.Equal(t, DefaultAdvisorAdapterRegistry, factory.Registry())

	chain, err := factory.GetInterceptors(advisors, get, targetType, false, false)
	assert.Nil(t, err)
	assert.Equal(t, 3, len(chain))
	_, ok := chain[0].(*BeforeAdviceInterceptor)
	assert.True(t, ok)
	dynamic, ok := chain[1].(*InterceptorAndDynamicMethodMatcher)
	assert.True(t, ok)
	assert.True(t, dynamic.MethodMatcher.IsRuntime())
	_, ok = chain[2].(*BeforeAdviceInterceptor)
	assert.True(t, ok)

	// pre-filtered advisors skip the class filter
	chain, err = factory.GetInterceptors(advisors, get, targetType, false, true)
	assert.Nil(t, err)
	assert.Equal(t, 4, len(chain))

	//相同输入构建的链结构相同
	again, err := factory.GetInterceptors(advisors, get, targetType, false, false)
	assert.Nil(t, err)
	assert.Equal(t, 3, len(again))
}

func TestChainFactoryConfigError(t *testing.T) {
	target := &userService{}
	get := methodOf(t, target, "Get")
	advisors := []types.Advisor{NewPointcutAdvisor(NameMatchPointcut("Get"), unknownAdvice{})}
	_, err := NewAdvisorChainFactory(nil).GetInterceptors(advisors, get, reflect.TypeOf(target), false, false)
	var ce *types.ConfigError
	assert.True(t, errors.As(err, &ce))
	assert.True(t, strings.Contains(ce.Method, "Get"))

	// not matched, so never adapted
	advisors = []types.Advisor{NewPointcutAdvisor(NameMatchPointcut("Find"), unknownAdvice{})}
	chain, err := NewAdvisorChainFactory(nil).GetInterceptors(advisors, get, reflect.TypeOf(target), false, false)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(chain))
}

func TestFindAdvisorsThatCanApply(t *testing.T) {
	targetType := reflect.TypeOf(&userService{})
	noop := types.BeforeFunc(func(types.JoinPoint) error { return nil })
	auditableType := reflect.TypeOf((*Auditable)(nil)).Elem()

	get := NewPointcutAdvisor(NameMatchPointcut("Get"), noop)
	none := NewPointcutAdvisor(NameMatchPointcut("NoSuchMethod"), noop)
	audit := NewPointcutAdvisor(NameMatchPointcut("LastAudit"), noop)
	wrongType := NewPointcutAdvisor(NewPointcut(NewTypeNameFilter("order*"), nil), noop)
	all := NewPointcutAdvisor(nil, noop)
	introduction := Introduce(auditDelegate{}, auditableType)

	eligible := FindAdvisorsThatCanApply([]types.Advisor{get, none, audit, wrongType, all}, targetType)
	assert.Equal(t, []types.Advisor{get, all}, eligible)

	// the introduced interface makes LastAudit a candidate method
	eligible = FindAdvisorsThatCanApply([]types.Advisor{get, audit, introduction, none}, targetType)
	assert.Equal(t, []types.Advisor{get, audit, introduction}, eligible)

	assert.True(t, CanApply(plainAdvisor{advice: noop}, targetType, nil, false))
	assert.False(t, CanApply(NewIntroductionAdvisor(introduction.interceptor, NewTypeNameFilter("order*"), introduction.Interfaces()), targetType, nil, false))
	assert.Equal(t, 0, len(FindAdvisorsThatCanApply(nil, targetType)))
}
