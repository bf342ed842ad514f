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
	"reflect"

	"github.com/rulego/aop/api/types"
	reflectutil "github.com/rulego/aop/utils/reflect"
)

// FindAdvisorsThatCanApply returns, in their original order, the candidates that can apply to at
// least one method of targetType or of the exposed interfaces.
// Introduction advisors whose class filter matches are always eligible, and the interfaces they
// introduce are searched for methods too.
//
// FindAdvisorsThatCanApply 返回可以作用于目标类型的 Advisor，保持原有顺序
func FindAdvisorsThatCanApply(candidates []types.Advisor, targetType reflect.Type, interfaces ...reflect.Type) []types.Advisor {
	if len(candidates) == 0 {
		return nil
	}
	eligible := make(map[int]bool, len(candidates))
	searched := append([]reflect.Type(nil), interfaces...)
	hasIntroductions := false
	for i, candidate := range candidates {
		if ia, ok := candidate.(types.IntroductionAdvisor); ok && ia.ClassFilter().MatchesType(targetType) {
			eligible[i] = true
			hasIntroductions = true
			searched = append(searched, ia.Interfaces()...)
		}
	}
	for i, candidate := range candidates {
		if _, ok := candidate.(types.IntroductionAdvisor); ok {
			continue
		}
		if CanApply(candidate, targetType, searched, hasIntroductions) {
			eligible[i] = true
		}
	}
	result := make([]types.Advisor, 0, len(eligible))
	for i, candidate := range candidates {
		if eligible[i] {
			result = append(result, candidate)
		}
	}
	return result
}

// CanApply reports whether advisor can apply to at least one method of targetType or interfaces.
// An advisor that is neither a pointcut nor an introduction advisor applies everywhere.
func CanApply(advisor types.Advisor, targetType reflect.Type, interfaces []reflect.Type, hasIntroductions bool) bool {
	switch a := advisor.(type) {
	case types.IntroductionAdvisor:
		return a.ClassFilter().MatchesType(targetType)
	case types.PointcutAdvisor:
		return canApplyPointcut(a.Pointcut(), targetType, interfaces, hasIntroductions)
	default:
		return true
	}
}

func canApplyPointcut(pc types.Pointcut, targetType reflect.Type, interfaces []reflect.Type, hasIntroductions bool) bool {
	if !MatchesType(pc, targetType) {
		return false
	}
	mm := pc.MethodMatcher()
	if mm == TrueMethodMatcher {
		return true
	}
	searched := make([]reflect.Type, 0, len(interfaces)+1)
	searched = append(searched, targetType)
	searched = append(searched, interfaces...)
	for _, t := range searched {
		for _, m := range reflectutil.Methods(t) {
			if MatchesMethod(mm, m, targetType, hasIntroductions) {
				return true
			}
		}
	}
	return false
}
