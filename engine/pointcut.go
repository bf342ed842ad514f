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
	"github.com/rulego/aop/utils/str"
)

// ClassFilterFunc is a function adapter for types.ClassFilter.
type ClassFilterFunc func(t reflect.Type) bool

func (f ClassFilterFunc) MatchesType(t reflect.Type) bool {
	return f(t)
}

type trueClassFilter struct{}

func (trueClassFilter) MatchesType(reflect.Type) bool { return true }

// TrueClassFilter matches every type.
var TrueClassFilter types.ClassFilter = trueClassFilter{}

// TypeNameFilter matches types by `*` wildcard patterns.
// A pattern is tested against both the qualified name "pkgPath.Name" and the bare name, pointers stripped.
// TypeNameFilter 按类型名通配符匹配，同时匹配 "包路径.类型名" 和类型名
type TypeNameFilter struct {
	Patterns []string
}

// NewTypeNameFilter creates a type filter matching any of the patterns.
func NewTypeNameFilter(patterns ...string) *TypeNameFilter {
	return &TypeNameFilter{Patterns: patterns}
}

func (f *TypeNameFilter) MatchesType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	return str.MatchAny(f.Patterns, reflectutil.QualifiedName(t)) || str.MatchAny(f.Patterns, reflectutil.SimpleName(t))
}

// ExactTypeFilter matches one type, with or without pointer indirection.
type ExactTypeFilter struct {
	Type reflect.Type
}

func NewExactTypeFilter(t reflect.Type) *ExactTypeFilter {
	return &ExactTypeFilter{Type: t}
}

func (f *ExactTypeFilter) MatchesType(t reflect.Type) bool {
	if t == nil || f.Type == nil {
		return false
	}
	return t == f.Type || reflectutil.IndirectType(t) == reflectutil.IndirectType(f.Type)
}

// ImplementsFilter matches the types implementing an interface.
type ImplementsFilter struct {
	Interface reflect.Type
}

func NewImplementsFilter(iface reflect.Type) *ImplementsFilter {
	return &ImplementsFilter{Interface: iface}
}

func (f *ImplementsFilter) MatchesType(t reflect.Type) bool {
	return reflectutil.Implements(t, f.Interface)
}

type unionClassFilter []types.ClassFilter

func (u unionClassFilter) MatchesType(t reflect.Type) bool {
	for _, f := range u {
		if f.MatchesType(t) {
			return true
		}
	}
	return false
}

type intersectionClassFilter []types.ClassFilter

func (i intersectionClassFilter) MatchesType(t reflect.Type) bool {
	for _, f := range i {
		if !f.MatchesType(t) {
			return false
		}
	}
	return true
}

// UnionClassFilter matches a type accepted by any of the filters.
func UnionClassFilter(filters ...types.ClassFilter) types.ClassFilter {
	return unionClassFilter(filters)
}

// IntersectionClassFilter matches a type accepted by all the filters.
func IntersectionClassFilter(filters ...types.ClassFilter) types.ClassFilter {
	return intersectionClassFilter(filters)
}

// StaticMethodMatcher is embedded by matchers decided once per method.
// StaticMethodMatcher 静态方法匹配器，嵌入后只需实现 MatchesStatically
type StaticMethodMatcher struct{}

func (StaticMethodMatcher) IsRuntime() bool {
	return false
}

// MatchesDynamically must never be called on a static matcher.
func (StaticMethodMatcher) MatchesDynamically(*types.Method, reflect.Type, []interface{}) bool {
	panic(types.ErrUnsupportedDynamicMatch)
}

// DynamicMethodMatcher is embedded by matchers that inspect the arguments of every call.
// Its MatchesStatically returns true so that the runtime check is always reached.
// DynamicMethodMatcher 运行时方法匹配器，嵌入后只需实现 MatchesDynamically
type DynamicMethodMatcher struct{}

func (DynamicMethodMatcher) IsRuntime() bool {
	return true
}

func (DynamicMethodMatcher) MatchesStatically(*types.Method, reflect.Type) bool {
	return true
}

type trueMethodMatcher struct {
	StaticMethodMatcher
}

func (trueMethodMatcher) MatchesStatically(*types.Method, reflect.Type) bool { return true }

// TrueMethodMatcher matches every method.
var TrueMethodMatcher types.MethodMatcher = trueMethodMatcher{}

// MethodMatcherFunc is a static method matcher backed by a function.
type MethodMatcherFunc func(m *types.Method, targetType reflect.Type) bool

func (f MethodMatcherFunc) MatchesStatically(m *types.Method, targetType reflect.Type) bool {
	return f(m, targetType)
}

func (f MethodMatcherFunc) IsRuntime() bool {
	return false
}

func (f MethodMatcherFunc) MatchesDynamically(*types.Method, reflect.Type, []interface{}) bool {
	panic(types.ErrUnsupportedDynamicMatch)
}

// NameMatchMethodMatcher matches method names against `*` wildcard patterns.
type NameMatchMethodMatcher struct {
	StaticMethodMatcher
	Names []string
}

func NewNameMatchMethodMatcher(names ...string) *NameMatchMethodMatcher {
	return &NameMatchMethodMatcher{Names: names}
}

func (n *NameMatchMethodMatcher) MatchesStatically(m *types.Method, _ reflect.Type) bool {
	return str.MatchAny(n.Names, m.Name)
}

// ArgTypesMatcher matches a call whose actual arguments are assignable to Types.
// The declared signature only has to accept as many arguments; the decision happens per call.
// ArgTypesMatcher 根据实际参数的运行时类型匹配
type ArgTypesMatcher struct {
	DynamicMethodMatcher
	Types []reflect.Type
}

func NewArgTypesMatcher(argTypes ...reflect.Type) *ArgTypesMatcher {
	return &ArgTypesMatcher{Types: argTypes}
}

// MatchesStatically rejects methods whose arity differs; every other method may still match at runtime.
func (a *ArgTypesMatcher) MatchesStatically(m *types.Method, _ reflect.Type) bool {
	return m.NumIn() == len(a.Types)
}

func (a *ArgTypesMatcher) MatchesDynamically(_ *types.Method, _ reflect.Type, args []interface{}) bool {
	if len(args) != len(a.Types) {
		return false
	}
	for i, arg := range args {
		want := a.Types[i]
		if arg == nil {
			if !isNilable(want) {
				return false
			}
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(want) {
			return false
		}
	}
	return true
}

type unionMethodMatcher []types.MethodMatcher

func (u unionMethodMatcher) MatchesStatically(m *types.Method, targetType reflect.Type) bool {
	return u.MatchesWithIntroductions(m, targetType, false)
}

func (u unionMethodMatcher) MatchesWithIntroductions(m *types.Method, targetType reflect.Type, hasIntroductions bool) bool {
	for _, mm := range u {
		if MatchesMethod(mm, m, targetType, hasIntroductions) {
			return true
		}
	}
	return false
}

func (u unionMethodMatcher) IsRuntime() bool {
	for _, mm := range u {
		if mm.IsRuntime() {
			return true
		}
	}
	return false
}

func (u unionMethodMatcher) MatchesDynamically(m *types.Method, targetType reflect.Type, args []interface{}) bool {
	for _, mm := range u {
		if matchesCall(mm, m, targetType, args) {
			return true
		}
	}
	return false
}

type intersectionMethodMatcher []types.MethodMatcher

func (i intersectionMethodMatcher) MatchesStatically(m *types.Method, targetType reflect.Type) bool {
	return i.MatchesWithIntroductions(m, targetType, false)
}

func (i intersectionMethodMatcher) MatchesWithIntroductions(m *types.Method, targetType reflect.Type, hasIntroductions bool) bool {
	for _, mm := range i {
		if !MatchesMethod(mm, m, targetType, hasIntroductions) {
			return false
		}
	}
	return true
}

func (i intersectionMethodMatcher) IsRuntime() bool {
	return unionMethodMatcher(i).IsRuntime()
}

func (i intersectionMethodMatcher) MatchesDynamically(m *types.Method, targetType reflect.Type, args []interface{}) bool {
	for _, mm := range i {
		if !matchesCall(mm, m, targetType, args) {
			return false
		}
	}
	return true
}

type negateMethodMatcher struct {
	matcher types.MethodMatcher
}

func (n negateMethodMatcher) MatchesStatically(m *types.Method, targetType reflect.Type) bool {
	if n.matcher.IsRuntime() {
		return true
	}
	return !n.matcher.MatchesStatically(m, targetType)
}

func (n negateMethodMatcher) IsRuntime() bool {
	return n.matcher.IsRuntime()
}

func (n negateMethodMatcher) MatchesDynamically(m *types.Method, targetType reflect.Type, args []interface{}) bool {
	return !matchesCall(n.matcher, m, targetType, args)
}

// UnionMethodMatcher matches when any matcher does. It is a runtime matcher when any part is.
func UnionMethodMatcher(matchers ...types.MethodMatcher) types.MethodMatcher {
	return unionMethodMatcher(matchers)
}

// IntersectionMethodMatcher matches when all matchers do. It is a runtime matcher when any part is.
func IntersectionMethodMatcher(matchers ...types.MethodMatcher) types.MethodMatcher {
	return intersectionMethodMatcher(matchers)
}

// NegateMethodMatcher inverts a matcher.
func NegateMethodMatcher(matcher types.MethodMatcher) types.MethodMatcher {
	return negateMethodMatcher{matcher: matcher}
}

// DefaultPointcut pairs a class filter with a method matcher.
type DefaultPointcut struct {
	classFilter   types.ClassFilter
	methodMatcher types.MethodMatcher
}

// NewPointcut creates a pointcut. A nil filter or matcher matches everything.
// NewPointcut 创建切入点，nil 表示匹配所有
func NewPointcut(classFilter types.ClassFilter, methodMatcher types.MethodMatcher) *DefaultPointcut {
	if classFilter == nil {
		classFilter = TrueClassFilter
	}
	if methodMatcher == nil {
		methodMatcher = TrueMethodMatcher
	}
	return &DefaultPointcut{classFilter: classFilter, methodMatcher: methodMatcher}
}

func (p *DefaultPointcut) ClassFilter() types.ClassFilter {
	return p.classFilter
}

func (p *DefaultPointcut) MethodMatcher() types.MethodMatcher {
	return p.methodMatcher
}

// TruePointcut matches every method of every type.
var TruePointcut types.Pointcut = NewPointcut(TrueClassFilter, TrueMethodMatcher)

// NameMatchPointcut matches the methods named by the patterns on every type.
func NameMatchPointcut(names ...string) *DefaultPointcut {
	return NewPointcut(TrueClassFilter, NewNameMatchMethodMatcher(names...))
}

// UnionPointcut matches a method matched by any of the pointcuts. The class filter of each
// pointcut is applied to its own method matcher.
// UnionPointcut 任意一个切入点匹配即匹配
func UnionPointcut(pointcuts ...types.Pointcut) *DefaultPointcut {
	filters := make([]types.ClassFilter, 0, len(pointcuts))
	for _, pc := range pointcuts {
		filters = append(filters, pc.ClassFilter())
	}
	return NewPointcut(UnionClassFilter(filters...), pointcutUnionMatcher(pointcuts))
}

type pointcutUnionMatcher []types.Pointcut

func (u pointcutUnionMatcher) MatchesStatically(m *types.Method, targetType reflect.Type) bool {
	return u.MatchesWithIntroductions(m, targetType, false)
}

func (u pointcutUnionMatcher) MatchesWithIntroductions(m *types.Method, targetType reflect.Type, hasIntroductions bool) bool {
	for _, pc := range u {
		if MatchesType(pc, targetType) && MatchesMethod(pc.MethodMatcher(), m, targetType, hasIntroductions) {
			return true
		}
	}
	return false
}

func (u pointcutUnionMatcher) IsRuntime() bool {
	for _, pc := range u {
		if pc.MethodMatcher().IsRuntime() {
			return true
		}
	}
	return false
}

func (u pointcutUnionMatcher) MatchesDynamically(m *types.Method, targetType reflect.Type, args []interface{}) bool {
	for _, pc := range u {
		if MatchesInvocation(pc, m, targetType, args) {
			return true
		}
	}
	return false
}

// MatchesType reports whether the class filter of pc accepts t.
func MatchesType(pc types.Pointcut, t reflect.Type) bool {
	if pc == nil {
		return true
	}
	return pc.ClassFilter().MatchesType(t)
}

// MatchesMethod runs the static check of mm, passing hasIntroductions to introduction-aware matchers.
// MatchesMethod 静态匹配方法，感知引入增强的匹配器会收到 hasIntroductions
func MatchesMethod(mm types.MethodMatcher, m *types.Method, targetType reflect.Type, hasIntroductions bool) bool {
	if ia, ok := mm.(types.IntroductionAwareMethodMatcher); ok {
		return ia.MatchesWithIntroductions(m, targetType, hasIntroductions)
	}
	return mm.MatchesStatically(m, targetType)
}

// MatchesInvocation fully decides whether a call matches pc: type first, then the static check,
// then the dynamic check for runtime matchers.
// MatchesInvocation 判断一次调用是否匹配切入点：先类型，再静态匹配，运行时匹配器最后检查参数
func MatchesInvocation(pc types.Pointcut, m *types.Method, targetType reflect.Type, args []interface{}) bool {
	if !MatchesType(pc, targetType) {
		return false
	}
	return matchesCall(pc.MethodMatcher(), m, targetType, args)
}

func matchesCall(mm types.MethodMatcher, m *types.Method, targetType reflect.Type, args []interface{}) bool {
	if !mm.MatchesStatically(m, targetType) {
		return false
	}
	if mm.IsRuntime() {
		return mm.MatchesDynamically(m, targetType, args)
	}
	return true
}

func isNilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice, reflect.UnsafePointer:
		return true
	}
	return false
}
