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
	"fmt"
	"reflect"

	"github.com/rulego/aop/api/types"
	reflectutil "github.com/rulego/aop/utils/reflect"
)

// AdvisorOption sets the ordering metadata of an advisor.
type AdvisorOption func(meta *advisorMeta)

// WithOrder sets the order of the advisor, the smaller the value, the higher the priority.
func WithOrder(order int) AdvisorOption {
	return func(meta *advisorMeta) {
		meta.order = order
		meta.hasOrder = true
	}
}

// WithPriority marks the advisor as PriorityOrdered: it sorts before plain advisors of the same order.
func WithPriority() AdvisorOption {
	return func(meta *advisorMeta) {
		meta.priority = true
	}
}

// WithAspect records the declaring aspect and the declaration order of the advice inside it.
func WithAspect(aspectName string, declarationOrder int) AdvisorOption {
	return func(meta *advisorMeta) {
		meta.aspect = aspectName
		meta.declaration = declarationOrder
	}
}

type advisorMeta struct {
	order       int
	hasOrder    bool
	priority    bool
	aspect      string
	declaration int
}

func newAdvisorMeta(opts []AdvisorOption) advisorMeta {
	var meta advisorMeta
	for _, opt := range opts {
		opt(&meta)
	}
	return meta
}

// orderOf returns the explicit order, then the order of the advice, then LowestPrecedence.
func (meta *advisorMeta) orderOf(advice types.Advice) int {
	if meta.hasOrder {
		return meta.order
	}
	if o, ok := advice.(types.Ordered); ok {
		return o.Order()
	}
	return types.LowestPrecedence
}

func (meta *advisorMeta) PriorityOrdered() bool {
	return meta.priority
}

func (meta *advisorMeta) AspectName() string {
	return meta.aspect
}

func (meta *advisorMeta) DeclarationOrder() int {
	return meta.declaration
}

// DefaultPointcutAdvisor binds an advice to a pointcut.
// DefaultPointcutAdvisor 把增强点绑定到切入点
type DefaultPointcutAdvisor struct {
	advisorMeta
	pointcut types.Pointcut
	advice   types.Advice
}

// NewPointcutAdvisor creates an advisor. A nil pointcut matches every method.
func NewPointcutAdvisor(pointcut types.Pointcut, advice types.Advice, opts ...AdvisorOption) *DefaultPointcutAdvisor {
	if pointcut == nil {
		pointcut = TruePointcut
	}
	return &DefaultPointcutAdvisor{
		advisorMeta: newAdvisorMeta(opts),
		pointcut:    pointcut,
		advice:      advice,
	}
}

func (a *DefaultPointcutAdvisor) Pointcut() types.Pointcut {
	return a.pointcut
}

func (a *DefaultPointcutAdvisor) Advice() types.Advice {
	return a.advice
}

func (a *DefaultPointcutAdvisor) Order() int {
	return a.orderOf(a.advice)
}

func (a *DefaultPointcutAdvisor) String() string {
	if a.aspect != "" {
		return fmt.Sprintf("%s#%d(%T)", a.aspect, a.declaration, a.advice)
	}
	return fmt.Sprintf("%T", a.advice)
}

// DefaultIntroductionAdvisor adds interfaces to the types accepted by its class filter.
// DefaultIntroductionAdvisor 为匹配的类型引入接口
type DefaultIntroductionAdvisor struct {
	advisorMeta
	interceptor types.IntroductionInterceptor
	classFilter types.ClassFilter
	interfaces  []reflect.Type
}

// NewIntroductionAdvisor creates an introduction advisor. A nil class filter matches every type.
func NewIntroductionAdvisor(interceptor types.IntroductionInterceptor, classFilter types.ClassFilter, interfaces []reflect.Type, opts ...AdvisorOption) *DefaultIntroductionAdvisor {
	if classFilter == nil {
		classFilter = TrueClassFilter
	}
	return &DefaultIntroductionAdvisor{
		advisorMeta: newAdvisorMeta(opts),
		interceptor: interceptor,
		classFilter: classFilter,
		interfaces:  interfaces,
	}
}

// Introduce creates an introduction advisor whose interfaces are served by delegate.
// Introduce 创建引入增强，引入的接口方法由 delegate 实现
func Introduce(delegate interface{}, interfaces ...reflect.Type) *DefaultIntroductionAdvisor {
	return NewIntroductionAdvisor(NewDelegatingIntroductionInterceptor(delegate, interfaces...), TrueClassFilter, interfaces)
}

func (a *DefaultIntroductionAdvisor) Advice() types.Advice {
	return a.interceptor
}

func (a *DefaultIntroductionAdvisor) ClassFilter() types.ClassFilter {
	return a.classFilter
}

func (a *DefaultIntroductionAdvisor) Interfaces() []reflect.Type {
	return a.interfaces
}

func (a *DefaultIntroductionAdvisor) Order() int {
	return a.orderOf(a.interceptor)
}

// ValidateInterfaces checks that every introduced type is an interface served by the interceptor.
func (a *DefaultIntroductionAdvisor) ValidateInterfaces() error {
	if a.interceptor == nil {
		return fmt.Errorf("introduction advisor has no interceptor")
	}
	if len(a.interfaces) == 0 {
		return fmt.Errorf("introduction advisor introduces no interface")
	}
	for _, iface := range a.interfaces {
		if iface == nil || iface.Kind() != reflect.Interface {
			return fmt.Errorf("%v is not an interface", iface)
		}
		if !a.interceptor.ImplementsInterface(iface) {
			return fmt.Errorf("interceptor %T does not implement %v", a.interceptor, iface)
		}
	}
	return nil
}

func (a *DefaultIntroductionAdvisor) String() string {
	return fmt.Sprintf("introduction%v", a.interfaces)
}

// DelegatingIntroductionInterceptor serves the methods of the introduced interfaces with a delegate
// and proceeds for every other method.
// DelegatingIntroductionInterceptor 把引入接口的方法委托给 delegate 执行，其它方法继续执行调用链
type DelegatingIntroductionInterceptor struct {
	delegate   reflect.Value
	interfaces []reflect.Type
}

func NewDelegatingIntroductionInterceptor(delegate interface{}, interfaces ...reflect.Type) *DelegatingIntroductionInterceptor {
	return &DelegatingIntroductionInterceptor{
		delegate:   reflect.ValueOf(delegate),
		interfaces: interfaces,
	}
}

func (d *DelegatingIntroductionInterceptor) ImplementsInterface(iface reflect.Type) bool {
	if !d.delegate.IsValid() {
		return false
	}
	return reflectutil.Implements(d.delegate.Type(), iface)
}

// Invoke never proceeds for an introduced method: the delegate is the end of the chain for it.
func (d *DelegatingIntroductionInterceptor) Invoke(inv types.Invocation) (interface{}, error) {
	m := inv.Method()
	if d.isIntroduced(m) {
		return callMethod(d.delegate.MethodByName(m.Name), m, inv.Args(), false)
	}
	return inv.Proceed()
}

func (d *DelegatingIntroductionInterceptor) isIntroduced(m *types.Method) bool {
	for _, iface := range d.interfaces {
		if m.DeclaringType == iface {
			return true
		}
	}
	return false
}

var (
	_ types.PointcutAdvisor         = (*DefaultPointcutAdvisor)(nil)
	_ types.Ordered                 = (*DefaultPointcutAdvisor)(nil)
	_ types.PriorityOrdered         = (*DefaultPointcutAdvisor)(nil)
	_ types.AspectMetadata          = (*DefaultPointcutAdvisor)(nil)
	_ types.IntroductionAdvisor     = (*DefaultIntroductionAdvisor)(nil)
	_ types.IntroductionInterceptor = (*DelegatingIntroductionInterceptor)(nil)
)
