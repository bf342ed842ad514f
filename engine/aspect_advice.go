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
)

// AdviceKind is the shape of an advice declared by an aspect method.
type AdviceKind int

const (
	KindBefore AdviceKind = iota
	KindAfterReturning
	KindAfterThrowing
	KindAfter
	KindAround
)

func (k AdviceKind) String() string {
	switch k {
	case KindBefore:
		return "Before"
	case KindAfterReturning:
		return "AfterReturning"
	case KindAfterThrowing:
		return "AfterThrowing"
	case KindAfter:
		return "After"
	case KindAround:
		return "Around"
	default:
		return fmt.Sprintf("AdviceKind(%d)", int(k))
	}
}

// AspectMethod declares one method of an aspect struct as advice.
//
// Expected signatures, an error result being optional except for Around:
//   - Before, After: func(types.JoinPoint) error
//   - AfterReturning: func(types.JoinPoint, T) error, called only when the return value is compatible with T
//   - AfterThrowing: func(types.JoinPoint, E) error, E an error type, called only when the error chain holds an E
//   - Around: func(types.Invocation) (interface{}, error)
//
// AspectMethod 把切面结构体的一个方法声明为增强点
type AspectMethod struct {
	Kind AdviceKind
	// Method is the name of the aspect method.
	Method string
	// Pointcut of this advice, nil means the pointcut passed to AspectAdvisors.
	Pointcut types.Pointcut
}

// Before declares a before advice method.
func Before(method string, pointcut types.Pointcut) AspectMethod {
	return AspectMethod{Kind: KindBefore, Method: method, Pointcut: pointcut}
}

// AfterReturning declares an after returning advice method.
func AfterReturning(method string, pointcut types.Pointcut) AspectMethod {
	return AspectMethod{Kind: KindAfterReturning, Method: method, Pointcut: pointcut}
}

// AfterThrowing declares an after throwing advice method.
func AfterThrowing(method string, pointcut types.Pointcut) AspectMethod {
	return AspectMethod{Kind: KindAfterThrowing, Method: method, Pointcut: pointcut}
}

// After declares an after (finally) advice method.
func After(method string, pointcut types.Pointcut) AspectMethod {
	return AspectMethod{Kind: KindAfter, Method: method, Pointcut: pointcut}
}

// Around declares an around advice method.
func Around(method string, pointcut types.Pointcut) AspectMethod {
	return AspectMethod{Kind: KindAround, Method: method, Pointcut: pointcut}
}

// AspectAdvisors creates one advisor per declared method of aspect. All advisors share the order,
// the aspect identity (the aspect type name) and get their declaration order from their position.
// Signatures are checked when the advice is adapted, a mismatch is a *types.ConfigError.
// AspectAdvisors 为切面的每个声明方法创建一个 Advisor，方法签名在适配时检查
func AspectAdvisors(aspect interface{}, pointcut types.Pointcut, order int, methods ...AspectMethod) []types.Advisor {
	name := fmt.Sprintf("%T", aspect)
	if named, ok := aspect.(interface{ AspectName() string }); ok {
		name = named.AspectName()
	}
	advisors := make([]types.Advisor, 0, len(methods))
	for i, decl := range methods {
		pc := decl.Pointcut
		if pc == nil {
			pc = pointcut
		}
		advisors = append(advisors, NewPointcutAdvisor(pc, NewAspectMethodAdvice(aspect, decl), WithOrder(order), WithAspect(name, i)))
	}
	return advisors
}

// AspectMethodAdvice is the advice of one aspect method. It implements exactly the advice shape of its kind.
type AspectMethodAdvice interface {
	types.Advice
	Kind() AdviceKind
	// Validate checks the signature of the aspect method.
	Validate() error
}

// NewAspectMethodAdvice creates the advice of decl on aspect.
func NewAspectMethodAdvice(aspect interface{}, decl AspectMethod) AspectMethodAdvice {
	base := aspectMethod{aspectType: reflect.TypeOf(aspect), kind: decl.Kind, name: decl.Method}
	if aspect != nil {
		base.fn = reflect.ValueOf(aspect).MethodByName(decl.Method)
	}
	switch decl.Kind {
	case KindBefore:
		return &aspectBefore{base}
	case KindAfterReturning:
		return &aspectAfterReturning{base}
	case KindAfterThrowing:
		return &aspectAfterThrowing{base}
	case KindAfter:
		return &aspectAfter{base}
	default:
		return &aspectAround{base}
	}
}

var (
	joinPointType  = reflect.TypeOf((*types.JoinPoint)(nil)).Elem()
	invocationType = reflect.TypeOf((*types.Invocation)(nil)).Elem()
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
	anyType        = reflect.TypeOf((*interface{})(nil)).Elem()
)

type aspectMethod struct {
	aspectType reflect.Type
	kind       AdviceKind
	name       string
	fn         reflect.Value
}

func (a *aspectMethod) Kind() AdviceKind {
	return a.kind
}

func (a *aspectMethod) String() string {
	return fmt.Sprintf("%s %v.%s", a.kind, a.aspectType, a.name)
}

// validate checks fn against func(first[, second]) [error].
func (a *aspectMethod) validate(first reflect.Type, second func(reflect.Type) error) error {
	if !a.fn.IsValid() {
		return fmt.Errorf("aspect %v has no exported method %s", a.aspectType, a.name)
	}
	ft := a.fn.Type()
	wantIn := 1
	if second != nil {
		wantIn = 2
	}
	if ft.NumIn() != wantIn || ft.In(0) != first {
		return fmt.Errorf("%s advice method %s must take %d parameters starting with %v, got %v", a.kind, a.name, wantIn, first, ft)
	}
	if second != nil {
		if err := second(ft.In(1)); err != nil {
			return err
		}
	}
	if ft.NumOut() > 1 || (ft.NumOut() == 1 && ft.Out(0) != errorType) {
		return fmt.Errorf("%s advice method %s may only return an error, got %v", a.kind, a.name, ft)
	}
	return nil
}

// call invokes the aspect method and returns its error result.
func (a *aspectMethod) call(args ...reflect.Value) error {
	out := a.fn.Call(args)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

func valueOf(v interface{}, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}

type aspectBefore struct{ aspectMethod }

func (a *aspectBefore) Validate() error {
	return a.validate(joinPointType, nil)
}

func (a *aspectBefore) Before(jp types.JoinPoint) error {
	return a.call(reflect.ValueOf(&jp).Elem())
}

type aspectAfter struct{ aspectMethod }

func (a *aspectAfter) Validate() error {
	return a.validate(joinPointType, nil)
}

func (a *aspectAfter) After(jp types.JoinPoint) error {
	return a.call(reflect.ValueOf(&jp).Elem())
}

type aspectAfterReturning struct{ aspectMethod }

func (a *aspectAfterReturning) Validate() error {
	return a.validate(joinPointType, func(reflect.Type) error { return nil })
}

// ReturningType is the type of the second parameter of the aspect method.
func (a *aspectAfterReturning) ReturningType() reflect.Type {
	if !a.fn.IsValid() || a.fn.Type().NumIn() < 2 {
		return nil
	}
	return a.fn.Type().In(1)
}

func (a *aspectAfterReturning) AfterReturning(jp types.JoinPoint, returnValue interface{}) error {
	return a.call(reflect.ValueOf(&jp).Elem(), valueOf(returnValue, a.ReturningType()))
}

type aspectAfterThrowing struct{ aspectMethod }

func (a *aspectAfterThrowing) Validate() error {
	return a.validate(joinPointType, func(t reflect.Type) error {
		if !t.Implements(errorType) {
			return fmt.Errorf("AfterThrowing advice method %s must take an error type, got %v", a.name, t)
		}
		return nil
	})
}

// ThrowingType is the type of the second parameter of the aspect method.
func (a *aspectAfterThrowing) ThrowingType() reflect.Type {
	if !a.fn.IsValid() || a.fn.Type().NumIn() < 2 {
		return nil
	}
	return a.fn.Type().In(1)
}

func (a *aspectAfterThrowing) AfterThrowing(jp types.JoinPoint, err error) error {
	return a.call(reflect.ValueOf(&jp).Elem(), valueOf(err, a.ThrowingType()))
}

type aspectAround struct{ aspectMethod }

func (a *aspectAround) Validate() error {
	if !a.fn.IsValid() {
		return fmt.Errorf("aspect %v has no exported method %s", a.aspectType, a.name)
	}
	ft := a.fn.Type()
	if ft.NumIn() != 1 || ft.In(0) != invocationType {
		return fmt.Errorf("Around advice method %s must take the types.Invocation continuation as its only parameter, got %v", a.name, ft)
	}
	if ft.NumOut() != 2 || ft.Out(0) != anyType || ft.Out(1) != errorType {
		return fmt.Errorf("Around advice method %s must return (interface{}, error), got %v", a.name, ft)
	}
	return nil
}

func (a *aspectAround) Around(inv types.Invocation) (interface{}, error) {
	out := a.fn.Call([]reflect.Value{reflect.ValueOf(&inv).Elem()})
	var err error
	if !out[1].IsNil() {
		err = out[1].Interface().(error)
	}
	return out[0].Interface(), err
}

var (
	_ types.BeforeAdvice         = (*aspectBefore)(nil)
	_ types.AfterAdvice          = (*aspectAfter)(nil)
	_ types.AfterReturningAdvice = (*aspectAfterReturning)(nil)
	_ types.ReturningTyped       = (*aspectAfterReturning)(nil)
	_ types.AfterThrowingAdvice  = (*aspectAfterThrowing)(nil)
	_ types.ThrowingTyped        = (*aspectAfterThrowing)(nil)
	_ types.AroundAdvice         = (*aspectAround)(nil)
)
