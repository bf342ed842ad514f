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
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/test/assert"
)

type auditAspect struct {
	r *recorder
}

func (a *auditAspect) LogBefore(jp types.JoinPoint) error {
	a.r.add("before " + jp.Method().Name)
	return nil
}

func (a *auditAspect) LogAfter(types.JoinPoint) {
	a.r.add("after")
}

func (a *auditAspect) Timed(inv types.Invocation) (interface{}, error) {
	a.r.add("around>")
	defer a.r.add("<around")
	return inv.Proceed()
}

func (a *auditAspect) OnUser(_ types.JoinPoint, u *user) error {
	a.r.add(fmt.Sprintf("user %v", u))
	return nil
}

func (a *auditAspect) OnCount(_ types.JoinPoint, n int) {
	a.r.add(fmt.Sprintf("count %d", n))
}

func (a *auditAspect) OnAny(jp types.JoinPoint, v interface{}) {
	a.r.add(fmt.Sprintf("any %s %v", jp.Method().Name, v))
}

func (a *auditAspect) OnNotFound(_ types.JoinPoint, err *notFoundError) error {
	a.r.add("not found " + err.Key)
	return nil
}

func (a *auditAspect) OnInvalid(_ types.JoinPoint, err *validationError) error {
	a.r.add("invalid " + err.Field)
	return nil
}

type namedAspect struct {
	auditAspect
}

func (namedAspect) AspectName() string {
	return "audit"
}

func TestAspectAdvisors(t *testing.T) {
	r := &recorder{}
	aspect := &auditAspect{r: r}
	advisors := AspectAdvisors(aspect, NameMatchPointcut("Get"), 5,
		After("LogAfter", nil),
		Before("LogBefore", nil),
		Around("Timed", nil),
	)
	assert.Equal(t, 3, len(advisors))
	for i, advisor := range advisors {
		meta := advisor.(types.AspectMetadata)
		assert.Equal(t, "*engine.auditAspect", meta.AspectName())
		assert.Equal(t, i, meta.DeclarationOrder())
		assert.Equal(t, 5, OrderOf(advisor))
	}

	proxy := newTestProxy(t, &userService{}, advisors...)
	_, err := proxy.Invoke("Get", "a")
	assert.Nil(t, err)
	// declaration order: After is the outermost
	assert.Equal(t, []string{"before Get", "around>", "<around", "after"}, r.list())

	r.reset()
	_, err = proxy.Invoke("Find", "a")
	assert.Nil(t, err)
	assert.Equal(t, 0, len(r.list()))

	named := AspectAdvisors(&namedAspect{auditAspect{r: r}}, nil, 0, Before("LogBefore", nil))
	assert.Equal(t, "audit", named[0].(types.AspectMetadata).AspectName())
}

func TestAspectAfterReturning(t *testing.T) {
	r := &recorder{}
	aspect := &auditAspect{r: r}
	proxy := newTestProxy(t, &userService{}, AspectAdvisors(aspect, nil, 0,
		AfterReturning("OnUser", nil),
		AfterReturning("OnCount", nil),
		AfterReturning("OnAny", NameMatchPointcut("Touch")),
	)...)

	_, err := proxy.Invoke("Find", "")
	assert.Nil(t, err)
	assert.Equal(t, []string{"user <nil>"}, r.list())

	r.reset()
	_, _ = proxy.Invoke("Count", "")
	assert.Equal(t, []string{"count 0"}, r.list())

	r.reset()
	_, _ = proxy.Invoke("Get", "a")
	_, _ = proxy.Invoke("Find", "missing")
	assert.Equal(t, 0, len(r.list()))

	r.reset()
	_, _ = proxy.Invoke("Touch")
	assert.Equal(t, []string{"any Touch <nil>"}, r.list())
}

func TestAspectAfterThrowing(t *testing.T) {
	r := &recorder{}
	aspect := &auditAspect{r: r}
	proxy := newTestProxy(t, &userService{}, AspectAdvisors(aspect, nil, 0,
		AfterThrowing("OnNotFound", nil),
		AfterThrowing("OnInvalid", nil),
	)...)
	_, err := proxy.Invoke("Fail", "k")
	assert.EqualError(t, err, "lookup failed: not found k")
	assert.Equal(t, []string{"not found k"}, r.list())
}

func TestAspectMethodValidation(t *testing.T) {
	aspect := &auditAspect{r: &recorder{}}
	cases := []AspectMethod{
		Before("Missing", nil),
		Before("OnUser", nil),
		AfterReturning("LogBefore", nil),
		AfterThrowing("OnCount", nil),
		Around("LogBefore", nil),
		After("Timed", nil),
	}
	for _, decl := range cases {
		advice := NewAspectMethodAdvice(aspect, decl)
		assert.Equal(t, decl.Kind, advice.Kind())
		assert.NotNil(t, advice.Validate(), decl.Kind.String()+" "+decl.Method)
	}
	assert.Nil(t, NewAspectMethodAdvice(aspect, AfterThrowing("OnNotFound", nil)).Validate())
	assert.Nil(t, NewAspectMethodAdvice(aspect, Around("Timed", nil)).Validate())
	assert.NotNil(t, NewAspectMethodAdvice(nil, Before("LogBefore", nil)).Validate())
	assert.Equal(t, "AfterThrowing", KindAfterThrowing.String())
}
