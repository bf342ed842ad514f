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
	"testing"

	"github.com/rulego/aop/api/types"
	reflectutil "github.com/rulego/aop/utils/reflect"
)

type UserService interface {
	Get(key string) (string, error)
}

type Auditable interface {
	LastAudit() string
}

type user struct {
	Name string
}

type notFoundError struct {
	Key string
}

func (e *notFoundError) Error() string {
	return "not found: " + e.Key
}

type validationError struct {
	Field string
}

func (e *validationError) Error() string {
	return "invalid field " + e.Field
}

// userService is the target of most tests.
type userService struct {
	calls int32
}

func (s *userService) Get(key string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	return "value-for-" + key, nil
}

func (s *userService) Find(key string) (*user, error) {
	atomic.AddInt32(&s.calls, 1)
	if key == "" {
		return nil, nil
	}
	if key == "missing" {
		return nil, &notFoundError{Key: key}
	}
	return &user{Name: key}, nil
}

func (s *userService) Fail(key string) error {
	atomic.AddInt32(&s.calls, 1)
	return fmt.Errorf("lookup failed: %w", &notFoundError{Key: key})
}

func (s *userService) Pair(a, b int) (int, string, error) {
	atomic.AddInt32(&s.calls, 1)
	return a + b, fmt.Sprintf("%d+%d", a, b), nil
}

func (s *userService) Sum(nums ...int) int {
	atomic.AddInt32(&s.calls, 1)
	total := 0
	for _, n := range nums {
		total += n
	}
	return total
}

func (s *userService) Touch() {
	atomic.AddInt32(&s.calls, 1)
}

func (s *userService) Count(key string) (int, error) {
	atomic.AddInt32(&s.calls, 1)
	return len(key), nil
}

func (s *userService) Explode() error {
	atomic.AddInt32(&s.calls, 1)
	panic("boom")
}

func (s *userService) Lookup(ctx context.Context, key string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "ctx-" + key, nil
}

func (s *userService) Calls() int {
	return int(atomic.LoadInt32(&s.calls))
}

type auditDelegate struct{}

func (auditDelegate) LastAudit() string {
	return "audited"
}

// recorder collects events of concurrent advice.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// aroundRecorder records enter/exit of an around advice named name.
func aroundRecorder(r *recorder, name string) types.AroundFunc {
	return func(inv types.Invocation) (interface{}, error) {
		r.add(name + ">")
		defer r.add("<" + name)
		return inv.Proceed()
	}
}

func methodOf(t *testing.T, target interface{}, name string) *types.Method {
	m, ok := reflectutil.MethodByName(reflect.TypeOf(target), name)
	if !ok {
		t.Fatalf("method %s not found", name)
	}
	return m
}

func newTestProxy(t *testing.T, target interface{}, advisors ...types.Advisor) *Proxy {
	factory := NewProxyFactory(types.NewConfig())
	proxy, err := factory.GetProxy(target, WithAdvisors(advisors...))
	if err != nil {
		t.Fatal(err)
	}
	return proxy
}
