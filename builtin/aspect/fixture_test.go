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


package aspect

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"go.opentelemetry.io/otel/trace"
)

var (
	errBackend = errors.New("backend unavailable")
	errFlaky   = errors.New("flaky")
)

type Item struct {
	Name  string `validate:"required"`
	Count int    `validate:"gte=0"`
}

type itemService struct {
	calls    int64
	failures int64
	notified chan string
}

func newItemService() *itemService {
	return &itemService{notified: make(chan string, 10)}
}

func (s *itemService) Get(key string) (string, error) {
	atomic.AddInt64(&s.calls, 1)
	return "item-" + key, nil
}

// Flaky fails until it was called more than s.failures times
func (s *itemService) Flaky(key string) (string, error) {
	n := atomic.AddInt64(&s.calls, 1)
	if n <= atomic.LoadInt64(&s.failures) {
		return "", errFlaky
	}
	return "ok-" + key, nil
}

func (s *itemService) FlakyCtx(ctx context.Context, key string) (string, error) {
	atomic.AddInt64(&s.calls, 1)
	return "", errFlaky
}

func (s *itemService) Fail() error {
	atomic.AddInt64(&s.calls, 1)
	return errBackend
}

func (s *itemService) Nothing() (interface{}, error) {
	atomic.AddInt64(&s.calls, 1)
	return nil, nil
}

func (s *itemService) Save(item *Item) error {
	atomic.AddInt64(&s.calls, 1)
	return nil
}

func (s *itemService) Block(release chan struct{}) error {
	atomic.AddInt64(&s.calls, 1)
	<-release
	return nil
}

func (s *itemService) Notify(msg string) {
	atomic.AddInt64(&s.calls, 1)
	s.notified <- msg
}

func (s *itemService) NotifyFail(msg string) error {
	atomic.AddInt64(&s.calls, 1)
	return errBackend
}

func (s *itemService) Explode() {
	panic("boom")
}

// TraceId returns the trace id of the span carried by ctx
func (s *itemService) TraceId(ctx context.Context) (string, error) {
	return trace.SpanFromContext(ctx).SpanContext().TraceID().String(), nil
}

func (s *itemService) Calls() int {
	return int(atomic.LoadInt64(&s.calls))
}

func newProxy(t *testing.T, config types.Config, target interface{}, advisors ...types.Advisor) *engine.Proxy {
	proxy, err := engine.NewProxyFactory(config).GetProxy(target, engine.WithAdvisors(advisors...))
	if err != nil {
		t.Fatal(err)
	}
	return proxy
}

func methodOf(t *testing.T, proxy *engine.Proxy, name string) *types.Method {
	m, ok := proxy.Advised().Method(name)
	if !ok {
		t.Fatalf("method %s not found", name)
	}
	return m
}
