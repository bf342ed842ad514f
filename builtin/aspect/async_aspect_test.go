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
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/rulego/aop/test/assert"
	"github.com/rulego/aop/utils/pool"
)

type fullPool struct{}

func (fullPool) Submit(func()) error {
	return types.ErrNoIdleWorkers
}

func (fullPool) Release() {}

func receive(t *testing.T, ch chan string) string {
	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
		return ""
	}
}

func TestAsyncAspect(t *testing.T) {
	wp := pool.NewWorkerPool(2, time.Minute)
	defer wp.Release()
	for _, config := range []types.Config{types.NewConfig(), types.NewConfig(types.WithPool(wp))} {
		target := newItemService()
		proxy := newProxy(t, config, target, NewAsyncAdvisor(nil, config))

		result, err := proxy.Invoke("Notify", "hello")
		assert.Nil(t, err)
		assert.Nil(t, result)
		assert.Equal(t, "hello", receive(t, target.notified))

		// methods with a result stay synchronous
		result, err = proxy.Invoke("Get", "a")
		assert.Nil(t, err)
		assert.Equal(t, "item-a", result)
	}
}

func TestAsyncAspectErrors(t *testing.T) {
	config := types.NewConfig()
	var wg sync.WaitGroup
	wg.Add(1)
	var failed error
	proxy := newProxy(t, config, newItemService(), NewAsyncAdvisor(nil, config))
	async := proxy.Advisors()[0].Advice().(*AsyncAspect)
	assert.Equal(t, 60, async.Order())
	async.OnError = func(method *types.Method, err error) {
		failed = err
		wg.Done()
	}
	_, err := proxy.Invoke("NotifyFail", "x")
	assert.Nil(t, err)
	wg.Wait()
	assert.Equal(t, errBackend, failed)

	full := types.NewConfig(types.WithPool(fullPool{}))
	proxy = newProxy(t, full, newItemService(), NewAsyncAdvisor(nil, full))
	_, err = proxy.Invoke("Notify", "x")
	assert.Equal(t, types.ErrNoIdleWorkers, err)
}

func TestAsyncAspectDefaultPool(t *testing.T) {
	async := NewAsyncAspect(types.NewConfig())
	assert.Equal(t, pool.DefaultPool(), async.pool)

	wp := pool.NewWorkerPool(1, time.Minute)
	defer wp.Release()
	async = NewAsyncAspect(types.NewConfig(types.WithPool(wp)))
	assert.Equal(t, types.Pool(wp), async.pool)
}

func TestAsyncAspectHoldsPrototypeTarget(t *testing.T) {
	// Notify blocks until the message is received
	target := &itemService{notified: make(chan string)}
	var released int32
	releasedCh := make(chan struct{}, 1)
	ts := engine.NewPrototypeTargetSource(reflect.TypeOf(target), func() (interface{}, error) {
		return target, nil
	})
	ts.OnRelease = func(interface{}) {
		atomic.AddInt32(&released, 1)
		releasedCh <- struct{}{}
	}
	config := types.NewConfig()
	proxy, err := engine.NewProxyFactory(config).GetProxy(nil, engine.WithTargetSource(ts), engine.WithAdvisors(NewAsyncAdvisor(nil, config)))
	assert.Nil(t, err)

	_, err = proxy.Invoke("Notify", "hello")
	assert.Nil(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&released))

	assert.Equal(t, "hello", receive(t, target.notified))
	select {
	case <-releasedCh:
	case <-time.After(5 * time.Second):
		t.Fatal("target not released")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&released))

	// a rejected task releases the target at once
	full := types.NewConfig(types.WithPool(fullPool{}))
	proxy, err = engine.NewProxyFactory(full).GetProxy(nil, engine.WithTargetSource(ts), engine.WithAdvisors(NewAsyncAdvisor(nil, full)))
	assert.Nil(t, err)
	_, err = proxy.Invoke("Notify", "x")
	assert.Equal(t, types.ErrNoIdleWorkers, err)
	<-releasedCh
	assert.Equal(t, int32(2), atomic.LoadInt32(&released))
}
