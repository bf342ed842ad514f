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
	"bytes"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/rulego/aop/test/assert"
)

type debugEvent struct {
	proxyId  string
	flowType string
	method   string
	result   interface{}
	err      error
}

func TestDebugAspect(t *testing.T) {
	var lock sync.Mutex
	var events []debugEvent
	config := types.NewConfig(types.WithOnDebug(func(proxyId string, flowType string, method *types.Method, args []interface{}, result interface{}, err error) {
		lock.Lock()
		defer lock.Unlock()
		events = append(events, debugEvent{proxyId: proxyId, flowType: flowType, method: method.Name, result: result, err: err})
	}))
	proxy := newProxy(t, config, newItemService(), NewDebugAdvisor(engine.NameMatchPointcut("Get", "Fail"), config))
	assert.Equal(t, 900, engine.OrderOf(proxy.Advisors()[0]))

	_, _ = proxy.Invoke("Get", "a")
	_, _ = proxy.Invoke("Fail")
	_, _ = proxy.Invoke("Nothing")

	assert.Equal(t, 4, len(events))
	assert.Equal(t, debugEvent{proxyId: proxy.ProxyId(), flowType: types.In, method: "Get"}, events[0])
	assert.Equal(t, debugEvent{proxyId: proxy.ProxyId(), flowType: types.Out, method: "Get", result: "item-a"}, events[1])
	assert.Equal(t, types.In, events[2].flowType)
	assert.Equal(t, errBackend, events[3].err)
}

func TestDebugAspectLogger(t *testing.T) {
	var buf bytes.Buffer
	config := types.NewConfig(types.WithLogger(log.New(&buf, "", 0)))
	proxy := newProxy(t, config, newItemService(), NewDebugAdvisor(nil, config))
	_, _ = proxy.Invoke("Get", "a")
	_, _ = proxy.Invoke("Fail")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, 4, len(lines))
	assert.Equal(t, proxy.ProxyId()+" IN Get args=[a]", lines[0])
	assert.Equal(t, proxy.ProxyId()+" OUT Get result=item-a", lines[1])
	assert.Equal(t, proxy.ProxyId()+" OUT Fail err="+errBackend.Error(), lines[3])
}
