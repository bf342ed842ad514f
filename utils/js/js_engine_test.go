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

package js

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/test/assert"
)

func TestGojaJsEngine(t *testing.T) {
	config := types.NewConfig(types.WithProperties(map[string]string{"prefix": "Get"}))
	script := `
function matches(name, args) {
	return name.indexOf(global.prefix) === 0 && args.length === limit;
}`
	engine, err := NewGojaJsEngine(config, script, map[string]interface{}{"limit": 1})
	assert.Nil(t, err)

	out, err := engine.Execute(context.Background(), "matches", "GetUser", []interface{}{"a"})
	assert.Nil(t, err)
	assert.Equal(t, true, out)

	out, err = engine.Execute(context.Background(), "matches", "SetUser", []interface{}{"a"})
	assert.Nil(t, err)
	assert.Equal(t, false, out)

	_, err = engine.Execute(context.Background(), "notFound")
	assert.NotNil(t, err)
}

func TestGojaJsEngineCompileError(t *testing.T) {
	_, err := NewGojaJsEngine(types.NewConfig(), "function (", nil)
	assert.NotNil(t, err)

	_, err = NewGojaJsEngine(types.NewConfig(), "throw new Error('init')", nil)
	assert.NotNil(t, err)
}

func TestGojaJsEngineTimeout(t *testing.T) {
	config := types.NewConfig(types.WithScriptMaxExecutionTime(50 * time.Millisecond))
	engine, err := NewGojaJsEngine(config, "function loop() { while (true) {} }\nfunction ok() { return 1 }", nil)
	assert.Nil(t, err)
	_, err = engine.Execute(context.Background(), "loop")
	assert.NotNil(t, err)

	// the interrupted VM is reusable
	out, err := engine.Execute(context.Background(), "ok")
	assert.Nil(t, err)
	assert.Equal(t, int64(1), out)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = engine.Execute(ctx, "loop")
	assert.NotNil(t, err)
	assert.True(t, time.Since(start) < 50*time.Millisecond+time.Second)
}

func TestGojaJsEngineConcurrent(t *testing.T) {
	engine, err := NewGojaJsEngine(types.NewConfig(), "function add(a, b) { return a + b }", nil)
	assert.Nil(t, err)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := engine.Execute(context.Background(), "add", i, 1)
			assert.Nil(t, err)
			assert.Equal(t, int64(i+1), out)
		}(i)
	}
	wg.Wait()
}
