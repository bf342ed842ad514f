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

// Package js provides JavaScript execution for scripted pointcuts.
//
// The engine uses the goja library. The script is compiled once, and every
// pooled VM runs it before serving calls, so the functions it declares can be
// executed concurrently. Each call is interrupted after
// Config.ScriptMaxExecutionTime or when its context is done.
package js

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/rulego/aop/api/types"
)

const (
	//GlobalKey  global properties key,call them through the global.xx method
	GlobalKey = "global"
)

// GojaJsEngine goja js engine
type GojaJsEngine struct {
	vmPool   sync.Pool
	config   types.Config
	jsScript *goja.Program
}

// NewGojaJsEngine Create a new instance of the JavaScript engine.
// vars are set as global variables of every VM.
func NewGojaJsEngine(config types.Config, jsScript string, vars map[string]interface{}) (*GojaJsEngine, error) {
	program, err := goja.Compile("", jsScript, true)
	if err != nil {
		return nil, err
	}
	jsEngine := &GojaJsEngine{
		config:   config,
		jsScript: program,
	}
	// the script must run on a fresh VM without error once, later VMs only log failures
	vm, err := jsEngine.newVm(vars)
	if err != nil {
		return nil, err
	}
	jsEngine.vmPool.Put(vm)
	jsEngine.vmPool.New = func() interface{} {
		vm, err := jsEngine.newVm(vars)
		if err != nil {
			types.Printf(config.Logger, "js vm error: %s", err.Error())
		}
		return vm
	}
	return jsEngine, nil
}

func (g *GojaJsEngine) newVm(vars map[string]interface{}) (*goja.Runtime, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	for k, v := range vars {
		if err := vm.Set(k, v); err != nil {
			return nil, fmt.Errorf("set var %s error: %w", k, err)
		}
	}
	if len(g.config.Properties) != 0 {
		if err := vm.Set(GlobalKey, g.config.Properties); err != nil {
			return nil, fmt.Errorf("set global properties error: %w", err)
		}
	}
	stop := g.startTimeout(context.Background(), vm)
	_, err := vm.RunProgram(g.jsScript)
	stop()
	vm.ClearInterrupt()
	return vm, err
}

// Execute calls the script function functionName with the given arguments and exports its result.
func (g *GojaJsEngine) Execute(ctx context.Context, functionName string, argumentList ...interface{}) (out interface{}, err error) {
	defer func() {
		if caught := recover(); caught != nil {
			err = fmt.Errorf("%s", caught)
		}
	}()

	vm := g.vmPool.Get().(*goja.Runtime)
	stop := g.startTimeout(ctx, vm)
	defer func() {
		stop()
		// an interrupted VM must be reset before it is reused
		vm.ClearInterrupt()
		g.vmPool.Put(vm)
	}()

	f, ok := goja.AssertFunction(vm.Get(functionName))
	if !ok {
		return nil, errors.New(functionName + " is not a function")
	}

	var params []goja.Value
	if len(argumentList) > 0 {
		params = make([]goja.Value, len(argumentList))
		for i, v := range argumentList {
			params[i] = vm.ToValue(v)
		}
	}

	res, err := f(goja.Undefined(), params...)
	if err != nil {
		return nil, err
	}
	return res.Export(), nil
}

// startTimeout interrupts vm after ScriptMaxExecutionTime or when ctx is done.
// The returned function releases the watchers.
func (g *GojaJsEngine) startTimeout(ctx context.Context, vm *goja.Runtime) func() {
	var timer *time.Timer
	if g.config.ScriptMaxExecutionTime > 0 {
		timer = time.AfterFunc(g.config.ScriptMaxExecutionTime, func() {
			vm.Interrupt("execution timeout")
		})
	}
	var stopCtx func() bool
	if ctx != nil && ctx.Done() != nil {
		stopCtx = context.AfterFunc(ctx, func() {
			vm.Interrupt(ctx.Err())
		})
	}
	return func() {
		if timer != nil {
			timer.Stop()
		}
		if stopCtx != nil {
			stopCtx()
		}
	}
}
