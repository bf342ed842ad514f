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


package pointcut

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/rulego/aop/utils/js"
	"github.com/rulego/aop/utils/maps"
	reflectutil "github.com/rulego/aop/utils/reflect"
)

// JsMatchFunc is the name of the function wrapping the script.
const JsMatchFunc = "Match"

var ErrEmptyScript = errors.New("pointcut script can not be empty")

// JsPointcutConfiguration 配置
type JsPointcutConfiguration struct {
	//function Match(targetType, typeName, method, args) { ${JsScript} }
	//return bool
	JsScript string
	// Runtime evaluates the script on every call with the arguments.
	// Otherwise it runs once per method with args undefined.
	Runtime bool
}

var (
	_ types.Pointcut      = (*JsPointcut)(nil)
	_ types.MethodMatcher = (*JsPointcut)(nil)
)

// JsPointcut matches the methods for which a JavaScript function returns true.
// Config.Properties are visible to the script as `global`.
//
// JsPointcut js 脚本切入点
type JsPointcut struct {
	Config   JsPointcutConfiguration
	config   types.Config
	jsEngine *js.GojaJsEngine
}

// NewJsPointcut compiles the script body, for example `return method.startsWith("Get");`.
func NewJsPointcut(config types.Config, jsScript string, runtime bool) (*JsPointcut, error) {
	p := &JsPointcut{}
	if err := p.Init(config, types.Configuration{"jsScript": jsScript, "runtime": runtime}); err != nil {
		return nil, err
	}
	return p, nil
}

// Init 初始化
func (p *JsPointcut) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &p.Config); err != nil {
		return err
	}
	if p.Config.JsScript == "" {
		return ErrEmptyScript
	}
	p.config = config
	jsScript := fmt.Sprintf("function %s(targetType, typeName, method, args) { %s }", JsMatchFunc, p.Config.JsScript)
	jsEngine, err := js.NewGojaJsEngine(config, jsScript, nil)
	if err != nil {
		return err
	}
	p.jsEngine = jsEngine
	return nil
}

func (p *JsPointcut) ClassFilter() types.ClassFilter {
	return engine.TrueClassFilter
}

func (p *JsPointcut) MethodMatcher() types.MethodMatcher {
	return p
}

func (p *JsPointcut) IsRuntime() bool {
	return p.Config.Runtime
}

func (p *JsPointcut) MatchesStatically(m *types.Method, targetType reflect.Type) bool {
	if p.Config.Runtime {
		return true
	}
	return p.match(context.Background(), m, targetType, nil)
}

func (p *JsPointcut) MatchesDynamically(m *types.Method, targetType reflect.Type, args []interface{}) bool {
	ctx := context.Background()
	if len(args) > 0 {
		if c, ok := args[0].(context.Context); ok && c != nil {
			ctx = c
		}
	}
	return p.match(ctx, m, targetType, args)
}

func (p *JsPointcut) match(ctx context.Context, m *types.Method, targetType reflect.Type, args []interface{}) bool {
	var jsArgs interface{}
	if args != nil {
		jsArgs = args
	}
	out, err := p.jsEngine.Execute(ctx, JsMatchFunc,
		reflectutil.QualifiedName(targetType), reflectutil.SimpleName(targetType), m.Name, jsArgs)
	if err != nil {
		types.Printf(p.config.Logger, "pointcut script %s error: %s", m.Name, err.Error())
		return false
	}
	result, ok := out.(bool)
	return ok && result
}
