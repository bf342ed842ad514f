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


// Package pointcut provides scripted pointcuts. Their method matcher is an expression or a
// JavaScript function evaluated over the target type, the method and, for runtime pointcuts,
// the arguments of the call.
//
// Package pointcut 提供脚本切入点，使用表达式或 JavaScript 函数匹配目标类型、方法以及调用参数。
package pointcut

import (
	"errors"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	"github.com/rulego/aop/utils/maps"
	reflectutil "github.com/rulego/aop/utils/reflect"
	"github.com/rulego/aop/utils/str"
)

// Variables visible to pointcut expressions and scripts.
const (
	// TypeKey is the qualified name of the target type, such as "github.com/acme/order.Service"
	TypeKey = "targetType"
	// TypeNameKey is the name of the target type without package
	TypeNameKey = "typeName"
	// MethodKey is the method name
	MethodKey = "method"
	// NumInKey is the number of parameters of the method
	NumInKey = "numIn"
	// ArgsKey holds the arguments of the call; referencing it makes the pointcut a runtime one
	ArgsKey = "args"
	// GlobalKey holds Config.Properties
	GlobalKey = "global"
	// GlobFuncKey is the wildcard match function, glob("Get*", method)
	GlobFuncKey = "glob"
)

var ErrEmptyExpression = errors.New("pointcut expression can not be empty")

// ExprPointcutConfiguration 配置
type ExprPointcutConfiguration struct {
	// Expr is a boolean expression, for example:
	//	typeName == "OrderService" && glob("Get*", method)
	//	method == "Save" && len(args) > 0 && args[0] != nil
	Expr string
}

var (
	_ types.Pointcut      = (*ExprPointcut)(nil)
	_ types.MethodMatcher = (*ExprPointcut)(nil)
)

// ExprPointcut matches the methods for which an expr-lang expression evaluates to true.
// The expression is static unless it references args, in which case it is evaluated on every call.
// An expression that fails to evaluate does not match.
//
// ExprPointcut 表达式切入点，表达式引用 args 时在每次调用时求值
type ExprPointcut struct {
	Config  ExprPointcutConfiguration
	config  types.Config
	program *vm.Program
	runtime bool
}

// NewExprPointcut compiles expression.
func NewExprPointcut(config types.Config, expression string) (*ExprPointcut, error) {
	p := &ExprPointcut{}
	if err := p.Init(config, types.Configuration{"expr": expression}); err != nil {
		return nil, err
	}
	return p, nil
}

// Init 初始化
func (p *ExprPointcut) Init(config types.Config, configuration types.Configuration) error {
	if err := maps.Map2Struct(configuration, &p.Config); err != nil {
		return err
	}
	if p.Config.Expr == "" {
		return ErrEmptyExpression
	}
	p.config = config
	// compiling without args tells whether the expression depends on the call
	if program, err := expr.Compile(p.Config.Expr, expr.Env(p.env(nil, nil, nil, false)), expr.AsBool()); err == nil {
		p.program = program
		p.runtime = false
		return nil
	}
	program, err := expr.Compile(p.Config.Expr, expr.Env(p.env(nil, nil, nil, true)), expr.AsBool())
	if err != nil {
		return err
	}
	p.program = program
	p.runtime = true
	return nil
}

func (p *ExprPointcut) ClassFilter() types.ClassFilter {
	return engine.TrueClassFilter
}

func (p *ExprPointcut) MethodMatcher() types.MethodMatcher {
	return p
}

func (p *ExprPointcut) IsRuntime() bool {
	return p.runtime
}

// MatchesStatically evaluates a static expression. Runtime expressions are undecided until the call.
func (p *ExprPointcut) MatchesStatically(m *types.Method, targetType reflect.Type) bool {
	if p.runtime {
		return true
	}
	return p.eval(p.env(m, targetType, nil, false))
}

func (p *ExprPointcut) MatchesDynamically(m *types.Method, targetType reflect.Type, args []interface{}) bool {
	return p.eval(p.env(m, targetType, args, true))
}

func (p *ExprPointcut) eval(env map[string]interface{}) bool {
	out, err := vm.Run(p.program, env)
	if err != nil {
		types.Printf(p.config.Logger, "pointcut expression %s error: %s", p.Config.Expr, err.Error())
		return false
	}
	result, ok := out.(bool)
	return ok && result
}

func (p *ExprPointcut) env(m *types.Method, targetType reflect.Type, args []interface{}, withArgs bool) map[string]interface{} {
	env := map[string]interface{}{
		TypeKey:     reflectutil.QualifiedName(targetType),
		TypeNameKey: reflectutil.SimpleName(targetType),
		MethodKey:   "",
		NumInKey:    0,
		GlobalKey:   p.config.Properties,
		GlobFuncKey: str.Match,
	}
	if m != nil {
		env[MethodKey] = m.Name
		env[NumInKey] = m.NumIn()
	}
	if withArgs {
		if args == nil {
			args = []interface{}{}
		}
		env[ArgsKey] = args
	}
	return env
}

func (p *ExprPointcut) String() string {
	return "expr(" + p.Config.Expr + ")"
}
