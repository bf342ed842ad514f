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
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
	reflectutil "github.com/rulego/aop/utils/reflect"
)

var _ types.BeforeAdvice = (*ValidatorAspect)(nil)

// RuleFunc is a custom argument check. A returned error aborts the call.
type RuleFunc func(method *types.Method, args []interface{}) error

// ValidatorAspect checks the arguments of a call before it reaches the target:
// struct arguments (or pointers to structs) are validated with their `validate` tags,
// then every rule registered in Rules runs.
//
// ValidatorAspect 在调用前校验参数：结构体参数按 `validate` 标签校验，然后执行 Rules 中注册的规则。
type ValidatorAspect struct {
	validate *validator.Validate
	// Rules are the custom rules of this aspect, checked after the tags
	Rules *rules
}

func NewValidatorAspect() *ValidatorAspect {
	return &ValidatorAspect{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		Rules:    NewRules(),
	}
}

// NewValidatorAdvisor binds a new ValidatorAspect, running rules, to pointcut.
func NewValidatorAdvisor(pointcut types.Pointcut, rules ...RuleFunc) *engine.DefaultPointcutAdvisor {
	aspect := NewValidatorAspect()
	aspect.Rules.AddRule(rules...)
	return engine.NewPointcutAdvisor(pointcut, aspect)
}

func (a *ValidatorAspect) Order() int {
	return 10
}

// Validator returns the underlying validator, to register custom tags.
func (a *ValidatorAspect) Validator() *validator.Validate {
	return a.validate
}

func (a *ValidatorAspect) Before(jp types.JoinPoint) error {
	args := jp.Args()
	for i, arg := range args {
		if !isStruct(arg) {
			continue
		}
		if err := a.validate.Struct(arg); err != nil {
			return fmt.Errorf("%s: invalid argument %d: %w", jp.Method().Name, i, err)
		}
	}
	for _, rule := range a.Rules.Rules() {
		if err := rule(jp.Method(), args); err != nil {
			return err
		}
	}
	return nil
}

func isStruct(arg interface{}) bool {
	if arg == nil {
		return false
	}
	v := reflect.ValueOf(arg)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return false
	}
	return reflectutil.IndirectType(v.Type()).Kind() == reflect.Struct
}

type rules struct {
	rules        []RuleFunc
	sync.RWMutex // Reader-writer mutex for thread safety  用于线程安全的读写互斥锁
}

// NewRules creates an empty rule set.
func NewRules() *rules {
	return &rules{}
}

// AddRule appends rules. Rules run in the order they were added.
func (r *rules) AddRule(fn ...RuleFunc) {
	r.Lock()
	defer r.Unlock()
	r.rules = append(r.rules, fn...)
}

func (r *rules) Rules() []RuleFunc {
	r.RLock()
	defer r.RUnlock()
	return append([]RuleFunc(nil), r.rules...)
}
