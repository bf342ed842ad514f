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
	"reflect"

	"github.com/rulego/aop/api/types"
)

// SingletonTargetSource always returns the same target.
type SingletonTargetSource struct {
	target interface{}
}

func NewSingletonTargetSource(target interface{}) *SingletonTargetSource {
	return &SingletonTargetSource{target: target}
}

func (s *SingletonTargetSource) TargetType() reflect.Type {
	return reflect.TypeOf(s.target)
}

func (s *SingletonTargetSource) IsStatic() bool {
	return true
}

func (s *SingletonTargetSource) GetTarget() (interface{}, error) {
	if s.target == nil {
		return nil, types.ErrNilTarget
	}
	return s.target, nil
}

func (s *SingletonTargetSource) ReleaseTarget(interface{}) {
}

// PrototypeTargetSource creates a new target for every call.
// PrototypeTargetSource 每次调用都创建新的目标对象
type PrototypeTargetSource struct {
	targetType reflect.Type
	factory    func() (interface{}, error)
	// OnRelease is called with the target once its call completed. Optional.
	OnRelease func(target interface{})
}

// NewPrototypeTargetSource creates a target source calling factory for every call.
// targetType is the type of the created targets.
func NewPrototypeTargetSource(targetType reflect.Type, factory func() (interface{}, error)) *PrototypeTargetSource {
	return &PrototypeTargetSource{targetType: targetType, factory: factory}
}

func (p *PrototypeTargetSource) TargetType() reflect.Type {
	return p.targetType
}

func (p *PrototypeTargetSource) IsStatic() bool {
	return false
}

func (p *PrototypeTargetSource) GetTarget() (interface{}, error) {
	if p.factory == nil {
		return nil, types.ErrNilTarget
	}
	target, err := p.factory()
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, types.ErrNilTarget
	}
	return target, nil
}

func (p *PrototypeTargetSource) ReleaseTarget(target interface{}) {
	if p.OnRelease != nil {
		p.OnRelease(target)
	}
}

var (
	_ types.TargetSource = (*SingletonTargetSource)(nil)
	_ types.TargetSource = (*PrototypeTargetSource)(nil)
)
