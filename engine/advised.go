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
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rulego/aop/api/types"
	reflectutil "github.com/rulego/aop/utils/reflect"
)

// AdvisedSupport is the configuration behind a proxy: target source, exposed interfaces and advisors.
// Every change of the advisor list builds a new immutable snapshot that replaces the previous one
// atomically, so a call always sees the advisors, the method table and the chain cache of one snapshot.
//
// AdvisedSupport 代理的配置。每次修改 Advisor 列表都会生成新的不可变快照并原子替换，
// 调用过程中看到的 Advisor、方法表和拦截器链缓存总是来自同一个快照
type AdvisedSupport struct {
	config       types.Config
	targetSource types.TargetSource
	interfaces   []reflect.Type
	chainFactory *AdvisorChainFactory
	frozen       bool
	// mu serializes writers, readers only load the snapshot
	mu       sync.Mutex
	snapshot atomic.Pointer[advisedSnapshot]
}

type advisedSnapshot struct {
	// advisors sorted by the ordering policy
	advisors []types.Advisor
	// eligible are the advisors that can apply to the target
	eligible         []types.Advisor
	hasIntroductions bool
	methods          map[string]*types.Method
	// chains caches the interceptor chain of each method name
	chains sync.Map
}

// NewAdvisedSupport validates the configuration and builds its first snapshot.
// Configuration errors, such as an advice that can not be adapted, are returned here.
func NewAdvisedSupport(config types.Config, targetSource types.TargetSource, interfaces []reflect.Type, advisors []types.Advisor, chainFactory *AdvisorChainFactory) (*AdvisedSupport, error) {
	if targetSource == nil || targetSource.TargetType() == nil {
		return nil, types.ErrNilTarget
	}
	targetType := targetSource.TargetType()
	for _, iface := range interfaces {
		if iface == nil || iface.Kind() != reflect.Interface {
			return nil, fmt.Errorf("%v is not an interface: %w", iface, types.ErrNotImplemented)
		}
		if !targetType.Implements(iface) {
			return nil, fmt.Errorf("%v does not implement %v: %w", targetType, iface, types.ErrNotImplemented)
		}
	}
	if chainFactory == nil {
		chainFactory = NewAdvisorChainFactory(nil)
	}
	a := &AdvisedSupport{
		config:       config,
		targetSource: targetSource,
		interfaces:   interfaces,
		chainFactory: chainFactory,
		frozen:       config.Frozen,
	}
	snap, err := a.buildSnapshot(advisors)
	if err != nil {
		return nil, err
	}
	a.snapshot.Store(snap)
	return a, nil
}

func (a *AdvisedSupport) buildSnapshot(advisors []types.Advisor) (*advisedSnapshot, error) {
	targetType := a.targetSource.TargetType()
	sorted := SortAdvisors(advisors)
	snap := &advisedSnapshot{
		advisors: sorted,
		eligible: FindAdvisorsThatCanApply(sorted, targetType, a.interfaces...),
		methods:  make(map[string]*types.Method),
	}

	exposed := a.interfaces
	if len(exposed) == 0 {
		exposed = []reflect.Type{targetType}
	}
	for _, t := range exposed {
		for _, m := range reflectutil.Methods(t) {
			if err := snap.addMethod(m, false); err != nil {
				return nil, err
			}
		}
	}

	for _, advisor := range snap.eligible {
		if ia, ok := advisor.(types.IntroductionAdvisor); ok {
			if err := ia.ValidateInterfaces(); err != nil {
				return nil, &types.ConfigError{Advisor: describe(advisor), Reason: err}
			}
			snap.hasIntroductions = true
			for _, iface := range ia.Interfaces() {
				for _, m := range reflectutil.Methods(iface) {
					if err := snap.addMethod(m, true); err != nil {
						return nil, &types.ConfigError{Advisor: describe(advisor), Method: m.String(), Reason: err}
					}
				}
			}
		}
		// adapters are checked for every eligible advisor
		if _, err := a.chainFactory.Registry().GetInterceptors(advisor); err != nil {
			return nil, err
		}
	}

	if a.config.EagerInit {
		for _, m := range snap.methods {
			if _, err := a.chainOf(snap, m); err != nil {
				return nil, err
			}
		}
	}
	return snap, nil
}

// addMethod registers m by name. An introduced method replaces a method with the same signature,
// a different signature under the same name is a conflict.
func (s *advisedSnapshot) addMethod(m *types.Method, introduced bool) error {
	existing, ok := s.methods[m.Name]
	if !ok {
		s.methods[m.Name] = m
		return nil
	}
	if existing.Signature != m.Signature {
		return fmt.Errorf("method %s conflicts with %s", m, existing)
	}
	if introduced {
		s.methods[m.Name] = m
	}
	return nil
}

func (a *AdvisedSupport) chainOf(snap *advisedSnapshot, m *types.Method) ([]interface{}, error) {
	if chain, ok := snap.chains.Load(m.Name); ok {
		return chain.([]interface{}), nil
	}
	chain, err := a.chainFactory.GetInterceptors(snap.eligible, m, a.targetSource.TargetType(), snap.hasIntroductions, true)
	if err != nil {
		types.Printf(a.config.Logger, "build interceptor chain of %s error: %s", m, err)
		return nil, err
	}
	// concurrent builders produce equivalent chains, the first stored wins
	actual, _ := snap.chains.LoadOrStore(m.Name, chain)
	return actual.([]interface{}), nil
}

// GetInterceptors returns the cached interceptor chain of a method, building it on first use.
// GetInterceptors 返回方法的拦截器链，首次调用时构建并缓存
func (a *AdvisedSupport) GetInterceptors(m *types.Method) ([]interface{}, error) {
	return a.chainOf(a.snapshot.Load(), m)
}

// Method returns the exposed method name.
func (a *AdvisedSupport) Method(name string) (*types.Method, bool) {
	m, ok := a.snapshot.Load().methods[name]
	return m, ok
}

// Methods returns the exposed methods sorted by name.
func (a *AdvisedSupport) Methods() []*types.Method {
	snap := a.snapshot.Load()
	methods := make([]*types.Method, 0, len(snap.methods))
	for _, m := range snap.methods {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool {
		return methods[i].Name < methods[j].Name
	})
	return methods
}

// Advisors returns a copy of the configured advisors in chain order.
func (a *AdvisedSupport) Advisors() []types.Advisor {
	return append([]types.Advisor(nil), a.snapshot.Load().advisors...)
}

// EligibleAdvisors returns a copy of the advisors that can apply to the target.
func (a *AdvisedSupport) EligibleAdvisors() []types.Advisor {
	return append([]types.Advisor(nil), a.snapshot.Load().eligible...)
}

// HasIntroductions reports whether an introduction advisor applies to the target.
func (a *AdvisedSupport) HasIntroductions() bool {
	return a.snapshot.Load().hasIntroductions
}

// AddAdvisor appends advisors. The chain cache of the previous snapshot is discarded with it.
func (a *AdvisedSupport) AddAdvisor(advisors ...types.Advisor) error {
	if a.frozen {
		types.Printf(a.config.Logger, "add advisor to frozen proxy of %v rejected", a.TargetType())
		return types.ErrFrozen
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	current := a.snapshot.Load().advisors
	next := make([]types.Advisor, 0, len(current)+len(advisors))
	next = append(next, current...)
	next = append(next, advisors...)
	return a.replace(next)
}

// RemoveAdvisor removes advisor and reports whether it was present.
func (a *AdvisedSupport) RemoveAdvisor(advisor types.Advisor) (bool, error) {
	if a.frozen {
		types.Printf(a.config.Logger, "remove advisor from frozen proxy of %v rejected", a.TargetType())
		return false, types.ErrFrozen
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	current := a.snapshot.Load().advisors
	next := make([]types.Advisor, 0, len(current))
	found := false
	for _, existing := range current {
		if !found && sameAdvisor(existing, advisor) {
			found = true
			continue
		}
		next = append(next, existing)
	}
	if !found {
		return false, nil
	}
	return true, a.replace(next)
}

func (a *AdvisedSupport) replace(advisors []types.Advisor) error {
	snap, err := a.buildSnapshot(advisors)
	if err != nil {
		return err
	}
	a.snapshot.Store(snap)
	return nil
}

func sameAdvisor(a, b types.Advisor) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	return ta == tb && ta != nil && ta.Comparable() && a == b
}

// IsFrozen reports whether the advisor list is immutable.
func (a *AdvisedSupport) IsFrozen() bool {
	return a.frozen
}

// TargetSource returns the target source.
func (a *AdvisedSupport) TargetSource() types.TargetSource {
	return a.targetSource
}

// TargetType returns the type of the target.
func (a *AdvisedSupport) TargetType() reflect.Type {
	return a.targetSource.TargetType()
}

// Interfaces returns the exposed interfaces, empty for a proxy of the concrete type.
func (a *AdvisedSupport) Interfaces() []reflect.Type {
	return append([]reflect.Type(nil), a.interfaces...)
}
