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

// Package engine implements the aspect oriented proxy engine.
//
// A ProxyFactory wraps a target with the advisors that can apply to it. Calling a method of the
// Proxy, either dynamically with Invoke or through a struct of funcs filled by Bind, builds
// (once per method, then cached) the ordered interceptor chain of that method and drives a
// MethodInvocation through it. Methods without interceptors are called directly on the target.
//
// Package engine 实现面向切面的代理引擎。
//
// ProxyFactory 使用可以作用于目标对象的 Advisor 创建代理。通过 Invoke 或 Bind 生成的函数调用代理方法时，
// 引擎按方法构建(并缓存)有序的拦截器链，并通过 MethodInvocation 依次执行。
package engine

import (
	"fmt"
	"reflect"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/utils/str"
)

// ProxyOption configures one proxy created by ProxyFactory.GetProxy.
type ProxyOption func(o *proxyOptions) error

type proxyOptions struct {
	interfaces   []reflect.Type
	advisors     []types.Advisor
	targetSource types.TargetSource
	frozen       *bool
}

// WithInterfaces exposes only the methods of the interfaces instead of the method set of the target.
// WithInterfaces 代理只暴露指定接口的方法
func WithInterfaces(interfaces ...reflect.Type) ProxyOption {
	return func(o *proxyOptions) error {
		o.interfaces = append(o.interfaces, interfaces...)
		return nil
	}
}

// WithAdvisors adds advisors to this proxy, after the advisors of the factory.
func WithAdvisors(advisors ...types.Advisor) ProxyOption {
	return func(o *proxyOptions) error {
		o.advisors = append(o.advisors, advisors...)
		return nil
	}
}

// WithTargetSource serves the calls from a target source instead of a fixed target.
func WithTargetSource(targetSource types.TargetSource) ProxyOption {
	return func(o *proxyOptions) error {
		o.targetSource = targetSource
		return nil
	}
}

// WithFrozen overrides Config.Frozen for this proxy.
func WithFrozen(frozen bool) ProxyOption {
	return func(o *proxyOptions) error {
		o.frozen = &frozen
		return nil
	}
}

// ProxyFactory creates proxies sharing a configuration and a list of advisors.
// ProxyFactory 代理工厂
type ProxyFactory struct {
	config       types.Config
	advisors     []types.Advisor
	chainFactory *AdvisorChainFactory
}

// NewProxyFactory creates a factory whose advisors are candidates of every proxy.
func NewProxyFactory(config types.Config, advisors ...types.Advisor) *ProxyFactory {
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	return &ProxyFactory{
		config:       config,
		advisors:     advisors,
		chainFactory: NewAdvisorChainFactory(nil),
	}
}

// WithAdapterRegistry makes the factory adapt advice with registry.
func (f *ProxyFactory) WithAdapterRegistry(registry *AdvisorAdapterRegistry) *ProxyFactory {
	f.chainFactory = NewAdvisorChainFactory(registry)
	return f
}

// Config returns the configuration of the factory.
func (f *ProxyFactory) Config() types.Config {
	return f.config
}

// GetProxy creates a proxy of target. Configuration errors are returned here and never at call time.
// GetProxy 创建目标对象的代理，配置错误在此返回
func (f *ProxyFactory) GetProxy(target interface{}, opts ...ProxyOption) (*Proxy, error) {
	var o proxyOptions
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	targetSource := o.targetSource
	if targetSource == nil {
		if target == nil {
			return nil, types.ErrNilTarget
		}
		targetSource = NewSingletonTargetSource(target)
	}
	config := f.config
	if o.frozen != nil {
		config.Frozen = *o.frozen
	}
	candidates := make([]types.Advisor, 0, len(f.advisors)+len(o.advisors))
	candidates = append(candidates, f.advisors...)
	candidates = append(candidates, o.advisors...)

	advised, err := NewAdvisedSupport(config, targetSource, o.interfaces, candidates, f.chainFactory)
	if err != nil {
		return nil, err
	}
	return &Proxy{id: newProxyId(), config: config, advised: advised}, nil
}

func newProxyId() string {
	if id, err := uuid.NewV4(); err == nil {
		return id.String()
	}
	return str.RandomStr(32)
}

// Proxy runs the interceptor chain of every invoked method before the target method.
// It is safe for concurrent use.
// Proxy 代理对象，调用方法时先执行拦截器链，再执行目标方法。可以并发使用。
type Proxy struct {
	id      string
	config  types.Config
	advised *AdvisedSupport
}

// Invoke calls method name with args. The result is nil for void methods, the single value, or
// []interface{} for several values; the trailing error of the method is returned as error.
// A variadic method takes its final argument as a slice.
// Invoke 调用代理方法，多返回值以 []interface{} 返回
func (p *Proxy) Invoke(name string, args ...interface{}) (interface{}, error) {
	m, ok := p.advised.Method(name)
	if !ok {
		return nil, &types.InvocationError{Method: name, Reason: types.ErrMethodNotFound}
	}
	return p.invoke(m, args)
}

func (p *Proxy) invoke(m *types.Method, args []interface{}) (interface{}, error) {
	chain, err := p.advised.GetInterceptors(m)
	if err != nil {
		return nil, err
	}
	ts := p.advised.TargetSource()
	target, err := ts.GetTarget()
	if err != nil {
		return nil, err
	}
	var lease *targetLease
	if !ts.IsStatic() {
		lease = newTargetLease(func() { ts.ReleaseTarget(target) })
		defer lease.done()
	}
	if len(chain) == 0 {
		// no advice: straight to the target
		return callMethod(reflect.ValueOf(target).MethodByName(m.Name), m, args, p.config.RecoverPanics)
	}
	inv := NewMethodInvocation(p, target, ts.TargetType(), m, args, chain).RecoverPanics(p.config.RecoverPanics)
	inv.lease = lease
	return inv.Proceed()
}

// Bind fills the exported func fields of the struct pointed to by stub with functions calling
// the proxy. A field named after a method, or tagged `aop:"Method"`, must have the exact signature
// of that method; `aop:"-"` skips a field. A field of type types.Advised receives the proxy.
// When a method has no error result, an error of the chain panics in the bound function.
//
// Bind 把 stub 结构体中导出的函数字段绑定到代理方法。字段名或 `aop:"Method"` 标签指定方法名，
// 函数签名必须与方法一致。类型为 types.Advised 的字段会被设置为代理本身。
func (p *Proxy) Bind(stub interface{}) error {
	v := reflect.ValueOf(stub)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bind: stub must be a non-nil pointer to struct, got %T", stub)
	}
	sv := v.Elem()
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Type == advisedType {
			sv.Field(i).Set(reflect.ValueOf(p))
			continue
		}
		if field.Type.Kind() != reflect.Func {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup(types.BindTagKey); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		m, ok := p.advised.Method(name)
		if !ok {
			return fmt.Errorf("bind field %s: %w", field.Name, &types.InvocationError{Method: name, Reason: types.ErrMethodNotFound})
		}
		if field.Type != m.Signature {
			return fmt.Errorf("bind field %s: signature %v does not match method %s", field.Name, field.Type, m)
		}
		sv.Field(i).Set(p.makeFunc(field.Type, m))
	}
	return nil
}

func (p *Proxy) makeFunc(ft reflect.Type, m *types.Method) reflect.Value {
	return reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		args := make([]interface{}, len(in))
		for i, arg := range in {
			args[i] = arg.Interface()
		}
		result, err := p.invoke(m, args)
		return splitResults(ft, m, result, err)
	})
}

// ProxyId returns the unique id of the proxy.
func (p *Proxy) ProxyId() string {
	return p.id
}

// TargetType returns the ultimate target type, looking through proxies of proxies.
func (p *Proxy) TargetType() reflect.Type {
	ts := p.advised.TargetSource()
	if ts.IsStatic() {
		if target, err := ts.GetTarget(); err == nil {
			if inner, ok := target.(*Proxy); ok {
				return inner.TargetType()
			}
		}
	}
	return ts.TargetType()
}

// Advisors returns a copy of the advisors, in chain order.
func (p *Proxy) Advisors() []types.Advisor {
	return p.advised.Advisors()
}

// IsFrozen reports whether the advisors can no longer change.
func (p *Proxy) IsFrozen() bool {
	return p.advised.IsFrozen()
}

// AddAdvisor adds advisors to a proxy that is not frozen. Calls in flight finish with the previous chains.
func (p *Proxy) AddAdvisor(advisors ...types.Advisor) error {
	return p.advised.AddAdvisor(advisors...)
}

// RemoveAdvisor removes an advisor from a proxy that is not frozen.
func (p *Proxy) RemoveAdvisor(advisor types.Advisor) (bool, error) {
	return p.advised.RemoveAdvisor(advisor)
}

// Methods returns the exposed methods.
func (p *Proxy) Methods() []*types.Method {
	return p.advised.Methods()
}

// Advised returns the configuration of the proxy.
func (p *Proxy) Advised() *AdvisedSupport {
	return p.advised
}

func (p *Proxy) String() string {
	return fmt.Sprintf("Proxy[%s](%v)", p.id, p.advised.TargetType())
}

var advisedType = reflect.TypeOf((*types.Advised)(nil)).Elem()

// AdvisedOf returns the proxy behind obj: a *Proxy, a types.Advised, or a pointer to a stub
// bound by Proxy.Bind with a types.Advised field.
func AdvisedOf(obj interface{}) (types.Advised, bool) {
	switch v := obj.(type) {
	case nil:
		return nil, false
	case types.Advised:
		return v, true
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, false
	}
	sv := rv.Elem()
	for i := 0; i < sv.NumField(); i++ {
		if sv.Type().Field(i).Type == advisedType && !sv.Field(i).IsNil() {
			if advised, ok := sv.Field(i).Interface().(types.Advised); ok {
				return advised, true
			}
		}
	}
	return nil, false
}

// IsProxy reports whether obj is a proxy created by this engine, or a stub bound to one.
// IsProxy 判断对象是否为引擎创建的代理
func IsProxy(obj interface{}) bool {
	_, ok := AdvisedOf(obj)
	return ok
}

// UltimateTargetType returns the unproxied target type of obj, or the type of obj itself.
func UltimateTargetType(obj interface{}) reflect.Type {
	if advised, ok := AdvisedOf(obj); ok {
		return advised.TargetType()
	}
	return reflect.TypeOf(obj)
}

// AdvisorsOf returns the advisors applied to obj, nil when obj is not a proxy.
func AdvisorsOf(obj interface{}) []types.Advisor {
	if advised, ok := AdvisedOf(obj); ok {
		return advised.Advisors()
	}
	return nil
}

var _ types.Advised = (*Proxy)(nil)
