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

// Package aop provides an aspect oriented proxy engine: cross-cutting behaviors (advice) are
// matched against the methods of a target through pointcuts, and a proxy runs the ordered chain
// of matched advice around every call of the target.
//
// # Usage
//
//	type UserService struct{}
//
//	func (s *UserService) Get(key string) (string, error) {
//		return "value-for-" + key, nil
//	}
//
//	// stub of the proxied methods
//	type UserServiceStub struct {
//		Get func(key string) (string, error)
//	}
//
//	logging := engine.NewPointcutAdvisor(engine.NameMatchPointcut("Get*"), types.BeforeFunc(func(jp types.JoinPoint) error {
//		log.Printf("call %s %v", jp.Method().Name, jp.Args())
//		return nil
//	}), engine.WithOrder(0))
//
//	proxy, err := aop.NewProxy(&UserService{}, logging)
//	stub, err := aop.Bind[UserServiceStub](proxy)
//	value, err := stub.Get("a")
//
// The advice shapes are types.BeforeAdvice, types.AfterReturningAdvice, types.AfterThrowingAdvice,
// types.AfterAdvice, types.AroundAdvice and types.MethodInterceptor. Builtin advisors live in the
// builtin/aspect package and expression or script pointcuts in builtin/pointcut.
package aop

import (
	"reflect"
	"sync"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
)

// DefaultAOP is the default proxy registry.
var DefaultAOP = NewAOP(types.NewConfig())

// AOP creates proxies with one factory and keeps them by proxy id.
// AOP 使用同一个代理工厂创建代理，并按代理ID保存
type AOP struct {
	factory *engine.ProxyFactory
	proxies sync.Map
}

// NewAOP creates a registry whose proxies use config and the given shared advisors.
func NewAOP(config types.Config, advisors ...types.Advisor) *AOP {
	return &AOP{factory: engine.NewProxyFactory(config, advisors...)}
}

// Factory returns the proxy factory.
func (a *AOP) Factory() *engine.ProxyFactory {
	return a.factory
}

// New creates a proxy of target and registers it.
func (a *AOP) New(target interface{}, opts ...engine.ProxyOption) (*engine.Proxy, error) {
	proxy, err := a.factory.GetProxy(target, opts...)
	if err != nil {
		return nil, err
	}
	a.proxies.Store(proxy.ProxyId(), proxy)
	return proxy, nil
}

// Get returns a registered proxy.
func (a *AOP) Get(id string) (*engine.Proxy, bool) {
	if v, ok := a.proxies.Load(id); ok {
		return v.(*engine.Proxy), true
	}
	return nil, false
}

// Del unregisters a proxy.
func (a *AOP) Del(id string) {
	a.proxies.Delete(id)
}

// Range calls f for every registered proxy until f returns false.
func (a *AOP) Range(f func(proxy *engine.Proxy) bool) {
	a.proxies.Range(func(key, value any) bool {
		return f(value.(*engine.Proxy))
	})
}

// NewProxy creates a proxy of target advised by advisors with the default registry.
// NewProxy 使用默认注册表创建代理
func NewProxy(target interface{}, advisors ...types.Advisor) (*engine.Proxy, error) {
	return DefaultAOP.New(target, engine.WithAdvisors(advisors...))
}

// Get returns a proxy of the default registry.
func Get(id string) (*engine.Proxy, bool) {
	return DefaultAOP.Get(id)
}

// Del unregisters a proxy of the default registry.
func Del(id string) {
	DefaultAOP.Del(id)
}

// Bind returns a T, a struct of funcs, bound to the methods of proxy. See engine.Proxy.Bind.
// Bind 返回绑定到代理方法的函数结构体 T
func Bind[T any](proxy *engine.Proxy) (T, error) {
	var stub T
	err := proxy.Bind(&stub)
	return stub, err
}

// InterfaceType returns the reflect.Type of the interface T, for engine.WithInterfaces and type filters.
func InterfaceType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// IsProxy reports whether obj is a proxy created by the engine, or a stub bound to one.
func IsProxy(obj interface{}) bool {
	return engine.IsProxy(obj)
}

// UltimateTargetType returns the unproxied target type of obj.
func UltimateTargetType(obj interface{}) reflect.Type {
	return engine.UltimateTargetType(obj)
}

// AdvisorsOf returns the advisors applied to a proxy.
func AdvisorsOf(obj interface{}) []types.Advisor {
	return engine.AdvisorsOf(obj)
}
