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

package types

import (
	"errors"
	"fmt"
)

// ConfigError reports an advisor that can not be turned into a valid interceptor.
// It is raised while a proxy or an interceptor chain is built, never while advice runs.
// ConfigError 配置错误，在构建代理或拦截器链时产生
type ConfigError struct {
	// Advisor describes the faulty advisor
	Advisor string
	// Method is the method the chain was built for, empty when raised at proxy creation
	Method string
	Reason error
}

func (e *ConfigError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("aop configuration error: advisor %s on method %s: %v", e.Advisor, e.Method, e.Reason)
	}
	return fmt.Sprintf("aop configuration error: advisor %s: %v", e.Advisor, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Reason }

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// InvocationError reports that the real method could not be invoked: unknown method,
// wrong argument count or types, unconvertible results. It is never used for an
// error returned by the target itself.
// InvocationError 调用机制错误，例如参数个数或类型不匹配。目标方法自身返回的错误不会包装成该类型。
type InvocationError struct {
	Method string
	Reason error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("cannot invoke %s: %v", e.Method, e.Reason)
}

func (e *InvocationError) Unwrap() error { return e.Reason }

func (e *InvocationError) Is(target error) bool { return target == ErrInvocationMechanics }

// PanicError carries a panic recovered from the target when Config.RecoverPanics is enabled.
// PanicError 在开启 Config.RecoverPanics 时，目标方法 panic 被恢复后的错误
type PanicError struct {
	Method string
	Value  interface{}
	Stack  string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Method, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsInvocationError reports whether err is an invocation mechanics failure.
func IsInvocationError(err error) bool {
	return errors.Is(err, ErrInvocationMechanics)
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
