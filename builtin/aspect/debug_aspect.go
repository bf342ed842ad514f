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
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/engine"
)

var _ types.AroundAdvice = (*DebugAspect)(nil)

// DebugAspect reports an IN event before and an OUT event after every call.
// Events go to Config.OnDebug, or to Config.Logger when no callback is configured.
//
// DebugAspect 在调用前后分别触发 IN 和 OUT 事件，
// 事件发送到 Config.OnDebug，没有配置回调时写入 Config.Logger。
type DebugAspect struct {
	config types.Config
}

func NewDebugAspect(config types.Config) *DebugAspect {
	return &DebugAspect{config: config}
}

// NewDebugAdvisor binds a DebugAspect to pointcut. A nil pointcut matches every method.
func NewDebugAdvisor(pointcut types.Pointcut, config types.Config) *engine.DefaultPointcutAdvisor {
	return engine.NewPointcutAdvisor(pointcut, NewDebugAspect(config))
}

// Order returns 900 so that the events are emitted closest to the target method.
func (a *DebugAspect) Order() int {
	return 900
}

func (a *DebugAspect) Around(inv types.Invocation) (interface{}, error) {
	proxyId := proxyIdOf(inv)
	a.onDebug(proxyId, types.In, inv.Method(), inv.Args(), nil, nil)
	result, err := inv.Proceed()
	a.onDebug(proxyId, types.Out, inv.Method(), inv.Args(), result, err)
	return result, err
}

func (a *DebugAspect) onDebug(proxyId string, flowType string, method *types.Method, args []interface{}, result interface{}, err error) {
	if a.config.OnDebug != nil {
		a.config.OnDebug(proxyId, flowType, method, args, result, err)
		return
	}
	if flowType == types.In {
		types.Printf(a.config.Logger, "%s %s %s args=%v", proxyId, flowType, method.Name, args)
	} else if err != nil {
		types.Printf(a.config.Logger, "%s %s %s err=%v", proxyId, flowType, method.Name, err)
	} else {
		types.Printf(a.config.Logger, "%s %s %s result=%v", proxyId, flowType, method.Name, result)
	}
}

// proxyIdOf returns the id of the proxy serving inv, empty if the proxy is not advised.
func proxyIdOf(jp types.JoinPoint) string {
	if advised, ok := jp.Proxy().(types.Advised); ok {
		return advised.ProxyId()
	}
	return ""
}
