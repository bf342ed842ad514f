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
	reflectutil "github.com/rulego/aop/utils/reflect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of the default tracer.
const TracerName = "github.com/rulego/aop"

var _ types.AroundAdvice = (*TracingAspect)(nil)

// TracingAspect starts a span named "Type.Method" for every call.
// When the method takes a context.Context first, the span context replaces it,
// so that spans started by the target are children of the call span.
// An error result is recorded on the span and sets its status.
//
// TracingAspect 为每次调用创建 span。方法第一个参数为 context.Context 时会替换为 span 的上下文。
type TracingAspect struct {
	tracer trace.Tracer
}

// NewTracingAspect uses tracer, or the tracer of the global provider when nil.
func NewTracingAspect(tracer trace.Tracer) *TracingAspect {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &TracingAspect{tracer: tracer}
}

func NewTracingAdvisor(pointcut types.Pointcut, tracer trace.Tracer) *engine.DefaultPointcutAdvisor {
	return engine.NewPointcutAdvisor(pointcut, NewTracingAspect(tracer))
}

func (a *TracingAspect) Order() int {
	return 30
}

func (a *TracingAspect) Around(inv types.Invocation) (interface{}, error) {
	typeName := reflectutil.SimpleName(inv.TargetType())
	ctx, span := a.tracer.Start(inv.Context(), typeName+"."+inv.Method().Name,
		trace.WithAttributes(
			attribute.String("aop.type", reflectutil.QualifiedName(inv.TargetType())),
			attribute.String("aop.method", inv.Method().Name),
			attribute.Int("aop.args", len(inv.Args())),
		),
	)
	defer span.End()

	if inv.Method().AcceptsContext() && len(inv.Args()) > 0 {
		args := append([]interface{}(nil), inv.Args()...)
		args[0] = ctx
		if err := inv.SetArgs(args...); err != nil {
			return nil, err
		}
	}
	result, err := inv.Proceed()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return result, err
}
