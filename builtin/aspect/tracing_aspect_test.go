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
	"context"
	"testing"

	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/test/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingAspect(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() {
		_ = provider.Shutdown(context.Background())
	}()

	proxy := newProxy(t, types.NewConfig(), newItemService(), NewTracingAdvisor(nil, provider.Tracer("test")))
	assert.Equal(t, 30, NewTracingAspect(nil).Order())

	_, err := proxy.Invoke("Get", "a")
	assert.Nil(t, err)
	_, err = proxy.Invoke("Fail")
	assert.Equal(t, errBackend, err)

	spans := recorder.Ended()
	assert.Equal(t, 2, len(spans))
	assert.Equal(t, "itemService.Get", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.True(t, hasAttribute(spans[0].Attributes(), attribute.String("aop.method", "Get")))
	assert.True(t, hasAttribute(spans[0].Attributes(), attribute.Int("aop.args", 1)))

	assert.Equal(t, "itemService.Fail", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, errBackend.Error(), spans[1].Status().Description)
	assert.Equal(t, 1, len(spans[1].Events()))
}

func TestTracingAspectPropagatesContext(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")
	proxy := newProxy(t, types.NewConfig(), newItemService(), NewTracingAdvisor(nil, tracer))

	ctx, parent := tracer.Start(context.Background(), "parent")
	traceId, err := proxy.Invoke("TraceId", ctx)
	parent.End()
	assert.Nil(t, err)

	spans := recorder.Ended()
	assert.Equal(t, 2, len(spans))
	call := spans[0]
	assert.Equal(t, "itemService.TraceId", call.Name())
	// the target sees the span of the call, child of the caller span
	assert.Equal(t, call.SpanContext().TraceID().String(), traceId)
	assert.Equal(t, parent.SpanContext().SpanID(), call.Parent().SpanID())
}

func hasAttribute(attrs []attribute.KeyValue, kv attribute.KeyValue) bool {
	for _, a := range attrs {
		if a == kv {
			return true
		}
	}
	return false
}
