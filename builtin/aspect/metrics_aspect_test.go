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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/api/types/metrics"
	"github.com/rulego/aop/test/assert"
)

// sample returns the counter value, or the histogram sample count, of the series with labels
func sample(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	families, err := registry.Gather()
	assert.Nil(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	next:
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if v, ok := labels[pair.GetName()]; ok && v != pair.GetValue() {
					continue next
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return float64(m.GetHistogram().GetSampleCount())
		}
	}
	return 0
}

func TestMetricsAspect(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewInvocationMetrics()
	proxy := newProxy(t, types.NewConfig(), newItemService(), NewMetricsAdvisor(nil, m, registry))
	aspect := proxy.Advisors()[0].Advice().(*MetricsAspect)
	assert.Equal(t, 20, aspect.Order())
	assert.True(t, m == aspect.GetMetrics())

	_, _ = proxy.Invoke("Get", "a")
	_, _ = proxy.Invoke("Get", "b")
	_, _ = proxy.Invoke("Fail")
	assert.Panics(t, func() {
		_, _ = proxy.Invoke("Explode")
	})

	assert.Equal(t, metrics.InvocationMetrics{Current: 0, Total: 4, Failed: 2, Success: 2}, m.Get())

	assert.Equal(t, float64(2), sample(t, registry, "aop_calls_total", map[string]string{"type": "itemService", "method": "Get", "status": statusSuccess}))
	assert.Equal(t, float64(1), sample(t, registry, "aop_calls_total", map[string]string{"method": "Fail", "status": statusError}))
	assert.Equal(t, float64(1), sample(t, registry, "aop_calls_total", map[string]string{"method": "Explode", "status": statusError}))
	assert.Equal(t, float64(2), sample(t, registry, "aop_call_duration_seconds", map[string]string{"method": "Get"}))
}

func TestMetricsAspectWithoutRegistry(t *testing.T) {
	aspect := NewMetricsAspect(nil, nil)
	assert.NotNil(t, aspect.GetMetrics())
	proxy := newProxy(t, types.NewConfig(), newItemService(), NewMetricsAdvisor(nil, aspect.GetMetrics(), nil))
	_, _ = proxy.Invoke("Get", "a")
	assert.Equal(t, int64(1), aspect.GetMetrics().Get().Success)
}
