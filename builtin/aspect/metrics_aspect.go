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
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rulego/aop/api/types"
	"github.com/rulego/aop/api/types/metrics"
	"github.com/rulego/aop/engine"
	reflectutil "github.com/rulego/aop/utils/reflect"
)

const (
	metricsNamespace = "aop"
	statusSuccess    = "success"
	statusError      = "error"
)

// errPanicked is recorded for calls that did not return
var errPanicked = errors.New("panicked")

var _ types.AroundAdvice = (*MetricsAspect)(nil)

// MetricsAspect counts the calls of the matched methods.
// The totals are kept in an InvocationMetrics; when a prometheus registerer is given,
// aop_calls_total{type,method,status} and aop_call_duration_seconds{type,method} are exported too.
//
// MetricsAspect 统计匹配方法的调用次数和耗时。
type MetricsAspect struct {
	metrics  *metrics.InvocationMetrics
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsAspect creates an aspect writing to m (a new one if nil).
// A nil registerer disables the prometheus collectors.
func NewMetricsAspect(m *metrics.InvocationMetrics, registerer prometheus.Registerer) *MetricsAspect {
	if m == nil {
		m = metrics.NewInvocationMetrics()
	}
	a := &MetricsAspect{metrics: m}
	if registerer != nil {
		a.calls = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "calls_total",
				Help:      "Total number of advised method calls",
			},
			[]string{"type", "method", "status"},
		)
		a.duration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "call_duration_seconds",
				Help:      "Duration of advised method calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type", "method"},
		)
		registerer.MustRegister(a.calls, a.duration)
	}
	return a
}

func NewMetricsAdvisor(pointcut types.Pointcut, m *metrics.InvocationMetrics, registerer prometheus.Registerer) *engine.DefaultPointcutAdvisor {
	return engine.NewPointcutAdvisor(pointcut, NewMetricsAspect(m, registerer))
}

func (a *MetricsAspect) Order() int {
	return 20
}

func (a *MetricsAspect) Around(inv types.Invocation) (result interface{}, err error) {
	a.metrics.Begin()
	start := time.Now()
	// recorded from a defer so that panics are counted as failures
	completed := false
	defer func() {
		if !completed && err == nil {
			a.observe(inv, start, errPanicked)
			return
		}
		a.observe(inv, start, err)
	}()
	result, err = inv.Proceed()
	completed = true
	return result, err
}

func (a *MetricsAspect) observe(inv types.Invocation, start time.Time, err error) {
	a.metrics.End(err)
	if a.calls == nil {
		return
	}
	typeName := reflectutil.SimpleName(inv.TargetType())
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	a.calls.WithLabelValues(typeName, inv.Method().Name, status).Inc()
	a.duration.WithLabelValues(typeName, inv.Method().Name).Observe(time.Since(start).Seconds())
}

// GetMetrics returns the counters of this aspect.
func (a *MetricsAspect) GetMetrics() *metrics.InvocationMetrics {
	return a.metrics
}
