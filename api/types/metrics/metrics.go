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

package metrics

import (
	"sync/atomic"
)

// InvocationMetrics holds the counters of the advised calls seen by the Metrics advice.
type InvocationMetrics struct {
	Current int64 // Number of calls in flight
	Total   int64 // Total number of calls
	Failed  int64 // Number of calls that returned an error
	Success int64 // Number of calls that returned without error
}

// NewInvocationMetrics creates a new instance of InvocationMetrics.
func NewInvocationMetrics() *InvocationMetrics {
	return &InvocationMetrics{}
}

// Begin records the start of a call.
func (m *InvocationMetrics) Begin() {
	atomic.AddInt64(&m.Current, 1)
	atomic.AddInt64(&m.Total, 1)
}

// End records the end of a call and its outcome.
func (m *InvocationMetrics) End(err error) {
	atomic.AddInt64(&m.Current, -1)
	if err != nil {
		atomic.AddInt64(&m.Failed, 1)
	} else {
		atomic.AddInt64(&m.Success, 1)
	}
}

// Get returns a copy of the current metrics.
func (m *InvocationMetrics) Get() InvocationMetrics {
	return InvocationMetrics{
		Current: atomic.LoadInt64(&m.Current),
		Total:   atomic.LoadInt64(&m.Total),
		Failed:  atomic.LoadInt64(&m.Failed),
		Success: atomic.LoadInt64(&m.Success),
	}
}

// Reset resets all metrics to zero.
func (m *InvocationMetrics) Reset() {
	atomic.StoreInt64(&m.Current, 0)
	atomic.StoreInt64(&m.Total, 0)
	atomic.StoreInt64(&m.Failed, 0)
	atomic.StoreInt64(&m.Success, 0)
}
