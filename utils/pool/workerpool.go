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

// Package pool provides the worker pool that runs asynchronous join points.
//
// Package pool 提供执行异步连接点的协程池。
//
// Note: The FILO worker scheme is inspired by:
// Valyala, A. (2023) workerpool.go (Version 1.48.0)
// [Source code]. https://github.com/valyala/fasthttp/blob/master/workerpool.go
package pool

import (
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/rulego/aop/api/types"
	rt "github.com/rulego/aop/utils/runtime"
)

const defaultMaxIdleWorkerDuration = 10 * time.Second

// WorkerPool runs submitted tasks on a bounded set of goroutines.
// Idle workers are kept in a stack: the most recently used worker serves the next task,
// and workers idle for longer than MaxIdleWorkerDuration are stopped.
//
// WorkerPool 在有限数量的协程上执行任务，空闲时间超过 MaxIdleWorkerDuration 的协程会被回收
type WorkerPool struct {
	// MaxWorkersCount bounds the number of goroutines. Submit fails with types.ErrNoIdleWorkers when reached.
	MaxWorkersCount int
	// MaxIdleWorkerDuration defaults to 10 seconds.
	MaxIdleWorkerDuration time.Duration
	// Logger receives the panics of tasks. Optional.
	Logger types.Logger

	lock         sync.Mutex
	workersCount int
	stopped      bool
	idle         []*worker
	stopCh       chan struct{}
}

type worker struct {
	lastUseTime time.Time
	tasks       chan func()
}

var workerChanCap = func() int {
	// a blocking channel hands the task over faster on a single core
	if runtime.GOMAXPROCS(0) == 1 {
		return 0
	}
	return 1
}()

// NewWorkerPool creates and starts a worker pool.
func NewWorkerPool(maxWorkersCount int, maxIdleWorkerDuration time.Duration) *WorkerPool {
	wp := &WorkerPool{MaxWorkersCount: maxWorkersCount, MaxIdleWorkerDuration: maxIdleWorkerDuration}
	wp.Start()
	return wp
}

var (
	defaultPool     *WorkerPool
	defaultPoolOnce sync.Once
)

// DefaultPool returns the shared pool used by the Async advice when Config.Pool is not set.
// DefaultPool 返回未配置 Config.Pool 时异步增强使用的共享协程池
func DefaultPool() types.Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = &WorkerPool{MaxWorkersCount: math.MaxInt32}
		defaultPool.Start()
	})
	return defaultPool
}

// Start launches the idle worker janitor. Calling it on a started pool is a no-op.
func (wp *WorkerPool) Start() {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	if wp.stopCh != nil {
		return
	}
	wp.stopped = false
	wp.stopCh = make(chan struct{})
	go wp.janitor(wp.stopCh)
}

// Stop stops every idle worker. Busy workers exit after their current task.
// Tasks submitted after Stop run on their own goroutine.
func (wp *WorkerPool) Stop() {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	if wp.stopCh == nil {
		return
	}
	close(wp.stopCh)
	wp.stopCh = nil
	for i, w := range wp.idle {
		w.tasks <- nil
		wp.idle[i] = nil
	}
	wp.idle = wp.idle[:0]
	wp.stopped = true
}

// Release implements types.Pool.
func (wp *WorkerPool) Release() {
	wp.Stop()
}

// Submit hands fn to an idle worker or a new one.
func (wp *WorkerPool) Submit(fn func()) error {
	wp.lock.Lock()
	if wp.stopped || wp.stopCh == nil {
		wp.lock.Unlock()
		go wp.run(fn)
		return nil
	}
	var w *worker
	if n := len(wp.idle) - 1; n >= 0 {
		w = wp.idle[n]
		wp.idle[n] = nil
		wp.idle = wp.idle[:n]
	} else if wp.workersCount < wp.MaxWorkersCount {
		wp.workersCount++
		w = &worker{tasks: make(chan func(), workerChanCap)}
		go wp.loop(w)
	}
	wp.lock.Unlock()

	if w == nil {
		return types.ErrNoIdleWorkers
	}
	w.tasks <- fn
	return nil
}

// WorkersCount returns the number of running workers.
func (wp *WorkerPool) WorkersCount() int {
	wp.lock.Lock()
	defer wp.lock.Unlock()
	return wp.workersCount
}

func (wp *WorkerPool) loop(w *worker) {
	for fn := range w.tasks {
		if fn == nil {
			break
		}
		wp.run(fn)
		if !wp.park(w) {
			break
		}
	}
	wp.lock.Lock()
	wp.workersCount--
	wp.lock.Unlock()
}

func (wp *WorkerPool) run(fn func()) {
	defer func() {
		if e := recover(); e != nil {
			types.Printf(wp.Logger, "worker pool task panic: %v\n%s", e, rt.Stack())
		}
	}()
	fn()
}

// park puts the worker back on the idle stack, false when the pool is stopped.
func (wp *WorkerPool) park(w *worker) bool {
	w.lastUseTime = time.Now()
	wp.lock.Lock()
	defer wp.lock.Unlock()
	if wp.stopped {
		return false
	}
	wp.idle = append(wp.idle, w)
	return true
}

func (wp *WorkerPool) maxIdle() time.Duration {
	if wp.MaxIdleWorkerDuration <= 0 {
		return defaultMaxIdleWorkerDuration
	}
	return wp.MaxIdleWorkerDuration
}

func (wp *WorkerPool) janitor(stopCh chan struct{}) {
	ticker := time.NewTicker(wp.maxIdle())
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			wp.clean()
		}
	}
}

// clean stops the workers idle for longer than MaxIdleWorkerDuration.
// The idle stack is ordered by lastUseTime, oldest first.
func (wp *WorkerPool) clean() {
	critical := time.Now().Add(-wp.maxIdle())
	wp.lock.Lock()
	i := 0
	for i < len(wp.idle) && wp.idle[i].lastUseTime.Before(critical) {
		i++
	}
	expired := make([]*worker, i)
	copy(expired, wp.idle[:i])
	m := copy(wp.idle, wp.idle[i:])
	for j := m; j < len(wp.idle); j++ {
		wp.idle[j] = nil
	}
	wp.idle = wp.idle[:m]
	wp.lock.Unlock()

	for _, w := range expired {
		w.tasks <- nil
	}
}

var _ types.Pool = (*WorkerPool)(nil)
