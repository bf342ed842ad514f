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

import "errors"

// Flow types passed to the OnDebug callback.
const (
	In  = "IN"
	Out = "OUT"
)

const (
	// LowestPrecedence is the order of advisors that do not implement Ordered.
	LowestPrecedence = int(^uint(0) >> 1)
	// HighestPrecedence is the smallest possible order value.
	HighestPrecedence = -LowestPrecedence - 1
	// NamespaceSeparator defines the separator for cache namespace prefixes
	NamespaceSeparator = ":"
)

// Struct tag used by Proxy.Bind to map a func field to a method of another name.
const BindTagKey = "aop"

var (
	// ErrFrozen is returned when the advisor list of a frozen proxy is modified
	ErrFrozen = errors.New("cannot modify advisors: proxy configuration is frozen")
	// ErrMethodNotFound is returned when a proxy does not expose the invoked method
	ErrMethodNotFound = errors.New("method not found")
	// ErrNilTarget is returned when a proxy is requested without target
	ErrNilTarget = errors.New("target can not be nil")
	// ErrNotImplemented is returned when the target does not implement a requested proxy interface
	ErrNotImplemented = errors.New("target does not implement interface")
	// ErrUnsupportedDynamicMatch is raised when a static method matcher is asked for a runtime match
	ErrUnsupportedDynamicMatch = errors.New("illegal MatchesDynamically call on a static method matcher")
	// ErrInvocationMechanics is the kind of every InvocationError
	ErrInvocationMechanics = errors.New("invocation mechanics failure")
	// ErrConfiguration is the kind of every ConfigError
	ErrConfiguration = errors.New("aop configuration error")
	// ErrConcurrencyLimitReached is the error returned when the concurrency limit has been reached
	ErrConcurrencyLimitReached = errors.New("concurrency limit reached")
	// ErrCacheNotInitialized is returned by the caching advice when no cache is configured
	ErrCacheNotInitialized = errors.New("cache not initialized")
	// ErrNoIdleWorkers is returned by a worker pool that can not accept more tasks
	ErrNoIdleWorkers = errors.New("no idle workers")
)
