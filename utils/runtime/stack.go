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

// Package runtime provides utilities for runtime-related operations.
// The proxy engine uses it to attach a stack trace to a recovered target panic.
//
// Usage example:
//
//	stackTrace := runtime.Stack()
//	fmt.Println("Current stack trace:", stackTrace)
package runtime

import (
	"fmt"
	"runtime"
	"strings"
)

const maxDepth = 32

// Stack 获取堆栈信息，不包含 Stack 的调用者
func Stack() string {
	return StackSkip(2)
}

// StackSkip 获取堆栈信息，跳过 StackSkip 本身之外的 skip 层调用
func StackSkip(skip int) string {
	var pc = make([]uintptr, maxDepth)
	n := runtime.Callers(2+skip, pc)
	frames := runtime.CallersFrames(pc[:n])

	var build strings.Builder
	for {
		frame, more := frames.Next()
		if frame.PC != 0 {
			build.WriteString(fmt.Sprintf(" %s %s:%d \n", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return build.String()
}
