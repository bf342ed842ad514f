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

// Package assert provides the small set of assertion helpers used by the tests of this module.
package assert

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

// Equal asserts that two objects are equal.
func Equal(t testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !ObjectsAreEqual(expected, actual) {
		fail(t, fmt.Sprintf("Not equal: \nexpected: %#v\nactual  : %#v", expected, actual), msgAndArgs...)
	}
}

// NotEqual asserts that the specified values are NOT equal.
func NotEqual(t testing.TB, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if ObjectsAreEqual(expected, actual) {
		fail(t, fmt.Sprintf("Should not be: %#v", actual), msgAndArgs...)
	}
}

// Nil asserts that the specified object is nil.
func Nil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !isNil(object) {
		fail(t, fmt.Sprintf("Expected nil, but got: %#v", object), msgAndArgs...)
	}
}

// NotNil asserts that the specified object is not nil.
func NotNil(t testing.TB, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if isNil(object) {
		fail(t, "Expected value not to be nil.", msgAndArgs...)
	}
}

// True asserts that the specified value is true.
func True(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	if !value {
		fail(t, "Should be true", msgAndArgs...)
	}
}

// False asserts that the specified value is false.
func False(t testing.TB, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	if value {
		fail(t, "Should be false", msgAndArgs...)
	}
}

// NoError asserts that a function returned no error.
func NoError(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		fail(t, fmt.Sprintf("Received unexpected error: %+v", err), msgAndArgs...)
	}
}

// EqualError asserts that a function returned an error with the given message.
func EqualError(t testing.TB, err error, errString string, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		fail(t, fmt.Sprintf("An error is expected but got nil.\nexpected: %q", errString), msgAndArgs...)
		return
	}
	if err.Error() != errString {
		fail(t, fmt.Sprintf("Error message not equal:\nexpected: %q\nactual  : %q", errString, err.Error()), msgAndArgs...)
	}
}

// ErrorIs asserts that at least one of the errors in err's chain matches target.
func ErrorIs(t testing.TB, err, target error, msgAndArgs ...interface{}) {
	t.Helper()
	if !errors.Is(err, target) {
		fail(t, fmt.Sprintf("Target error should be in err chain:\nexpected: %v\nin chain: %v", target, err), msgAndArgs...)
	}
}

// Panics asserts that the code inside the specified function panics.
func Panics(t testing.TB, f func(), msgAndArgs ...interface{}) {
	t.Helper()
	if ok, _ := didPanic(f); !ok {
		fail(t, "func should panic", msgAndArgs...)
	}
}

// EqualCleanString asserts that two strings are equal ignoring white space and line breaks.
func EqualCleanString(t testing.TB, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()
	Equal(t, cleanString(expected), cleanString(actual), msgAndArgs...)
}

// ObjectsAreEqual determines if two objects are considered equal.
func ObjectsAreEqual(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return expected == actual
	}
	exp, ok := expected.([]byte)
	if !ok {
		return reflect.DeepEqual(expected, actual)
	}
	act, ok := actual.([]byte)
	if !ok {
		return false
	}
	return bytes.Equal(exp, act)
}

// CallerInfo returns the file:line of the first caller outside this package.
func CallerInfo() string {
	for i := 1; ; i++ {
		_, file, line, ok := runtime.Caller(i)
		if !ok {
			return ""
		}
		if !strings.Contains(file, "test/assert/") {
			return fmt.Sprintf("%s:%d", file, line)
		}
	}
}

func isNil(object interface{}) bool {
	if object == nil {
		return true
	}
	value := reflect.ValueOf(object)
	switch value.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice, reflect.UnsafePointer:
		return value.IsNil()
	}
	return false
}

func didPanic(f func()) (didPanic bool, message interface{}) {
	didPanic = true
	defer func() {
		message = recover()
	}()
	f()
	didPanic = false
	return
}

func cleanString(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func fail(t testing.TB, failure string, msgAndArgs ...interface{}) {
	t.Helper()
	msg := failure
	if len(msgAndArgs) > 0 {
		if format, ok := msgAndArgs[0].(string); ok && len(msgAndArgs) > 1 {
			msg += "\nMessages: " + fmt.Sprintf(format, msgAndArgs[1:]...)
		} else {
			msg += "\nMessages: " + fmt.Sprint(msgAndArgs...)
		}
	}
	t.Errorf("%s\n%s", CallerInfo(), msg)
}
