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

package str

import (
	"errors"
	"testing"

	"github.com/rulego/aop/test/assert"
)

func TestMatch(t *testing.T) {
	assert.True(t, Match("*", "anything"))
	assert.True(t, Match("Get", "Get"))
	assert.False(t, Match("Get", "GetUser"))
	assert.True(t, Match("Get*", "GetUser"))
	assert.True(t, Match("*User", "GetUser"))
	assert.True(t, Match("*et*s*", "GetUsers"))
	assert.True(t, Match("G*r", "GetUser"))
	assert.False(t, Match("G*x", "GetUser"))
	assert.False(t, Match("Set*", "GetUser"))
	assert.False(t, Match("*User*User", "GetUser"))
	assert.True(t, MatchAny([]string{"Set*", "Get*"}, "GetUser"))
	assert.False(t, MatchAny(nil, "GetUser"))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "a", ToString("a"))
	assert.Equal(t, "12", ToString(12))
	assert.Equal(t, "12", ToString(int32(12)))
	assert.Equal(t, "1.5", ToString(1.5))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "boom", ToString(errors.New("boom")))
	assert.Equal(t, `{"a":1}`, ToString(map[string]int{"a": 1}))
}

func TestRandomStr(t *testing.T) {
	assert.Equal(t, 10, len(RandomStr(10)))
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
}
