package runtime

import (
	"strings"
	"testing"

	"github.com/rulego/aop/test/assert"
)

func TestStack(t *testing.T) {
	stackTrace := Stack()

	assert.True(t, len(stackTrace) > 0, "Stack trace should not be empty")
	assert.False(t, strings.Contains(stackTrace, "TestStack "), "Stack trace should not contain the caller")
	assert.True(t, strings.Contains(stackTrace, "testing.go"), "Stack trace should contain the test runner")
	assert.True(t, strings.Contains(stackTrace, ":"), "Stack trace should contain line numbers")
}

func TestStackSkip(t *testing.T) {
	trace := func() string {
		return StackSkip(0)
	}()
	assert.True(t, strings.Contains(trace, "TestStackSkip"))
}
